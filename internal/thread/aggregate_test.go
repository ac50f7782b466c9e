package thread

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAggregate_CountsAndBounds(t *testing.T) {
	f := Build(group(
		rec(t, "t1_a", testLink, "A", "hi", 300),
		rec(t, "t1_b", "t1_a", "B", "reply", 100),
		rec(t, "t1_c", testLink, "C", "other", 200),
		rec(t, "t1_x", "t1_gone", "X", "lost", 50),
	), BuildOptions{})
	th, err := Aggregate(f, AggregateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.CommentCount != 3 {
		t.Errorf("expected 3 comments, got %d", th.CommentCount)
	}
	if th.RootCount != 2 {
		t.Errorf("expected 2 roots, got %d", th.RootCount)
	}
	if th.OrphanComments != 1 {
		t.Errorf("expected 1 orphan, got %d", th.OrphanComments)
	}
	if th.CreatedUTCMin == nil || *th.CreatedUTCMin != 100 {
		t.Errorf("expected min 100, got %v", th.CreatedUTCMin)
	}
	if th.CreatedUTCMax == nil || *th.CreatedUTCMax != 300 {
		t.Errorf("expected max 300 (orphans excluded), got %v", th.CreatedUTCMax)
	}
	if th.Subreddit != "politics" {
		t.Errorf("expected subreddit politics, got %q", th.Subreddit)
	}
	if th.Roots[0].Children[0].Depth != 1 {
		t.Errorf("expected reply depth 1, got %d", th.Roots[0].Children[0].Depth)
	}
}

func TestAggregate_EmptyForest(t *testing.T) {
	f := Build(group(rec(t, "t1_x", "t1_gone", "X", "lost", 50)), BuildOptions{})
	f.Subreddit = "news"
	th, err := Aggregate(f, AggregateOptions{})
	if err != nil {
		t.Fatalf("empty thread should not error without a threshold: %v", err)
	}
	if th.CommentCount != 0 || th.RootCount != 0 {
		t.Errorf("expected zero counts, got comments=%d roots=%d", th.CommentCount, th.RootCount)
	}
	if th.CreatedUTCMin != nil || th.CreatedUTCMax != nil {
		t.Error("time bounds must be absent for an empty thread")
	}
	if th.Roots == nil {
		t.Error("roots should be an empty slice, not nil")
	}
	if th.Subreddit != "news" {
		t.Errorf("expected subreddit fallback news, got %q", th.Subreddit)
	}

	b, err := json.Marshal(th)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "created_utc_min") {
		t.Errorf("created_utc_min should be omitted, got %s", s)
	}
	if !strings.Contains(s, `"roots":[]`) {
		t.Errorf("roots should encode as [], got %s", s)
	}
}

func TestAggregate_BelowThreshold(t *testing.T) {
	f := Build(group(rec(t, "t1_a", testLink, "A", "hi", 1)), BuildOptions{})
	th, err := Aggregate(f, AggregateOptions{MinComments: 2})
	if !errors.Is(err, ErrBelowThreshold) {
		t.Fatalf("expected ErrBelowThreshold, got %v", err)
	}
	if th == nil || th.CommentCount != 1 {
		t.Error("filtered thread should still be returned for accounting")
	}
}

func TestThread_JSONShape(t *testing.T) {
	f := Build(group(
		rec(t, "t1_a", testLink, "A", "hi", 10),
		rec(t, "t1_b", "t1_a", "B", "yo", 20),
	), BuildOptions{})
	f.Roots[0].Score = 7
	f.Roots[0].BodyCleaned = strPtr("hi")
	th, _ := Aggregate(f, AggregateOptions{})

	b, err := json.Marshal(th)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"link_id", "subreddit", "comment_count", "root_count",
		"created_utc_min", "created_utc_max", "orphan_comments", "roots"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing thread field %s in %s", key, b)
		}
	}
	root := decoded["roots"].([]any)[0].(map[string]any)
	for _, key := range []string{"author", "body", "body_cleaned", "net_votes",
		"controversiality", "created_utc", "children"} {
		if _, ok := root[key]; !ok {
			t.Errorf("missing node field %s", key)
		}
	}
	if root["net_votes"].(float64) != 7 {
		t.Errorf("expected net_votes 7, got %v", root["net_votes"])
	}
	leaf := root["children"].([]any)[0].(map[string]any)
	if children, ok := leaf["children"].([]any); !ok || len(children) != 0 {
		t.Errorf("leaf children should be an empty array, got %v", leaf["children"])
	}
}

func TestThread_JSONKeepsMarkupInNestedBodies(t *testing.T) {
	f := Build(group(
		rec(t, "t1_a", testLink, "A", "a < b", 10),
		rec(t, "t1_b", "t1_a", "B", "<i>x</i> & y", 20),
	), BuildOptions{})
	th, _ := Aggregate(f, AggregateOptions{})

	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(th); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{`"body":"a < b"`, `"body":"<i>x</i> & y"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, `\u003c`) {
		t.Errorf("bodies should not be HTML-escaped: %s", out)
	}
}

func TestThread_JSONRoundTripKeepsTree(t *testing.T) {
	f := Build(group(
		rec(t, "t1_a", testLink, "A", "hi", 10),
		rec(t, "t1_b", "t1_a", "B", "yo", 20),
		rec(t, "t1_c", "t1_b", "C", "sup", 30),
	), BuildOptions{})
	th, _ := Aggregate(f, AggregateOptions{})
	b, _ := json.Marshal(th)

	var back Thread
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("decoding emitted thread: %v", err)
	}
	if Count(back.Roots) != th.CommentCount {
		t.Errorf("expected %d nodes after decode, got %d", th.CommentCount, Count(back.Roots))
	}
	leaf := back.Roots[0].Children[0].Children[0]
	if leaf.ID != "t1_c" || leaf.Depth != 2 || leaf.Author != "C" {
		t.Errorf("unexpected leaf after decode: id=%s depth=%d author=%s", leaf.ID, leaf.Depth, leaf.Author)
	}
}

func TestThread_Shape(t *testing.T) {
	f := Build(group(
		rec(t, "t1_a", testLink, "A", "hi", 10),
		rec(t, "t1_b", "t1_a", "B", "1", 20),
		rec(t, "t1_c", "t1_a", "C", "2", 30),
		rec(t, "t1_d", "t1_a", "D", "3", 40),
		rec(t, "t1_e", "t1_d", "E", "4", 50),
		rec(t, "t1_x", "t1_nope", "X", "5", 60),
	), BuildOptions{})
	th, _ := Aggregate(f, AggregateOptions{})
	s := th.Shape()
	if s.Depth != 3 {
		t.Errorf("expected depth 3, got %d", s.Depth)
	}
	if s.MaxFanOut != 3 {
		t.Errorf("expected max fan-out 3, got %d", s.MaxFanOut)
	}
	if s.Comments != 5 || s.Orphans != 1 || s.Roots != 1 {
		t.Errorf("unexpected shape counts: %+v", s)
	}
}
