package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"threadweave/internal/thread"
)

// line renders one comment record as a dump line.
func line(id, parent, link, sub, body string, created int64) string {
	b, _ := json.Marshal(map[string]any{
		"id":          id,
		"parent_id":   parent,
		"link_id":     link,
		"subreddit":   sub,
		"author":      "u_" + id,
		"body":        body,
		"score":       1,
		"created_utc": created,
	})
	return string(b)
}

func input(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

type collector struct {
	threads []*thread.Thread
}

func (c *collector) WriteThread(t *thread.Thread) error {
	c.threads = append(c.threads, t)
	return nil
}

func (c *collector) linkIDs() []string {
	out := make([]string, len(c.threads))
	for i, t := range c.threads {
		out[i] = t.LinkID
	}
	return out
}

func TestRun_InterleavedSubmissions(t *testing.T) {
	in := input(
		line("b1", "t1_a1", "t3_b", "news", "reply", 20),
		line("a1", "t3_a", "t3_a", "news", "root a", 10),
		line("a1", "t3_b", "t3_b", "news", "root b", 10),
		line("a2", "t1_a1", "t3_a", "news", "[deleted]", 30),
		line("a3", "t1_a2", "t3_a", "news", "kept", 40),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c, Options{Workers: 1, Chronological: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.linkIDs(); strings.Join(got, ",") != "t3_b,t3_a" {
		t.Errorf("expected first-seen order t3_b,t3_a, got %v", got)
	}
	b := c.threads[0]
	if b.CommentCount != 2 || b.Roots[0].Children[0].ID != "t1_b1" {
		t.Errorf("child before parent should still attach, got %+v", b)
	}
	a := c.threads[1]
	if a.CommentCount != 2 || a.Roots[0].Children[0].ID != "t1_a3" {
		t.Errorf("deleted middle comment should be compacted away in t3_a")
	}
	if stats.LinesRead != 5 || stats.RecordsParsed != 5 {
		t.Errorf("unexpected read stats: %+v", stats)
	}
	if stats.SubmissionsSeen != 2 || stats.SubmissionsEmitted != 2 {
		t.Errorf("unexpected submission stats: %+v", stats)
	}
	if stats.CommentsEmitted != 4 || stats.Removed != 1 || stats.Orphans != 0 {
		t.Errorf("unexpected comment stats: %+v", stats)
	}
}

func TestRun_MalformedAndBlankLines(t *testing.T) {
	in := input(
		line("a", "t3_x", "t3_x", "news", "hi", 1),
		"",
		"{not json",
		`{"id":"b","parent_id":"t1_a","link_id":"t3_x"}`,
		"   ",
		line("c", "t1_a", "t3_x", "news", "hey", 2),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.LinesRead != 6 {
		t.Errorf("expected 6 lines read, got %d", stats.LinesRead)
	}
	if stats.Malformed != 2 {
		t.Errorf("expected 2 malformed (bad json, missing created_utc), got %d", stats.Malformed)
	}
	if stats.RecordsParsed != 2 || stats.CommentsEmitted != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRun_SubredditFilter(t *testing.T) {
	in := input(
		line("a", "t3_x", "t3_x", "Politics", "keep", 1),
		line("b", "t3_y", "t3_y", "news", "drop", 1),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c, Options{Workers: 1, Subreddit: "politics"})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.linkIDs(); len(got) != 1 || got[0] != "t3_x" {
		t.Errorf("expected only t3_x, got %v", got)
	}
	if stats.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", stats.Skipped)
	}
}

func TestRun_MinCommentsFilters(t *testing.T) {
	in := input(
		line("a", "t3_x", "t3_x", "news", "one", 1),
		line("b", "t3_y", "t3_y", "news", "one", 1),
		line("c", "t1_b", "t3_y", "news", "two", 2),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c, Options{Workers: 1, MinComments: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.linkIDs(); len(got) != 1 || got[0] != "t3_y" {
		t.Errorf("expected only t3_y, got %v", got)
	}
	if stats.SubmissionsFiltered != 1 || stats.SubmissionsEmitted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.CommentsEmitted != 2 {
		t.Errorf("filtered comments must not be counted as emitted, got %d", stats.CommentsEmitted)
	}
}

func TestRun_MaxSubmissionsStopsEarly(t *testing.T) {
	in := input(
		line("a", "t3_1", "t3_1", "news", "x", 1),
		line("b", "t3_2", "t3_2", "news", "x", 1),
		line("c", "t1_a", "t3_1", "news", "x", 2),
		line("d", "t3_3", "t3_3", "news", "x", 1),
		line("e", "t3_4", "t3_4", "news", "x", 1),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c, Options{Workers: 1, MaxSubmissions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.linkIDs(); strings.Join(got, ",") != "t3_1,t3_2" {
		t.Errorf("expected t3_1,t3_2, got %v", got)
	}
	if !stats.Truncated {
		t.Error("run should report truncation")
	}
	if stats.LinesRead != 4 {
		t.Errorf("reading should stop at the refused record, read %d lines", stats.LinesRead)
	}
	if c.threads[0].CommentCount != 2 {
		t.Errorf("open submission should keep its later records, got %d", c.threads[0].CommentCount)
	}
}

func TestRun_SortedInputMatchesUnsorted(t *testing.T) {
	var lines []string
	for s := 0; s < 20; s++ {
		link := fmt.Sprintf("t3_s%d", s)
		lines = append(lines, line(fmt.Sprintf("s%dr", s), link, link, "news", "root", int64(s)))
		for i := 0; i < 5; i++ {
			lines = append(lines, line(fmt.Sprintf("s%dc%d", s, i), fmt.Sprintf("t1_s%dr", s), link, "news", "reply", int64(s*10+i)))
		}
	}

	var sorted, unsorted collector
	if _, err := Run(context.Background(), input(lines...), &sorted, Options{Workers: 1, SortedInput: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), input(lines...), &unsorted, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(sorted.threads)
	b, _ := json.Marshal(unsorted.threads)
	if string(a) != string(b) {
		t.Error("sorted-input mode should produce the same threads on sorted input")
	}
	if len(sorted.threads) != 20 {
		t.Errorf("expected 20 threads, got %d", len(sorted.threads))
	}
}

func TestRun_SortedInputLateRecordUnderCap(t *testing.T) {
	in := input(
		line("a1", "t3_a", "t3_a", "news", "x", 1),
		line("b1", "t3_b", "t3_b", "news", "x", 2),
		line("a2", "t1_a1", "t3_a", "news", "late", 3),
	)
	var c collector
	stats, err := Run(context.Background(), in, &c,
		Options{Workers: 1, SortedInput: true, MaxSubmissions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Truncated {
		t.Error("a late record for a seen submission should not hit the cap")
	}
	if stats.SubmissionsSeen != 2 {
		t.Errorf("expected 2 submissions seen, got %d", stats.SubmissionsSeen)
	}
	if got := stats.CommentsEmitted + stats.Removed + stats.Orphans; got != stats.RecordsParsed {
		t.Errorf("every parsed record should be accounted for: %+v", stats)
	}
	if stats.Orphans != 1 {
		t.Errorf("late reply to a released submission should be an orphan, got %d", stats.Orphans)
	}
}

func TestRun_ManyWorkersAccountsEverything(t *testing.T) {
	var lines []string
	total := 0
	for s := 0; s < 200; s++ {
		link := fmt.Sprintf("t3_%d", s)
		lines = append(lines, line(fmt.Sprintf("r%d", s), link, link, "news", "root", 1))
		for i := 0; i < s%7; i++ {
			body := "text"
			if i%3 == 0 {
				body = "[removed]"
			}
			lines = append(lines, line(fmt.Sprintf("c%d_%d", s, i), fmt.Sprintf("t1_r%d", s), link, "news", body, 2))
		}
		lines = append(lines, line(fmt.Sprintf("o%d", s), "t1_ghost", link, "news", "lost", 3))
		total += 2 + s%7
	}

	var c collector
	stats, err := Run(context.Background(), input(lines...), &c, Options{Workers: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.threads) != 200 {
		t.Fatalf("expected 200 threads, got %d", len(c.threads))
	}
	got := c.linkIDs()
	sort.Strings(got)
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("thread %s written twice", got[i])
		}
	}
	if sum := stats.CommentsEmitted + stats.Removed + stats.Orphans; sum != int64(total) {
		t.Errorf("emitted+removed+orphans = %d, want %d", sum, total)
	}
	if stats.Orphans != 200 {
		t.Errorf("expected 200 orphans, got %d", stats.Orphans)
	}
}

func TestRun_SinkErrorStopsRun(t *testing.T) {
	boom := errors.New("disk full")
	sink := SinkFunc(func(*thread.Thread) error { return boom })
	in := input(
		line("a", "t3_x", "t3_x", "news", "x", 1),
		line("b", "t3_y", "t3_y", "news", "x", 1),
	)
	_, err := Run(context.Background(), in, sink, Options{Workers: 1})
	if !errors.Is(err, boom) {
		t.Errorf("expected sink error, got %v", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var c collector
	_, err := Run(ctx, input(line("a", "t3_x", "t3_x", "news", "x", 1)), &c, Options{Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_LineTooLong(t *testing.T) {
	long := line("a", "t3_x", "t3_x", "news", strings.Repeat("x", 200_000), 1)
	var c collector
	_, err := Run(context.Background(), input(long), &c, Options{Workers: 1, BufferSize: 64 << 10})
	if err == nil || !strings.Contains(err.Error(), "line 1 longer than") {
		t.Errorf("expected a line-too-long error, got %v", err)
	}
}

func TestRun_MultiSink(t *testing.T) {
	var a, b collector
	_, err := Run(context.Background(), input(line("a", "t3_x", "t3_x", "news", "x", 1)),
		MultiSink{&a, &b}, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.threads) != 1 || len(b.threads) != 1 {
		t.Errorf("both sinks should receive the thread, got %d and %d", len(a.threads), len(b.threads))
	}
}

func TestRun_Metrics(t *testing.T) {
	m := NewMetrics()
	in := input(
		line("a", "t3_x", "t3_x", "news", "x", 1),
		line("b", "t1_a", "t3_x", "news", "[deleted]", 2),
		"garbage",
		line("c", "t3_y", "t3_y", "other", "x", 1),
	)
	var c collector
	if _, err := Run(context.Background(), in, &c, Options{Workers: 1, Subreddit: "news", Metrics: m}); err != nil {
		t.Fatal(err)
	}
	checks := map[string]float64{
		"lines":    testutil.ToFloat64(m.linesRead),
		"parsed":   testutil.ToFloat64(m.recordsParsed),
		"bad":      testutil.ToFloat64(m.malformed),
		"skipped":  testutil.ToFloat64(m.skipped),
		"emitted":  testutil.ToFloat64(m.submissionsEmitted),
		"comments": testutil.ToFloat64(m.commentsEmitted),
		"removed":  testutil.ToFloat64(m.removed),
	}
	want := map[string]float64{"lines": 4, "parsed": 3, "bad": 1, "skipped": 1, "emitted": 1, "comments": 1, "removed": 1}
	for k, v := range want {
		if checks[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, checks[k])
		}
	}

	path := filepath.Join(t.TempDir(), "threadweave.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "threadweave_submissions_emitted_total 1") {
		t.Errorf("textfile missing emitted counter:\n%s", body)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.line()
	m.open(3)
	m.outcome(result{outcome: thread.Outcome{Live: 1}})
}
