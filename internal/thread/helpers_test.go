package thread

import (
	"sort"
	"testing"
)

const testLink = "t3_1"

func strPtr(s string) *string { return &s }

// rec builds a comment record under testLink. parent is a fullname.
func rec(t *testing.T, id, parent, author, body string, created int64) *Record {
	t.Helper()
	ref, err := ParseParentRef(parent)
	if err != nil {
		t.Fatal(err)
	}
	return &Record{
		ID:         id,
		Parent:     ref,
		LinkID:     testLink,
		Subreddit:  "politics",
		Author:     author,
		Body:       body,
		CreatedUTC: created,
	}
}

func group(records ...*Record) *Group {
	return &Group{LinkID: testLink, Records: records}
}

// ids returns the ids of the given nodes in order.
func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

// descendants returns the sorted ids strictly below n.
func descendants(n *Node) []string {
	var out []string
	Walk(n.Children, func(d *Node) bool {
		out = append(out, d.ID)
		return true
	})
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
