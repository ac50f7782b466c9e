// Package corpus flattens reconstructed threads into one text document per
// submission.
package corpus

import (
	"strings"

	"threadweave/internal/thread"
)

// DefaultMinComments is the smallest thread turned into a document.
const DefaultMinComments = 5

// Document is one submission's comment text in tree order.
type Document struct {
	LinkID        string `json:"link_id"`
	Subreddit     string `json:"subreddit"`
	CommentCount  int    `json:"comment_count"`
	RootCount     int    `json:"root_count"`
	CreatedUTCMin *int64 `json:"created_utc_min"`
	CreatedUTCMax *int64 `json:"created_utc_max"`
	Text          string `json:"text"`
}

// Options filters documents.
type Options struct {
	MinComments int
}

// Text joins the trimmed text of every comment, depth first, one per line.
func Text(t *thread.Thread) string {
	var parts []string
	thread.Walk(t.Roots, func(n *thread.Node) bool {
		if n.Record == nil {
			return true
		}
		if s := thread.Text(n.Record); s != "" {
			parts = append(parts, s)
		}
		return true
	})
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Build turns t into a document. It reports false when the thread is below
// the comment threshold or has no text.
func Build(t *thread.Thread, opts Options) (*Document, bool) {
	if t.CommentCount < opts.MinComments {
		return nil, false
	}
	text := Text(t)
	if text == "" {
		return nil, false
	}
	return &Document{
		LinkID:        t.LinkID,
		Subreddit:     t.Subreddit,
		CommentCount:  t.CommentCount,
		RootCount:     t.RootCount,
		CreatedUTCMin: t.CreatedUTCMin,
		CreatedUTCMax: t.CreatedUTCMax,
		Text:          text,
	}, true
}
