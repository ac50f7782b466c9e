package thread

import (
	"errors"

	"threadweave/internal/graph"
)

// ErrBelowThreshold signals that a submission was filtered by the minimum
// comment policy. It is not a failure.
var ErrBelowThreshold = errors.New("below minimum comment count")

// Thread is the emitted record for one submission.
type Thread struct {
	LinkID         string  `json:"link_id"`
	Subreddit      string  `json:"subreddit"`
	CommentCount   int     `json:"comment_count"`
	RootCount      int     `json:"root_count"`
	CreatedUTCMin  *int64  `json:"created_utc_min,omitempty"`
	CreatedUTCMax  *int64  `json:"created_utc_max,omitempty"`
	OrphanComments int     `json:"orphan_comments"`
	Roots          []*Node `json:"roots"`
}

// AggregateOptions holds the emission policy.
type AggregateOptions struct {
	MinComments int
}

// Aggregate summarizes a compacted forest and sets node depths. When the live
// comment count is below opts.MinComments the thread is still returned,
// together with ErrBelowThreshold.
func Aggregate(f *Forest, opts AggregateOptions) (*Thread, error) {
	roots := f.Roots
	if roots == nil {
		roots = []*Node{}
	}
	t := &Thread{
		LinkID:         f.LinkID,
		Subreddit:      f.Subreddit,
		RootCount:      len(roots),
		OrphanComments: f.Orphans(),
		Roots:          roots,
	}
	if len(roots) > 0 && roots[0].Subreddit != "" {
		t.Subreddit = roots[0].Subreddit
	}

	var lo, hi int64
	for _, r := range roots {
		r.Depth = 0
	}
	Walk(roots, func(n *Node) bool {
		for _, c := range n.Children {
			c.Depth = n.Depth + 1
		}
		if t.CommentCount == 0 || n.CreatedUTC < lo {
			lo = n.CreatedUTC
		}
		if t.CommentCount == 0 || n.CreatedUTC > hi {
			hi = n.CreatedUTC
		}
		t.CommentCount++
		return true
	})
	if t.CommentCount > 0 {
		t.CreatedUTCMin = &lo
		t.CreatedUTCMax = &hi
	}

	if t.CommentCount < opts.MinComments {
		return t, ErrBelowThreshold
	}
	return t, nil
}

// Shape measures the tree structure of an emitted thread.
func (t *Thread) Shape() graph.ThreadShape {
	s := graph.ThreadShape{
		LinkID:    t.LinkID,
		Subreddit: t.Subreddit,
		Comments:  t.CommentCount,
		Roots:     t.RootCount,
		Orphans:   t.OrphanComments,
	}
	if len(t.Roots) > s.MaxFanOut {
		s.MaxFanOut = len(t.Roots)
	}
	Walk(t.Roots, func(n *Node) bool {
		if n.Depth+1 > s.Depth {
			s.Depth = n.Depth + 1
		}
		if len(n.Children) > s.MaxFanOut {
			s.MaxFanOut = len(n.Children)
		}
		return true
	})
	return s
}
