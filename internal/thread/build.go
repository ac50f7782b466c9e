package thread

import (
	"sort"

	"threadweave/internal/graph"
	"threadweave/internal/logger"
)

// BuildOptions controls tree assembly.
type BuildOptions struct {
	// Chronological orders roots and siblings by (created_utc, id) instead of
	// arrival order.
	Chronological bool
}

// Forest is the raw tree set of one submission plus the accounting of every
// record that did not make it into a tree.
type Forest struct {
	LinkID    string
	Subreddit string // first non-empty subreddit seen in the group
	Roots     []*Node

	Records      int // records in the group
	Placeholders int // rows standing for the submission itself
	Superseded   int // earlier copies of a repeated id
	Unresolved   int // parent missing or in another submission
	Cycles       int // attachment would have closed a cycle
	Stranded     int // only path to a root ran through an orphan
	Removed      int // dead nodes dropped by compaction
}

// Orphans is the number of comments that could not be connected to a root.
func (f *Forest) Orphans() int {
	return f.Unresolved + f.Cycles + f.Stranded
}

// Comments is the number of distinct comment records in the group.
func (f *Forest) Comments() int {
	return f.Records - f.Placeholders - f.Superseded
}

// Build assembles the reply forest for one submission. The full id index is
// built before any parent is resolved, so arrival order never matters.
func Build(g *Group, opts BuildOptions) *Forest {
	f := &Forest{LinkID: g.LinkID, Records: len(g.Records)}

	// Pass 1: index. Last record wins for a repeated id; the slot of the
	// first occurrence keeps discovery order stable.
	var entries []*Record
	slot := make(map[string]int, len(g.Records))
	for _, rec := range g.Records {
		if f.Subreddit == "" && rec.Subreddit != "" {
			f.Subreddit = rec.Subreddit
		}
		if rec.IsPlaceholder() {
			f.Placeholders++
			continue
		}
		if i, ok := slot[rec.ID]; ok {
			entries[i] = rec
			f.Superseded++
			continue
		}
		slot[rec.ID] = len(entries)
		entries = append(entries, rec)
	}

	nodes := make(map[string]*Node, len(entries))
	for _, rec := range entries {
		nodes[rec.ID] = newNode(rec)
	}

	// Pass 2: resolve parents.
	uf := graph.NewUnionFind(nil)
	for _, rec := range entries {
		node := nodes[rec.ID]
		switch rec.Parent.Kind {
		case KindSubmission:
			if rec.Parent.ID == g.LinkID {
				f.Roots = append(f.Roots, node)
				continue
			}
			f.Unresolved++
		case KindComment:
			parent, ok := nodes[rec.Parent.ID]
			if !ok {
				f.Unresolved++
				continue
			}
			// rec has no parent edge yet, so if it is already connected to
			// its parent the parent descends from rec.
			if uf.Connected(rec.ID, parent.ID) {
				f.Cycles++
				logger.Warn("reply cycle detected",
					"link_id", g.LinkID, "comment_id", rec.ID, "parent_id", parent.ID,
					"cycle_size", uf.Size(rec.ID))
				continue
			}
			uf.Union(rec.ID, parent.ID)
			parent.Children = append(parent.Children, node)
		}
	}

	reachable := 0
	Walk(f.Roots, func(*Node) bool {
		reachable++
		return true
	})
	f.Stranded = len(entries) - reachable - f.Unresolved - f.Cycles

	if opts.Chronological {
		sortChronological(f.Roots)
		Walk(f.Roots, func(n *Node) bool {
			sortChronological(n.Children)
			return true
		})
	}
	return f
}

func sortChronological(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].CreatedUTC != nodes[j].CreatedUTC {
			return nodes[i].CreatedUTC < nodes[j].CreatedUTC
		}
		return nodes[i].ID < nodes[j].ID
	})
}
