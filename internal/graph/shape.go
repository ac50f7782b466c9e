package graph

import "sort"

// ThreadShape is the structural summary of one reconstructed thread.
type ThreadShape struct {
	LinkID    string `json:"link_id"`
	Subreddit string `json:"subreddit"`
	Comments  int    `json:"comments"`
	Roots     int    `json:"roots"`
	Orphans   int    `json:"orphans"`
	Depth     int    `json:"depth"`
	MaxFanOut int    `json:"max_fan_out"`
}

// SizeBucket is one bucket in the thread size histogram
type SizeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SubredditCount is the number of threads seen for one subreddit
type SubredditCount struct {
	Subreddit string `json:"subreddit"`
	Threads   int    `json:"threads"`
	Comments  int    `json:"comments"`
}

// ShapeReport aggregates thread shapes across a run
type ShapeReport struct {
	TotalThreads  int              `json:"total_threads"`
	TotalComments int              `json:"total_comments"`
	TotalOrphans  int              `json:"total_orphans"`
	OrphanRatio   float64          `json:"orphan_ratio"`
	EmptyThreads  int              `json:"empty_threads"`
	MaxDepth      int              `json:"max_depth"`
	MeanDepth     float64          `json:"mean_depth"`
	SizeHistogram []SizeBucket     `json:"size_histogram"`
	Largest       []ThreadShape    `json:"largest"`
	Deepest       []ThreadShape    `json:"deepest"`
	Subreddits    []SubredditCount `json:"subreddits"`
}

// ComputeShape builds a ShapeReport. topN caps the Largest, Deepest and
// Subreddits lists.
func ComputeShape(shapes []ThreadShape, topN int) *ShapeReport {
	r := &ShapeReport{
		TotalThreads:  len(shapes),
		SizeHistogram: defaultHistogram(),
	}
	if len(shapes) == 0 {
		return r
	}

	depthSum := 0
	bySub := make(map[string]*SubredditCount)
	for _, s := range shapes {
		r.TotalComments += s.Comments
		r.TotalOrphans += s.Orphans
		if s.Comments == 0 {
			r.EmptyThreads++
		}
		if s.Depth > r.MaxDepth {
			r.MaxDepth = s.Depth
		}
		depthSum += s.Depth
		r.SizeHistogram[sizeBucket(s.Comments)].Count++

		sc, ok := bySub[s.Subreddit]
		if !ok {
			sc = &SubredditCount{Subreddit: s.Subreddit}
			bySub[s.Subreddit] = sc
		}
		sc.Threads++
		sc.Comments += s.Comments
	}
	r.MeanDepth = float64(depthSum) / float64(len(shapes))
	if total := r.TotalComments + r.TotalOrphans; total > 0 {
		r.OrphanRatio = float64(r.TotalOrphans) / float64(total)
	}

	r.Largest = topShapes(shapes, topN, func(a, b ThreadShape) bool {
		if a.Comments != b.Comments {
			return a.Comments > b.Comments
		}
		return a.LinkID < b.LinkID
	})
	r.Deepest = topShapes(shapes, topN, func(a, b ThreadShape) bool {
		if a.Depth != b.Depth {
			return a.Depth > b.Depth
		}
		return a.LinkID < b.LinkID
	})

	for _, sc := range bySub {
		r.Subreddits = append(r.Subreddits, *sc)
	}
	sort.Slice(r.Subreddits, func(i, j int) bool {
		if r.Subreddits[i].Threads != r.Subreddits[j].Threads {
			return r.Subreddits[i].Threads > r.Subreddits[j].Threads
		}
		return r.Subreddits[i].Subreddit < r.Subreddits[j].Subreddit
	})
	if len(r.Subreddits) > topN {
		r.Subreddits = r.Subreddits[:topN]
	}
	return r
}

func topShapes(shapes []ThreadShape, topN int, less func(a, b ThreadShape) bool) []ThreadShape {
	sorted := make([]ThreadShape, len(shapes))
	copy(sorted, shapes)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

func defaultHistogram() []SizeBucket {
	return []SizeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"}, {Label: "4-7"},
		{Label: "8-15"}, {Label: "16-31"}, {Label: "32-127"}, {Label: "128+"},
	}
}

func sizeBucket(comments int) int {
	switch {
	case comments == 0:
		return 0
	case comments == 1:
		return 1
	case comments <= 3:
		return 2
	case comments <= 7:
		return 3
	case comments <= 15:
		return 4
	case comments <= 31:
		return 5
	case comments <= 127:
		return 6
	default:
		return 7
	}
}
