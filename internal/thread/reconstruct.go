package thread

import "errors"

// Config bundles the per-submission settings of the reconstruction.
type Config struct {
	Build       BuildOptions
	Live        LivenessFunc // nil means Liveness(DefaultPlaceholders)
	MinComments int
}

// Outcome is the accounting of one reconstructed submission.
type Outcome struct {
	Records      int
	Placeholders int
	Superseded   int
	Live         int
	Removed      int
	Unresolved   int
	Cycles       int
	Stranded     int
	Filtered     bool
}

// Orphans is the total of unconnected comments.
func (o Outcome) Orphans() int {
	return o.Unresolved + o.Cycles + o.Stranded
}

// Reconstruct runs build, compaction and aggregation for one submission.
// A filtered submission returns its thread, Outcome.Filtered set, and
// ErrBelowThreshold.
func Reconstruct(g *Group, cfg Config) (*Thread, Outcome, error) {
	live := cfg.Live
	if live == nil {
		live = Liveness(nil)
	}

	f := Build(g, cfg.Build)
	f.Roots, f.Removed = Compact(f.Roots, live)

	t, err := Aggregate(f, AggregateOptions{MinComments: cfg.MinComments})
	out := Outcome{
		Records:      f.Records,
		Placeholders: f.Placeholders,
		Superseded:   f.Superseded,
		Live:         t.CommentCount,
		Removed:      f.Removed,
		Unresolved:   f.Unresolved,
		Cycles:       f.Cycles,
		Stranded:     f.Stranded,
		Filtered:     errors.Is(err, ErrBelowThreshold),
	}
	return t, out, err
}
