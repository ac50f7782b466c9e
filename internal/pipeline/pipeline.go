// Package pipeline streams a comment dump through the thread reconstruction
// stages and hands finished threads to a sink.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"threadweave/internal/logger"
	"threadweave/internal/thread"
)

const defaultBufferSize = 16 << 20

// Sink receives finished threads. It is only ever called from one goroutine.
type Sink interface {
	WriteThread(t *thread.Thread) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(t *thread.Thread) error

func (f SinkFunc) WriteThread(t *thread.Thread) error { return f(t) }

// MultiSink writes every thread to each sink in order.
type MultiSink []Sink

func (m MultiSink) WriteThread(t *thread.Thread) error {
	for _, s := range m {
		if err := s.WriteThread(t); err != nil {
			return err
		}
	}
	return nil
}

// Options configures a run.
type Options struct {
	Workers        int  // <= 0 means runtime.NumCPU()
	SortedInput    bool // a new link id closes the previous submission
	MaxSubmissions int  // <= 0 means unlimited
	MinComments    int
	Subreddit      string // case-insensitive filter; empty keeps all
	ReportEvery    int    // progress log interval in lines; <= 0 disables
	BufferSize     int    // longest accepted line in bytes
	Chronological  bool
	Placeholders   []string // nil means thread.DefaultPlaceholders
	Metrics        *Metrics
}

// Stats summarizes a run.
type Stats struct {
	LinesRead           int64 `json:"lines_read"`
	RecordsParsed       int64 `json:"records_parsed"`
	Malformed           int64 `json:"malformed"`
	Skipped             int64 `json:"skipped"`
	SubmissionsSeen     int64 `json:"submissions_seen"`
	SubmissionsEmitted  int64 `json:"submissions_emitted"`
	SubmissionsFiltered int64 `json:"submissions_filtered"`
	CommentsEmitted     int64 `json:"comments_emitted"`
	Removed             int64 `json:"removed"`
	Orphans             int64 `json:"orphans"`
	Cycles              int64 `json:"cycles"`
	Placeholders        int64 `json:"placeholders"`
	Superseded          int64 `json:"superseded"`
	Truncated           bool  `json:"truncated"` // submission cap reached
}

type result struct {
	thread  *thread.Thread
	outcome thread.Outcome
}

// Run reads JSONL comments from in, reconstructs one thread per submission
// and writes the threads that pass the comment threshold to sink. Threads
// are written in completion order, which is first-seen order when Workers
// is 1.
func Run(ctx context.Context, in io.Reader, sink Sink, opts Options) (Stats, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	cfg := thread.Config{
		Build:       thread.BuildOptions{Chronological: opts.Chronological},
		Live:        thread.Liveness(opts.Placeholders),
		MinComments: opts.MinComments,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(workers)
	results := make(chan result, workers)

	var written Stats
	writeDone := make(chan error, 1)
	go func() {
		writeDone <- drain(results, sink, &written, opts.Metrics, cancel)
	}()

	dispatch := func(g *thread.Group) {
		pool.Go(func() error {
			t, out, err := thread.Reconstruct(g, cfg)
			if err != nil && !errors.Is(err, thread.ErrBelowThreshold) {
				return fmt.Errorf("reconstructing %s: %w", g.LinkID, err)
			}
			select {
			case results <- result{thread: t, outcome: out}:
				return nil
			case <-poolCtx.Done():
				return poolCtx.Err()
			}
		})
	}

	read, readErr := readGroups(poolCtx, in, bufSize, opts, dispatch)

	poolErr := pool.Wait()
	close(results)
	writeErr := <-writeDone

	stats := written
	stats.LinesRead = read.LinesRead
	stats.RecordsParsed = read.RecordsParsed
	stats.Malformed = read.Malformed
	stats.Skipped = read.Skipped
	stats.SubmissionsSeen = read.SubmissionsSeen
	stats.Truncated = read.Truncated

	// The first real failure wins over the cancellations it caused.
	for _, err := range []error{writeErr, readErr, poolErr} {
		if err != nil && !errors.Is(err, context.Canceled) {
			return stats, err
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	for _, err := range []error{readErr, poolErr} {
		if err != nil {
			return stats, err
		}
	}
	logger.Info("run complete",
		"lines", humanize.Comma(stats.LinesRead),
		"threads", humanize.Comma(stats.SubmissionsEmitted),
		"filtered", humanize.Comma(stats.SubmissionsFiltered),
		"comments", humanize.Comma(stats.CommentsEmitted),
		"removed", humanize.Comma(stats.Removed),
		"orphans", humanize.Comma(stats.Orphans),
	)
	return stats, nil
}

// readGroups parses the stream, groups records by submission and hands each
// released group to dispatch. It owns the grouper.
func readGroups(ctx context.Context, in io.Reader, bufSize int, opts Options, dispatch func(*thread.Group)) (Stats, error) {
	var st Stats
	grouper := thread.NewGrouper(opts.MaxSubmissions)
	m := opts.Metrics

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), bufSize)

	var current string
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.LinesRead++
		m.line()
		if opts.ReportEvery > 0 && st.LinesRead%int64(opts.ReportEvery) == 0 {
			logger.Info("reading comments",
				"lines", humanize.Comma(st.LinesRead),
				"open_submissions", grouper.Open())
			m.open(grouper.Open())
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := thread.ParseRecord(line)
		if err != nil {
			st.Malformed++
			m.malformedLine()
			logger.Debug("skipping malformed line", "line", st.LinesRead, "error", err)
			continue
		}
		st.RecordsParsed++
		m.parsed()

		if opts.Subreddit != "" && !strings.EqualFold(rec.Subreddit, opts.Subreddit) {
			st.Skipped++
			m.skippedRecord()
			continue
		}

		if opts.SortedInput && current != "" && rec.LinkID != current {
			if g, ok := grouper.Close(current); ok {
				dispatch(g)
			}
		}
		current = rec.LinkID

		if !grouper.Add(rec) {
			st.Truncated = true
			logger.Info("submission cap reached, stopping input",
				"max_submissions", opts.MaxSubmissions, "line", st.LinesRead)
			break
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("line %d longer than %s: %w",
				st.LinesRead+1, humanize.IBytes(uint64(bufSize)), err)
		}
		return st, fmt.Errorf("reading input: %w", err)
	}

	st.SubmissionsSeen = int64(grouper.Seen())
	for _, g := range grouper.Drain() {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		dispatch(g)
	}
	m.open(0)
	return st, nil
}

// drain is the single writer: it merges per-submission outcomes into st and
// writes every unfiltered thread. After a write failure it calls abort and
// keeps receiving so no worker blocks.
func drain(results <-chan result, sink Sink, st *Stats, m *Metrics, abort func()) error {
	var failed error
	for r := range results {
		if failed != nil {
			continue
		}
		o := r.outcome
		st.Removed += int64(o.Removed)
		st.Orphans += int64(o.Orphans())
		st.Cycles += int64(o.Cycles)
		st.Placeholders += int64(o.Placeholders)
		st.Superseded += int64(o.Superseded)
		m.outcome(r)
		if o.Filtered {
			st.SubmissionsFiltered++
			continue
		}
		if err := sink.WriteThread(r.thread); err != nil {
			failed = fmt.Errorf("writing thread %s: %w", r.thread.LinkID, err)
			abort()
			continue
		}
		st.SubmissionsEmitted++
		st.CommentsEmitted += int64(o.Live)
	}
	return failed
}
