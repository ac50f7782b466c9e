package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"threadweave/internal/config"
	"threadweave/internal/db"
	"threadweave/internal/dump"
	"threadweave/internal/logger"
	"threadweave/internal/pipeline"
)

var (
	reconSubreddit       string
	reconMaxThreads      int
	reconMinComments     int
	reconReportEvery     int
	reconWorkers         int
	reconSortedInput     bool
	reconChronological   bool
	reconPlaceholders    []string
	reconBufferSize      string
	reconNoStore         bool
	reconMetricsTextfile string
	reconMetricsAddr     string
	reconJSON            bool
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <comments.jsonl> <threads.jsonl>",
	Short: "Rebuild reply trees from a flat comment dump",
	Long: `Reads one JSON comment per line (.gz and .zst are decompressed, "-" is
stdin), groups comments by submission, rebuilds each reply tree, prunes
deleted and removed comments while keeping their live replies, and writes one
JSON thread per line ("-" is stdout; .gz and .zst are compressed).

When a store is configured (--db, THREADWEAVE_DB or store.path) every thread
is also saved there together with a run ledger entry.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyReconstructFlags(cmd, &cfg.Reconstruct); err != nil {
			return err
		}
		if cmd.Flags().Changed("buffer-size") {
			size, err := config.ParseSize(reconBufferSize)
			if err != nil {
				return fmt.Errorf("--buffer-size: %w", err)
			}
			cfg.Reader.BufferSize = size
		}
		if cmd.Flags().Changed("metrics-textfile") {
			cfg.Metrics.Textfile = reconMetricsTextfile
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runReconstruct(ctx, args[0], args[1])
	},
}

func init() {
	f := reconstructCmd.Flags()
	f.StringVar(&reconSubreddit, "subreddit", "", "Only keep comments from this subreddit (case-insensitive)")
	f.IntVar(&reconMaxThreads, "max-threads", 0, "Stop reading after this many submissions (0 = unlimited)")
	f.IntVar(&reconMinComments, "min-comments", 0, "Drop threads with fewer surviving comments")
	f.IntVar(&reconReportEvery, "report-every", 250_000, "Log progress every N input lines (0 = off)")
	f.IntVar(&reconWorkers, "workers", 0, "Concurrent tree builders (0 = one per CPU)")
	f.BoolVar(&reconSortedInput, "sorted-input", false, "Input is grouped by link_id; release each submission as soon as it ends")
	f.BoolVar(&reconChronological, "chronological", true, "Order roots and replies by created_utc, then id")
	f.StringSliceVar(&reconPlaceholders, "placeholder", nil, "Body text marking a dead comment (repeatable)")
	f.StringVar(&reconBufferSize, "buffer-size", "", "Longest accepted input line, e.g. 16MiB")
	f.BoolVar(&reconNoStore, "no-store", false, "Do not save threads to the configured store")
	f.StringVar(&reconMetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file when done")
	f.StringVar(&reconMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running, e.g. :9102")
	f.BoolVar(&reconJSON, "json", false, "Print run statistics as JSON")
	rootCmd.AddCommand(reconstructCmd)
}

// applyReconstructFlags copies explicitly set flags over the loaded config.
func applyReconstructFlags(cmd *cobra.Command, rc *config.ReconstructConfig) error {
	flags := cmd.Flags()
	if flags.Changed("subreddit") {
		rc.Subreddit = reconSubreddit
	}
	if flags.Changed("max-threads") {
		rc.MaxThreads = reconMaxThreads
	}
	if flags.Changed("min-comments") {
		rc.MinComments = reconMinComments
	}
	if flags.Changed("report-every") {
		rc.ReportEvery = reconReportEvery
	}
	if flags.Changed("workers") {
		rc.Workers = reconWorkers
	}
	if flags.Changed("sorted-input") {
		rc.SortedInput = reconSortedInput
	}
	if flags.Changed("chronological") {
		rc.Chronological = reconChronological
	}
	if flags.Changed("placeholder") {
		if len(reconPlaceholders) == 0 {
			return fmt.Errorf("--placeholder needs at least one value")
		}
		rc.Placeholders = append([]string(nil), reconPlaceholders...)
	}
	return nil
}

// pipelineOptions maps the config onto a pipeline run.
func pipelineOptions(c *config.Config, m *pipeline.Metrics) pipeline.Options {
	r := c.Reconstruct
	return pipeline.Options{
		Workers:        r.Workers,
		SortedInput:    r.SortedInput,
		MaxSubmissions: r.MaxThreads,
		MinComments:    r.MinComments,
		Subreddit:      r.Subreddit,
		ReportEvery:    r.ReportEvery,
		BufferSize:     int(c.Reader.BufferSize),
		Chronological:  r.Chronological,
		Placeholders:   r.Placeholders,
		Metrics:        m,
	}
}

func runReconstruct(ctx context.Context, input, output string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := dump.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := dump.Create(output)
	if err != nil {
		return err
	}
	writer := dump.NewThreadWriter(out)
	sinks := pipeline.MultiSink{writer}

	var store *db.DB
	var run db.Run
	if cfg.Store.Path != "" && !reconNoStore {
		store, err = db.OpenDB(cfg.Store.Path)
		if err != nil {
			out.Close()
			return err
		}
		defer store.Close()
		run = db.NewRun(input)
		if err := store.SaveRun(run); err != nil {
			out.Close()
			return err
		}
		sinks = append(sinks, &db.ThreadSink{DB: store, RunID: run.ID})
	}

	metrics := pipeline.NewMetrics()
	if reconMetricsAddr != "" {
		srv := serveMetrics(reconMetricsAddr, metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("reconstructing threads", "input", input, "output", output,
		"workers", cfg.Reconstruct.Workers, "sorted_input", cfg.Reconstruct.SortedInput)
	stats, runErr := pipeline.Run(ctx, in, sinks, pipelineOptions(cfg, metrics))

	// Whatever was written before a failure is flushed so the output stays
	// line-complete.
	flushErr := writer.Flush()
	closeErr := out.Close()

	if store != nil {
		finished := time.Now().UnixMilli()
		run.FinishedAt = &finished
		recordStats(&run, stats)
		if err := store.SaveRun(run); err != nil {
			logger.Warn("saving run ledger failed", "run", run.ID, "error", err)
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("writing metrics failed", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("reconstruct: %w", runErr)
	}
	if flushErr != nil {
		return fmt.Errorf("writing %s: %w", output, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", output, closeErr)
	}

	// Keep stdout clean for the threads when they are streamed there.
	summary := io.Writer(os.Stdout)
	if output == dump.Stdio {
		summary = os.Stderr
	}
	if reconJSON {
		enc := json.NewEncoder(summary)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID string `json:"run_id,omitempty"`
			pipeline.Stats
		}{run.ID, stats})
	}
	printRunSummary(summary, output, stats)
	if store != nil {
		fmt.Fprintf(summary, "  run %s saved to %s\n", truncID(run.ID), store.Path)
	}
	return nil
}

func serveMetrics(addr string, m *pipeline.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func recordStats(r *db.Run, s pipeline.Stats) {
	r.LinesRead = s.LinesRead
	r.RecordsParsed = s.RecordsParsed
	r.Malformed = s.Malformed
	r.Skipped = s.Skipped
	r.SubmissionsSeen = s.SubmissionsSeen
	r.SubmissionsEmitted = s.SubmissionsEmitted
	r.SubmissionsFiltered = s.SubmissionsFiltered
	r.CommentsEmitted = s.CommentsEmitted
	r.Removed = s.Removed
	r.Orphans = s.Orphans
	r.Cycles = s.Cycles
}

func printRunSummary(w io.Writer, output string, s pipeline.Stats) {
	fmt.Fprintf(w, "Wrote %s threads (%s comments) to %s\n",
		humanize.Comma(s.SubmissionsEmitted), humanize.Comma(s.CommentsEmitted), output)
	fmt.Fprintf(w, "  lines=%s parsed=%s malformed=%s skipped=%s\n",
		humanize.Comma(s.LinesRead), humanize.Comma(s.RecordsParsed),
		humanize.Comma(s.Malformed), humanize.Comma(s.Skipped))
	fmt.Fprintf(w, "  submissions=%s filtered=%s removed=%s orphans=%s cycles=%d\n",
		humanize.Comma(s.SubmissionsSeen), humanize.Comma(s.SubmissionsFiltered),
		humanize.Comma(s.Removed), humanize.Comma(s.Orphans), s.Cycles)
	if s.Truncated {
		fmt.Fprintln(w, "  stopped early: --max-threads reached")
	}
}
