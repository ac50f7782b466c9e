package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"threadweave/internal/corpus"
	"threadweave/internal/dump"
	"threadweave/internal/logger"
	"threadweave/internal/thread"
)

var (
	corpusMinComments int
	corpusMaxDocs     int
	corpusReportEvery int
)

var corpusCmd = &cobra.Command{
	Use:   "corpus [threads.jsonl] <docs.jsonl>",
	Short: "Flatten threads into one text document per submission",
	Long: `Writes one JSON document per thread holding the thread summary and the
comment text in depth-first order. Reads a threads JSONL file, or the store
when only the output is given. "-" writes to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, output := "", args[0]
		if len(args) == 2 {
			path, output = args[0], args[1]
		}

		src, err := openThreads(path)
		if err != nil {
			return err
		}
		defer src.close()

		out, err := dump.Create(output)
		if err != nil {
			return err
		}
		bw := bufio.NewWriterSize(out, 1<<20)
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)

		opts := corpus.Options{MinComments: corpusMinComments}
		seen, docs := 0, 0
		err = src.each(func(t *thread.Thread, index int) (bool, error) {
			seen++
			if corpusReportEvery > 0 && seen%corpusReportEvery == 0 {
				logger.Info("building corpus",
					"threads", humanize.Comma(int64(seen)), "documents", humanize.Comma(int64(docs)))
			}
			doc, ok := corpus.Build(t, opts)
			if !ok {
				return true, nil
			}
			if err := enc.Encode(doc); err != nil {
				return false, fmt.Errorf("writing document %s: %w", t.LinkID, err)
			}
			docs++
			return corpusMaxDocs <= 0 || docs < corpusMaxDocs, nil
		})
		if err != nil {
			out.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			out.Close()
			return fmt.Errorf("writing %s: %w", output, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", output, err)
		}

		logger.Info("corpus complete", "threads", seen, "documents", docs, "output", output)
		if output != dump.Stdio {
			fmt.Printf("Wrote %s documents from %s threads to %s\n",
				humanize.Comma(int64(docs)), humanize.Comma(int64(seen)), output)
		}
		return nil
	},
}

func init() {
	corpusCmd.Flags().IntVar(&corpusMinComments, "min-comments", corpus.DefaultMinComments, "Skip threads with fewer comments")
	corpusCmd.Flags().IntVar(&corpusMaxDocs, "max-docs", 0, "Stop after this many documents (0 = all)")
	corpusCmd.Flags().IntVar(&corpusReportEvery, "report-every", 5000, "Log progress every N threads (0 = off)")
	rootCmd.AddCommand(corpusCmd)
}
