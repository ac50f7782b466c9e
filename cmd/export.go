package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"threadweave/internal/logger"
	"threadweave/internal/render"
	"threadweave/internal/thread"
)

var (
	exportLimit        int
	exportMaxBodyChars int
)

var exportCmd = &cobra.Command{
	Use:   "export [threads.jsonl] <out-dir>",
	Short: "Render every thread into its own text file",
	Long: `Writes one rendered tree per thread to <out-dir>/NNNNNN_<link_id>.txt, reading
from a threads JSONL file or, with only <out-dir> given, from the store.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, outDir := "", args[0]
		if len(args) == 2 {
			path, outDir = args[0], args[1]
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", outDir, err)
		}

		src, err := openThreads(path)
		if err != nil {
			return err
		}
		defer src.close()

		opts := render.Options{MaxBodyChars: exportMaxBodyChars}
		written := 0
		err = src.each(func(t *thread.Thread, index int) (bool, error) {
			if exportLimit > 0 && written >= exportLimit {
				return false, nil
			}
			name := exportFilename(index, t.LinkID)
			body := render.Thread(t, opts) + "\n"
			if err := os.WriteFile(filepath.Join(outDir, name), []byte(body), 0o644); err != nil {
				return false, fmt.Errorf("writing %s: %w", name, err)
			}
			written++
			if written%1000 == 0 {
				logger.Info("exporting threads", "written", humanize.Comma(int64(written)))
			}
			return true, nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("Exported %s threads from %s to %s\n", humanize.Comma(int64(written)), src.name, outDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Export at most this many threads (0 = all)")
	exportCmd.Flags().IntVar(&exportMaxBodyChars, "max-body-chars", render.DefaultMaxBodyChars, "Truncate comment bodies to this many characters")
	rootCmd.AddCommand(exportCmd)
}

// exportFilename keeps files in input order when listed.
func exportFilename(index int, linkID string) string {
	return fmt.Sprintf("%06d_%s.txt", index, render.SanitizeFilename(linkID))
}
