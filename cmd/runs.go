package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"threadweave/internal/db"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List reconstruct runs recorded in the store",
	Long:  `Lists the most recent runs, or shows one run when an id or id prefix is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		var runs []db.Run
		if len(args) == 1 {
			r, err := d.GetRun(args[0])
			if err != nil {
				return err
			}
			runs = []db.Run{*r}
		} else {
			runs, err = d.ListRuns(runsLimit)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}
		}

		if runsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Println(formatRun(r))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func formatRun(r db.Run) string {
	started := time.UnixMilli(r.StartedAt)
	status := "unfinished"
	if r.FinishedAt != nil {
		elapsed := time.Duration(*r.FinishedAt-r.StartedAt) * time.Millisecond
		status = elapsed.Round(time.Millisecond).String()
	}
	return fmt.Sprintf("%s  %s  %-10s threads=%s comments=%s orphans=%s  %s",
		truncID(r.ID), started.UTC().Format("2006-01-02 15:04"), status,
		humanize.Comma(r.SubmissionsEmitted), humanize.Comma(r.CommentsEmitted),
		humanize.Comma(r.Orphans), r.Input)
}
