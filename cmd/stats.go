package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"threadweave/internal/graph"
	"threadweave/internal/thread"
)

var (
	statsJSON      bool
	statsTopN      int
	statsSubreddit string
)

var statsCmd = &cobra.Command{
	Use:   "stats [threads.jsonl]",
	Short: "Summarize thread shapes: sizes, depth, fan-out, orphans",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		src, err := openThreads(path)
		if err != nil {
			return err
		}
		defer src.close()

		var shapes []graph.ThreadShape
		err = src.each(func(t *thread.Thread, index int) (bool, error) {
			if statsSubreddit != "" && !strings.EqualFold(t.Subreddit, statsSubreddit) {
				return true, nil
			}
			shapes = append(shapes, t.Shape())
			return true, nil
		})
		if err != nil {
			return fmt.Errorf("loading threads: %w", err)
		}

		report := graph.ComputeShape(shapes, statsTopN)

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printShapeReport(report, src.name)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().IntVar(&statsTopN, "top-n", 10, "Number of top items to show per section")
	statsCmd.Flags().StringVar(&statsSubreddit, "subreddit", "", "Only include threads from this subreddit")
	rootCmd.AddCommand(statsCmd)
}

func printShapeReport(r *graph.ShapeReport, source string) {
	fmt.Printf("\n  Threads in %s\n", source)
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Threads: %s  Comments: %s  Empty: %s\n",
		humanize.Comma(int64(r.TotalThreads)), humanize.Comma(int64(r.TotalComments)),
		humanize.Comma(int64(r.EmptyThreads)))
	fmt.Printf("  Depth: max %d  mean %.2f\n", r.MaxDepth, r.MeanDepth)

	barLen := int(r.OrphanRatio * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("  Orphans: %s (%.1f%%)  [%s]\n", humanize.Comma(int64(r.TotalOrphans)), r.OrphanRatio*100, bar)

	if r.TotalThreads == 0 {
		fmt.Println()
		return
	}

	fmt.Println("\n  Thread size (comments):")
	for _, b := range r.SizeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Printf("    %6s: %6d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(r.Largest) > 0 {
		fmt.Println("\n  LARGEST")
		fmt.Println("  ────────────────────────────────────────")
		for _, s := range r.Largest {
			fmt.Printf("    %-12s comments=%d roots=%d depth=%d fan-out=%d  r/%s\n",
				s.LinkID, s.Comments, s.Roots, s.Depth, s.MaxFanOut, truncTitle(s.Subreddit, 30))
		}
	}

	if len(r.Deepest) > 0 {
		fmt.Println("\n  DEEPEST")
		fmt.Println("  ────────────────────────────────────────")
		for _, s := range r.Deepest {
			fmt.Printf("    %-12s depth=%d comments=%d  r/%s\n",
				s.LinkID, s.Depth, s.Comments, truncTitle(s.Subreddit, 30))
		}
	}

	if len(r.Subreddits) > 1 {
		fmt.Println("\n  SUBREDDITS")
		fmt.Println("  ────────────────────────────────────────")
		for _, sc := range r.Subreddits {
			fmt.Printf("    %-30s threads=%d comments=%d\n", truncTitle(sc.Subreddit, 30), sc.Threads, sc.Comments)
		}
	}

	fmt.Println()
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to the start of a rune.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
