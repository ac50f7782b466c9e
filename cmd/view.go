package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"threadweave/internal/render"
)

var (
	viewLinkID       string
	viewIndex        int
	viewMaxBodyChars int
	viewOutput       string
)

var viewCmd = &cobra.Command{
	Use:   "view [threads.jsonl]",
	Short: "Render one reconstructed thread as an indented tree",
	Long: `Renders a thread from a threads JSONL file, or from the store when no file
is given. Select it with --link-id, or by position with --index (zero-based,
blank lines are not counted).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if viewLinkID == "" && viewIndex < 0 {
			return fmt.Errorf("--index must be >= 0")
		}
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		src, err := openThreads(path)
		if err != nil {
			return err
		}
		defer src.close()

		t, err := src.find(viewLinkID, viewIndex)
		if err != nil {
			return err
		}

		text := render.Thread(t, render.Options{MaxBodyChars: viewMaxBodyChars}) + "\n"
		if viewOutput != "" {
			if err := os.WriteFile(viewOutput, []byte(text), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", viewOutput, err)
			}
			fmt.Printf("Wrote %s to %s\n", t.LinkID, viewOutput)
			return nil
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	viewCmd.Flags().StringVar(&viewLinkID, "link-id", "", "Submission to render, e.g. t3_abc123")
	viewCmd.Flags().IntVar(&viewIndex, "index", 0, "Zero-based thread position, used when --link-id is empty")
	viewCmd.Flags().IntVar(&viewMaxBodyChars, "max-body-chars", render.DefaultMaxBodyChars, "Truncate comment bodies to this many characters")
	viewCmd.Flags().StringVarP(&viewOutput, "output", "o", "", "Write the rendering to a file instead of stdout")
	rootCmd.AddCommand(viewCmd)
}
