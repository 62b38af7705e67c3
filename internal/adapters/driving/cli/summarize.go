package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	summarizeKind    string
	summarizeRefresh bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [id]",
	Short: "Show the AI summary for an item",
	Long: `Shows the AI-generated summary for a stored item. The summary is
generated on first access and cached in the item's metadata; later calls
return the cached value without an LLM round trip.

Use --refresh to regenerate the summary even when one is cached.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeKind, "kind", "k", "text", "content kind: text or image")
	summarizeCmd.Flags().BoolVar(&summarizeRefresh, "refresh", false, "regenerate even when a cached summary exists")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	summary, cached, err := libraryService.Summarize(cmd.Context(), parseKindFlag(summarizeKind), args[0], summarizeRefresh)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	if cached {
		cmd.Println("(cached)")
	}
	cmd.Println(summary)
	return nil
}
