package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	queryKind   string
	queryTopK   int
	queryMode   string
	queryRerank bool
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search stored content by relevance",
	Long: `Searches the stored content with the best strategy the backend
supports: hybrid first, then pure vector, then keyword. Hits below the
relevance threshold are dropped, so an empty result means nothing
relevant is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryKind, "kind", "k", "text", "content kind: text or image")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 10, "maximum number of results")
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", "", "force a search mode: hybrid, vector or keyword")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "rerank top results with the configured LLM")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.QueryOptions{
		TopK:   queryTopK,
		Mode:   domain.SearchMode(queryMode),
		Rerank: queryRerank,
	}

	hits, err := searchService.Query(cmd.Context(), args[0], parseKindFlag(queryKind), opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, hits)
	}
	return outputQueryTable(cmd, hits)
}

// parseKindFlag maps the --kind flag to a collection kind.
func parseKindFlag(kind string) domain.CollectionKind {
	if kind == string(domain.CollectionImage) {
		return domain.CollectionImage
	}
	return domain.CollectionText
}

func outputQueryJSON(cmd *cobra.Command, hits []domain.RankedHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, hits []domain.RankedHit) error {
	if len(hits) == 0 {
		cmd.Println("No relevant results.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		url := hits[i].Item.URL
		if url == "" {
			url = hits[i].Item.ID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, url, hits[i].Score)
		if snippet := snippetOf(hits[i].Item.Text, 120); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// snippetOf truncates text to at most n runes on a single line.
func snippetOf(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return text
}
