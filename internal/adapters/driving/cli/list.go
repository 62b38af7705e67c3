package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	listKind   string
	listLimit  int
	listOffset int
	listSince  string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored content grouped by source",
	Long: `Lists stored items grouped by their source document, newest first.
Chunks of one document appear as a single group; PDF page images are
grouped by their source PDF.

The --since flag accepts natural-language date expressions:
  ragstore list --since today
  ragstore list --since "last week"
  ragstore list --since "3 days ago"`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "text", "content kind: text or image")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of groups")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "number of groups to skip")
	listCmd.Flags().StringVar(&listSince, "since", "", "natural-language date filter")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output groups as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	groups, err := libraryService.List(cmd.Context(), parseKindFlag(listKind), listLimit, listOffset, listSince)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		return outputListJSON(cmd, groups)
	}
	return outputListTable(cmd, groups)
}

// listGroup is the JSON shape for one group.
type listGroup struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Members int    `json:"members"`
	Added   string `json:"added,omitempty"`
	Summary string `json:"summary,omitempty"`
}

func listGroupOf(g domain.GroupedView) listGroup {
	out := listGroup{
		Key:     g.Key,
		Kind:    string(g.Kind),
		Members: g.MemberCount(),
	}
	if added, ok := g.Metadata[domain.MetaDateAdded].(string); ok {
		out.Added = added
	}
	if summary, ok := g.Metadata[domain.MetaAISummary].(string); ok {
		out.Summary = summary
	}
	return out
}

func outputListJSON(cmd *cobra.Command, groups []domain.GroupedView) error {
	out := make([]listGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, listGroupOf(g))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal groups: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputListTable(cmd *cobra.Command, groups []domain.GroupedView) error {
	if len(groups) == 0 {
		cmd.Println("No stored content.")
		return nil
	}

	cmd.Printf("%d group(s):\n\n", len(groups))
	for _, g := range groups {
		cmd.Printf("  %s (%d item(s))\n", g.Key, g.MemberCount())
		if added, ok := g.Metadata[domain.MetaDateAdded].(string); ok {
			cmd.Printf("      added %s\n", formatAdded(added))
		}
		if summary, ok := g.Metadata[domain.MetaAISummary].(string); ok && summary != "" {
			cmd.Printf("      %s\n", snippetOf(summary, 120))
		}
		cmd.Println()
	}
	return nil
}

// formatAdded renders an RFC 3339 timestamp in a compact local form,
// passing unparseable values through untouched.
func formatAdded(added string) string {
	t, err := time.Parse(time.RFC3339, added)
	if err != nil {
		return added
	}
	return t.Local().Format("2006-01-02 15:04")
}
