package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteKind string

var deleteCmd = &cobra.Command{
	Use:   "delete [id-or-group]",
	Short: "Delete an item or a whole group",
	Long: `Deletes a single item by ID, or every member of a group by its
group key (the base URL without chunk suffix, or the source PDF name).

Group deletion continues past individual failures and reports which
members could not be removed so the remainder can be retried.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteKind, "kind", "k", "text", "content kind: text or image")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	tally, err := libraryService.Delete(cmd.Context(), parseKindFlag(deleteKind), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Println(tally.String())
	if tally.Failed > 0 {
		return fmt.Errorf("%d member(s) could not be deleted", tally.Failed)
	}
	return nil
}
