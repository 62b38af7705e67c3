package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initialise the configured backend",
	Long: `Ensures the configured vector backend has the expected collections
and schema. Setup is idempotent: running it against an already
initialised backend is a no-op.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	if vectorStore == nil {
		return errors.New("vector store not configured")
	}

	if err := vectorStore.Setup(cmd.Context()); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	cmd.Printf("Backend %q initialised.\n", vectorStore.Name())
	if settingsStore != nil {
		cmd.Printf("Settings: %s\n", settingsStore.Path())
	}
	return nil
}
