// Package cli provides the cobra command tree for the ragstore binary.
// Commands call the driving ports; the composition root wires concrete
// services in before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// version is the binary version, overridable at build time via ldflags.
var version = "dev"

// verbose enables debug logging for all commands.
var verbose bool

// Services the commands call. Nil services make the dependent commands
// fail with a clear error instead of panicking.
var (
	ingestService  driving.IngestService
	searchService  driving.SearchService
	libraryService driving.LibraryService
	vectorStore    driven.VectorStore
	settingsStore  driven.SettingsStore
)

var rootCmd = &cobra.Command{
	Use:   "ragstore",
	Short: "Content retrieval and storage engine",
	Long: `RagStore stores chunked documents and analysed images in a vector
backend and retrieves them by relevance, recency or natural-language date.

Backends: local (embedded, default), weaviate-cloud, weaviate-local,
milvus and memory.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services aggregates everything the commands need.
type Services struct {
	Ingest   driving.IngestService
	Search   driving.SearchService
	Library  driving.LibraryService
	Store    driven.VectorStore
	Settings driven.SettingsStore
}

// SetServices wires concrete services into the command tree.
// Call before Execute.
func SetServices(s Services) {
	ingestService = s.Ingest
	searchService = s.Search
	libraryService = s.Library
	vectorStore = s.Store
	settingsStore = s.Settings
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
