package mcp

import (
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers relevance queries.
	Search driving.SearchService

	// Library lists, deletes and summarises stored content.
	Library driving.LibraryService

	// Ingest stores new content. Optional: when nil the ingest tool is
	// not registered and the server is read-only.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Library == nil {
		return ErrMissingLibraryService
	}
	return nil
}
