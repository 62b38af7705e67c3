// Package mcp provides an MCP (Model Context Protocol) server adapter for
// RagStore. It lets AI assistants ingest, query and manage stored content
// directly over stdio or HTTP.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingLibraryService is returned when the library service is not provided.
var ErrMissingLibraryService = errors.New("mcp: library service is required")
