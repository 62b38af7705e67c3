package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for RagStore resources.
	uriScheme = "ragstore://"

	// resourceListLimit caps how many groups a resource read returns.
	resourceListLimit = 100
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the text library.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "library",
		Name:        "library",
		Description: "Stored text documents grouped into logical documents",
		MIMEType:    "application/json",
	}, s.handleLibraryResource)

	// Template for per-kind libraries.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "library/{kind}",
		Name:        "library-by-kind",
		Description: "Stored documents of one content kind (text or image)",
		MIMEType:    "application/json",
	}, s.handleLibraryKindResource)
}

// handleLibraryResource returns the grouped text library.
func (s *Server) handleLibraryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return s.libraryContents(ctx, req.Params.URI, domain.CollectionText)
}

// handleLibraryKindResource returns the grouped library for one kind.
func (s *Server) handleLibraryKindResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	kind := extractKind(req.Params.URI)
	if kind == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.libraryContents(ctx, req.Params.URI, parseKind(kind))
}

// libraryContents builds the JSON resource body for one library kind.
func (s *Server) libraryContents(
	ctx context.Context,
	uri string,
	kind domain.CollectionKind,
) (*mcp.ReadResourceResult, error) {
	groups, err := s.ports.Library.List(ctx, kind, resourceListLimit, 0, "")
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}

	type groupInfo struct {
		Key     string `json:"key"`
		Members int    `json:"members"`
		Added   string `json:"added,omitempty"`
		Summary string `json:"summary,omitempty"`
	}

	infos := make([]groupInfo, len(groups))
	for i := range groups {
		added, _ := groups[i].Metadata[domain.MetaDateAdded].(string)
		summary, _ := groups[i].Metadata[domain.MetaAISummary].(string)
		infos[i] = groupInfo{
			Key:     groups[i].Key,
			Members: groups[i].MemberCount(),
			Added:   added,
			Summary: summary,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling library: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractKind extracts the kind from a URI like ragstore://library/{kind}.
func extractKind(uri string) string {
	const prefix = uriScheme + "library/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
