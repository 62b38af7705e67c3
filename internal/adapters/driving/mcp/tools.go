package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query  string `json:"query" jsonschema:"the search query"`
	Kind   string `json:"kind,omitempty" jsonschema:"content kind to search: text or image (default text)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Mode   string `json:"mode,omitempty" jsonschema:"search mode: hybrid, vector or keyword (default: best available)"`
	Rerank bool   `json:"rerank,omitempty" jsonschema:"rerank the top results with the configured LLM"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results"`
	Count   int                 `json:"count"`
}

// QueryResultOutput represents a single search hit.
type QueryResultOutput struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	URL      string         `json:"url" jsonschema:"the source URL or identifier for the content"`
	Text     string         `json:"text" jsonschema:"the text content to chunk and store"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"additional metadata to store with each chunk"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Stored int      `json:"stored"`
	Failed int      `json:"failed"`
	URLs   []string `json:"urls"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	Kind   string `json:"kind,omitempty" jsonschema:"content kind to list: text or image (default text)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of groups to return (default 20)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of groups to skip"`
	Date   string `json:"date,omitempty" jsonschema:"natural-language date filter, e.g. yesterday, last week, 3 days ago"`
}

// ListOutput is the output schema for the list tool.
type ListOutput struct {
	Groups []GroupOutput `json:"groups"`
	Count  int           `json:"count"`
}

// GroupOutput represents one grouped logical document.
type GroupOutput struct {
	Key     string `json:"key"`
	Members int    `json:"members"`
	Added   string `json:"added,omitempty"`
}

// DeleteInput is the input schema for the delete tool.
type DeleteInput struct {
	ID   string `json:"id" jsonschema:"item ID or group key to delete"`
	Kind string `json:"kind,omitempty" jsonschema:"content kind: text or image (default text)"`
}

// DeleteOutput is the output schema for the delete tool.
type DeleteOutput struct {
	Deleted   int      `json:"deleted"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct {
	ID      string `json:"id" jsonschema:"the item ID to summarise"`
	Kind    string `json:"kind,omitempty" jsonschema:"content kind: text or image (default text)"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"regenerate the summary even if one is cached"`
}

// SummarizeOutput is the output schema for the summarize tool.
type SummarizeOutput struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
}

// parseKind maps the optional kind argument to a collection kind.
func parseKind(kind string) domain.CollectionKind {
	if kind == string(domain.CollectionImage) {
		return domain.CollectionImage
	}
	return domain.CollectionText
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Search stored content by relevance",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list",
		Description: "List stored content grouped into logical documents, newest first",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete",
		Description: "Delete an item by ID or a whole document group by group key",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize",
		Description: "Get an AI summary of a stored item, generating it on first access",
	}, s.handleSummarize)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Chunk and store text content under a source URL",
		}, s.handleIngest)
	}
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := domain.QueryOptions{
		TopK:   input.Limit,
		Mode:   domain.SearchMode(input.Mode),
		Rerank: input.Rerank,
	}

	hits, err := s.ports.Search.Query(ctx, input.Query, parseKind(input.Kind), opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]QueryResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		output.Results[i] = QueryResultOutput{
			ID:      hits[i].Item.ID,
			URL:     hits[i].Item.URL,
			Score:   hits[i].Score,
			Content: hits[i].Item.Text,
		}
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	results, err := s.ports.Ingest.IngestText(ctx, input.URL, input.Text, input.Metadata)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	output := IngestOutput{}
	for _, r := range results {
		if r.Err != nil {
			output.Failed++
			continue
		}
		output.Stored++
		output.URLs = append(output.URLs, r.URL)
	}
	return nil, output, nil
}

// handleList handles the list tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	groups, err := s.ports.Library.List(ctx, parseKind(input.Kind), input.Limit, input.Offset, input.Date)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Groups: make([]GroupOutput, len(groups)),
		Count:  len(groups),
	}
	for i := range groups {
		added, _ := groups[i].Metadata[domain.MetaDateAdded].(string)
		output.Groups[i] = GroupOutput{
			Key:     groups[i].Key,
			Members: groups[i].MemberCount(),
			Added:   added,
		}
	}
	return nil, output, nil
}

// handleDelete handles the delete tool invocation.
func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	tally, err := s.ports.Library.Delete(ctx, parseKind(input.Kind), input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	return nil, DeleteOutput{
		Deleted:   tally.Deleted,
		Failed:    tally.Failed,
		FailedIDs: tally.FailedIDs,
	}, nil
}

// handleSummarize handles the summarize tool invocation.
func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, SummarizeOutput, error) {
	summary, cached, err := s.ports.Library.Summarize(ctx, parseKind(input.Kind), input.ID, input.Refresh)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}

	return nil, SummarizeOutput{Summary: summary, Cached: cached}, nil
}
