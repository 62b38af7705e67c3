package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, domain.CollectionText, parseKind(""))
	assert.Equal(t, domain.CollectionText, parseKind("text"))
	assert.Equal(t, domain.CollectionText, parseKind("bogus"))
	assert.Equal(t, domain.CollectionImage, parseKind("image"))
}

func TestHandleQuery_ReturnsHits(t *testing.T) {
	search := &mockSearch{
		hits: []domain.RankedHit{
			{Item: domain.StoredItem{ID: "a", URL: "https://example.com/doc", Text: "body"}, Score: 0.92},
		},
	}
	server := newTestServer(t, &Ports{Search: search, Library: &mockLibrary{}})

	_, output, err := server.handleQuery(context.Background(), nil, QueryInput{Query: "doc"})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Count)
	assert.Equal(t, "a", output.Results[0].ID)
	assert.InDelta(t, 0.92, output.Results[0].Score, 1e-9)
}

func TestHandleQuery_PassesOptions(t *testing.T) {
	search := &mockSearch{}
	server := newTestServer(t, &Ports{Search: search, Library: &mockLibrary{}})

	_, _, err := server.handleQuery(context.Background(), nil, QueryInput{
		Query:  "q",
		Kind:   "image",
		Limit:  5,
		Mode:   "vector",
		Rerank: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CollectionImage, search.lastKind)
	assert.Equal(t, 5, search.lastOpts.TopK)
	assert.Equal(t, domain.SearchModeVector, search.lastOpts.Mode)
	assert.True(t, search.lastOpts.Rerank)
}

func TestHandleQuery_PropagatesError(t *testing.T) {
	search := &mockSearch{err: errors.New("backend down")}
	server := newTestServer(t, &Ports{Search: search, Library: &mockLibrary{}})

	_, _, err := server.handleQuery(context.Background(), nil, QueryInput{Query: "q"})

	assert.Error(t, err)
}

func TestHandleIngest_CountsResults(t *testing.T) {
	ingest := &mockIngest{
		results: []domain.WriteResult{
			{ID: "1", URL: "u#chunk-0"},
			{ID: "2", URL: "u#chunk-1", Err: errors.New("write failed")},
			{ID: "3", URL: "u#chunk-2"},
		},
	}
	server := newTestServer(t, &Ports{Search: &mockSearch{}, Library: &mockLibrary{}, Ingest: ingest})

	_, output, err := server.handleIngest(context.Background(), nil, IngestInput{URL: "u", Text: "text"})

	require.NoError(t, err)
	assert.Equal(t, 2, output.Stored)
	assert.Equal(t, 1, output.Failed)
	assert.Len(t, output.URLs, 2)
}

func TestHandleList_ReturnsGroups(t *testing.T) {
	library := &mockLibrary{
		groups: []domain.GroupedView{
			{
				Key:      "https://example.com/doc",
				Kind:     domain.CollectionText,
				Metadata: map[string]any{domain.MetaDateAdded: "2025-01-02T10:00:00Z"},
				Items:    []domain.StoredItem{{ID: "a"}, {ID: "b"}},
			},
		},
	}
	server := newTestServer(t, &Ports{Search: &mockSearch{}, Library: library})

	_, output, err := server.handleList(context.Background(), nil, ListInput{})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Count)
	assert.Equal(t, "https://example.com/doc", output.Groups[0].Key)
	assert.Equal(t, 2, output.Groups[0].Members)
	assert.Equal(t, "2025-01-02T10:00:00Z", output.Groups[0].Added)
}

func TestHandleDelete_ReturnsTally(t *testing.T) {
	library := &mockLibrary{
		tally: domain.DeleteTally{Deleted: 4, Failed: 1, FailedIDs: []string{"c3"}},
	}
	server := newTestServer(t, &Ports{Search: &mockSearch{}, Library: library})

	_, output, err := server.handleDelete(context.Background(), nil, DeleteInput{ID: "group"})

	require.NoError(t, err)
	assert.Equal(t, 4, output.Deleted)
	assert.Equal(t, 1, output.Failed)
	assert.Equal(t, []string{"c3"}, output.FailedIDs)
}

func TestHandleSummarize_ReturnsSummary(t *testing.T) {
	library := &mockLibrary{summary: "a short summary", cached: true}
	server := newTestServer(t, &Ports{Search: &mockSearch{}, Library: library})

	_, output, err := server.handleSummarize(context.Background(), nil, SummarizeInput{ID: "a"})

	require.NoError(t, err)
	assert.Equal(t, "a short summary", output.Summary)
	assert.True(t, output.Cached)
}

func TestExtractKind(t *testing.T) {
	assert.Equal(t, "image", extractKind("ragstore://library/image"))
	assert.Equal(t, "text", extractKind("ragstore://library/text"))
	assert.Equal(t, "", extractKind("ragstore://other"))
}
