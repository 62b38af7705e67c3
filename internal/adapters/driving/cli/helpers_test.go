package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// mockSearchService returns one canned hit for any query.
type mockSearchService struct {
	lastOpts domain.QueryOptions
}

func (m *mockSearchService) Query(_ context.Context, _ string, _ domain.CollectionKind, opts domain.QueryOptions) ([]domain.RankedHit, error) {
	m.lastOpts = opts
	return []domain.RankedHit{
		{
			Item: domain.StoredItem{
				ID:   "item-1",
				URL:  "https://example.com/doc#chunk-0",
				Text: "Mock result text",
			},
			Score: 0.95,
		},
	}, nil
}

type mockSearchServiceError struct{}

func (m *mockSearchServiceError) Query(context.Context, string, domain.CollectionKind, domain.QueryOptions) ([]domain.RankedHit, error) {
	return nil, errors.New("backend down")
}

type mockIngestService struct{}

func (m *mockIngestService) IngestText(_ context.Context, url, _ string, _ map[string]any) ([]domain.WriteResult, error) {
	return []domain.WriteResult{{ID: "item-1", URL: url}}, nil
}

func (m *mockIngestService) IngestImage(_ context.Context, url string, _ []byte, _ map[string]any) (domain.WriteResult, error) {
	return domain.WriteResult{ID: "img-1", URL: url}, nil
}

type mockLibraryService struct{}

func (m *mockLibraryService) List(context.Context, domain.CollectionKind, int, int, string) ([]domain.GroupedView, error) {
	return []domain.GroupedView{
		{
			Key:  "https://example.com/doc",
			Kind: domain.CollectionText,
			Metadata: map[string]any{
				domain.MetaDateAdded: "2025-01-10T12:00:00Z",
				domain.MetaAISummary: "A mock summary.",
			},
			Items: []domain.StoredItem{{ID: "item-1"}, {ID: "item-2"}},
		},
	}, nil
}

func (m *mockLibraryService) Delete(context.Context, domain.CollectionKind, string) (domain.DeleteTally, error) {
	return domain.DeleteTally{Deleted: 2}, nil
}

func (m *mockLibraryService) Summarize(context.Context, domain.CollectionKind, string, bool) (string, bool, error) {
	return "A mock summary.", true, nil
}

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	oldIngest := ingestService
	oldSearch := searchService
	oldLibrary := libraryService

	ingestService = &mockIngestService{}
	searchService = &mockSearchService{}
	libraryService = &mockLibraryService{}

	return func() {
		ingestService = oldIngest
		searchService = oldSearch
		libraryService = oldLibrary
	}
}
