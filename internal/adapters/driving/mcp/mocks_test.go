package mcp

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// mockSearch implements driving.SearchService for tests.
type mockSearch struct {
	hits     []domain.RankedHit
	err      error
	lastKind domain.CollectionKind
	lastOpts domain.QueryOptions
}

func (m *mockSearch) Query(_ context.Context, _ string, kind domain.CollectionKind, opts domain.QueryOptions) ([]domain.RankedHit, error) {
	m.lastKind = kind
	m.lastOpts = opts
	return m.hits, m.err
}

// mockLibrary implements driving.LibraryService for tests.
type mockLibrary struct {
	groups  []domain.GroupedView
	tally   domain.DeleteTally
	summary string
	cached  bool
	err     error
}

func (m *mockLibrary) List(_ context.Context, _ domain.CollectionKind, _, _ int, _ string) ([]domain.GroupedView, error) {
	return m.groups, m.err
}

func (m *mockLibrary) Delete(_ context.Context, _ domain.CollectionKind, _ string) (domain.DeleteTally, error) {
	return m.tally, m.err
}

func (m *mockLibrary) Summarize(_ context.Context, _ domain.CollectionKind, _ string, _ bool) (string, bool, error) {
	return m.summary, m.cached, m.err
}

// mockIngest implements driving.IngestService for tests.
type mockIngest struct {
	results []domain.WriteResult
	err     error
}

func (m *mockIngest) IngestText(_ context.Context, _, _ string, _ map[string]any) ([]domain.WriteResult, error) {
	return m.results, m.err
}

func (m *mockIngest) IngestImage(_ context.Context, _ string, _ []byte, _ map[string]any) (domain.WriteResult, error) {
	if len(m.results) > 0 {
		return m.results[0], m.err
	}
	return domain.WriteResult{}, m.err
}
