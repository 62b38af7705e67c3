package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Cleanup() }) //nolint:errcheck
	return s
}

func writeFixtures(t *testing.T, s *Store) {
	t.Helper()
	results := s.Write(context.Background(), "docs", []domain.StoredItem{
		{
			ID:        "go",
			URL:       "https://example.com/go",
			Text:      "Go concurrency patterns with goroutines and channels",
			Embedding: []float32{1, 0, 0},
			Metadata:  map[string]any{domain.MetaDateAdded: "2025-01-09T00:00:00Z"},
		},
		{
			ID:        "rust",
			URL:       "https://example.com/rust",
			Text:      "Rust ownership and borrowing rules",
			Embedding: []float32{0, 1, 0},
			Metadata:  map[string]any{domain.MetaDateAdded: "2025-01-10T00:00:00Z"},
		},
	})
	for _, r := range results {
		require.NoError(t, r.Err)
	}
}

func TestStore_WriteGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	results := s.Write(context.Background(), "images", []domain.StoredItem{{
		ID:        "img-1",
		URL:       "photo.png",
		Image:     []byte{0x89, 0x50, 0x4e},
		Embedding: []float32{0.25, -0.75},
		Metadata: map[string]any{
			domain.MetaClassification: "screenshot",
			domain.MetaDateAdded:      "2025-01-10T00:00:00Z",
		},
	}})
	require.NoError(t, results[0].Err)

	item, err := s.Get(context.Background(), "images", "img-1")
	require.NoError(t, err)
	assert.Equal(t, "photo.png", item.URL)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e}, item.Image)
	assert.Equal(t, []float32{0.25, -0.75}, item.Embedding)
	assert.Equal(t, "screenshot", item.Metadata[domain.MetaClassification])
}

func TestStore_Get_WrongCollection(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	_, err := s.Get(context.Background(), "images", "go")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Write_Upserts(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	results := s.Write(context.Background(), "docs", []domain.StoredItem{{
		ID:       "go",
		URL:      "https://example.com/go",
		Text:     "rewritten content",
		Metadata: map[string]any{domain.MetaDateAdded: "2025-01-11T00:00:00Z"},
	}})
	require.NoError(t, results[0].Err)

	item, err := s.Get(context.Background(), "docs", "go")
	require.NoError(t, err)
	assert.Equal(t, "rewritten content", item.Text)

	items, err := s.List(context.Background(), "docs", 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2, "upsert does not duplicate")
}

func TestStore_List_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	items, err := s.List(context.Background(), "docs", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "rust", items[0].ID, "2025-01-10 sorts before 2025-01-09")

	page, err := s.List(context.Background(), "docs", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "go", page[0].ID)
}

func TestStore_VectorSearch(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	hits, err := s.Search(context.Background(), "docs", domain.SearchQuery{
		Vector: []float32{1, 0, 0}, TopK: 10, Mode: domain.SearchModeVector,
	})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "go", hits[0].Item.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)
}

func TestStore_KeywordSearch(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	hits, err := s.Search(context.Background(), "docs", domain.SearchQuery{
		Text: "goroutines", TopK: 10, Mode: domain.SearchModeKeyword,
	})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "go", hits[0].Item.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6, "top hit normalises to 1")
}

func TestStore_HybridSearch(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	// Vector favours rust, keywords favour go; both show up blended.
	hits, err := s.Search(context.Background(), "docs", domain.SearchQuery{
		Text:   "goroutines channels",
		Vector: []float32{0, 1, 0},
		TopK:   10,
		Mode:   domain.SearchModeHybrid,
	})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Greater(t, hit.Score, 0.0)
		assert.LessOrEqual(t, hit.Score, 1.0)
	}
	// rust: 0.75 * 1.0 vector; go: 0.75 * 0.5 vector + 0.25 * 1.0 keyword.
	assert.Equal(t, "rust", hits[0].Item.ID)
}

func TestStore_Search_InvalidMode(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Search(context.Background(), "docs", domain.SearchQuery{
		Mode: domain.SearchMode("psychic"),
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedMode)
}

func TestStore_Setup_RebuildsKeywordIndexFromDisk(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir)
	require.NoError(t, err)
	writeFixtures(t, first)
	require.NoError(t, first.Cleanup())

	// A fresh process starts with empty in-memory indexes; Setup
	// repopulates them from SQLite.
	second, err := New(dir)
	require.NoError(t, err)
	defer second.Cleanup() //nolint:errcheck

	require.NoError(t, second.Setup(context.Background()))

	hits, err := second.Search(context.Background(), "docs", domain.SearchQuery{
		Text: "borrowing", TopK: 10, Mode: domain.SearchModeKeyword,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rust", hits[0].Item.ID)
}

func TestStore_UpdateMetadata(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	err := s.UpdateMetadata(context.Background(), "docs", "go",
		map[string]any{domain.MetaAISummary: "a summary"})
	require.NoError(t, err)

	item, err := s.Get(context.Background(), "docs", "go")
	require.NoError(t, err)
	assert.Equal(t, "a summary", item.Metadata[domain.MetaAISummary])
	assert.Equal(t, "2025-01-09T00:00:00Z", item.Metadata[domain.MetaDateAdded], "existing keys survive")

	err = s.UpdateMetadata(context.Background(), "docs", "ghost", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	writeFixtures(t, s)

	require.NoError(t, s.Delete(context.Background(), "docs", "go"))
	require.NoError(t, s.Delete(context.Background(), "docs", "go"), "absent ID is not an error")

	_, err := s.Get(context.Background(), "docs", "go")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The keyword index no longer returns the deleted item.
	hits, err := s.Search(context.Background(), "docs", domain.SearchQuery{
		Text: "goroutines", TopK: 10, Mode: domain.SearchModeKeyword,
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_DeleteByPrefix(t *testing.T) {
	s := newTestStore(t)
	results := s.Write(context.Background(), "docs", []domain.StoredItem{
		{ID: "a0", URL: "https://example.com/a#chunk-0", Metadata: map[string]any{}},
		{ID: "a1", URL: "https://example.com/a#chunk-1", Metadata: map[string]any{}},
		{ID: "b", URL: "https://example.com/b", Metadata: map[string]any{}},
	})
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	deleted, err := s.DeleteByPrefix(context.Background(), "docs", "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	items, err := s.List(context.Background(), "docs", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestStore_DeleteByPrefix_EscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	results := s.Write(context.Background(), "docs", []domain.StoredItem{
		{ID: "literal", URL: "a_b%c", Metadata: map[string]any{}},
		{ID: "other", URL: "aXbYc", Metadata: map[string]any{}},
	})
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	deleted, err := s.DeleteByPrefix(context.Background(), "docs", "a_b%")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted, "LIKE wildcards in the prefix are literal")

	_, err = s.Get(context.Background(), "docs", "other")
	assert.NoError(t, err)
}

func TestFloat32SliceRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.14159}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
