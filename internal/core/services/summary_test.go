package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/memory"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func seedSummaryItem(t *testing.T, store *memory.Store, meta map[string]any) {
	t.Helper()
	if meta == nil {
		meta = map[string]any{}
	}
	results := store.Write(context.Background(), testCollections.Text, []domain.StoredItem{{
		ID:       "item-1",
		URL:      "https://example.com/doc",
		Text:     "A long document about vector databases.",
		Metadata: meta,
	}})
	require.NoError(t, results[0].Err)
}

func TestMetadataCache_ComputesAndPersists(t *testing.T) {
	store := memory.New()
	seedSummaryItem(t, store, nil)
	cache := NewMetadataCache(store)

	computes := 0
	value, cached, err := cache.GetOrCompute(context.Background(),
		testCollections.Text, "item-1", domain.MetaAISummary,
		func(domain.StoredItem) (string, error) {
			computes++
			return "fresh summary", nil
		}, false)

	require.NoError(t, err)
	assert.Equal(t, "fresh summary", value)
	assert.False(t, cached)
	assert.Equal(t, 1, computes)

	// The value is now in item metadata and served from there.
	value, cached, err = cache.GetOrCompute(context.Background(),
		testCollections.Text, "item-1", domain.MetaAISummary,
		func(domain.StoredItem) (string, error) {
			computes++
			return "should not run", nil
		}, false)

	require.NoError(t, err)
	assert.Equal(t, "fresh summary", value)
	assert.True(t, cached)
	assert.Equal(t, 1, computes)
}

func TestMetadataCache_ForceRefreshRecomputes(t *testing.T) {
	store := memory.New()
	seedSummaryItem(t, store, map[string]any{domain.MetaAISummary: "stale"})
	cache := NewMetadataCache(store)

	value, cached, err := cache.GetOrCompute(context.Background(),
		testCollections.Text, "item-1", domain.MetaAISummary,
		func(domain.StoredItem) (string, error) {
			return "regenerated", nil
		}, true)

	require.NoError(t, err)
	assert.Equal(t, "regenerated", value)
	assert.False(t, cached)
}

func TestMetadataCache_PersistFailureStillReturnsValue(t *testing.T) {
	inner := memory.New()
	seedSummaryItem(t, inner, nil)
	store := &flakyStore{
		VectorStore: inner,
		updateErr:   domain.NewTransient("fake", "update", errors.New("write timeout")),
	}
	cache := NewMetadataCache(store)

	value, cached, err := cache.GetOrCompute(context.Background(),
		testCollections.Text, "item-1", domain.MetaAISummary,
		func(domain.StoredItem) (string, error) {
			return "computed anyway", nil
		}, false)

	require.NoError(t, err)
	assert.Equal(t, "computed anyway", value)
	assert.False(t, cached, "value was not persisted, so next call recomputes")
}

func TestMetadataCache_AbsentItem(t *testing.T) {
	cache := NewMetadataCache(memory.New())

	_, _, err := cache.GetOrCompute(context.Background(),
		testCollections.Text, "ghost", domain.MetaAISummary,
		func(domain.StoredItem) (string, error) {
			return "", nil
		}, false)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLibraryService_Summarize(t *testing.T) {
	store := memory.New()
	seedSummaryItem(t, store, nil)
	llm := &stubLLM{summary: "generated summary"}
	svc := NewLibraryService(store, nil, llm, testCollections, NewDateFilter(time.UTC))

	summary, cached, err := svc.Summarize(context.Background(), domain.CollectionText, "item-1", false)
	require.NoError(t, err)
	assert.Equal(t, "generated summary", summary)
	assert.False(t, cached)
	assert.Equal(t, 1, llm.calls)

	summary, cached, err = svc.Summarize(context.Background(), domain.CollectionText, "item-1", false)
	require.NoError(t, err)
	assert.Equal(t, "generated summary", summary)
	assert.True(t, cached, "second call is served from metadata")
	assert.Equal(t, 1, llm.calls)
}

func TestLibraryService_Summarize_NoLLM(t *testing.T) {
	svc := NewLibraryService(memory.New(), nil, nil, testCollections, NewDateFilter(time.UTC))

	_, _, err := svc.Summarize(context.Background(), domain.CollectionText, "item-1", false)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLibraryService_Summarize_ImageUsesAnalysisMetadata(t *testing.T) {
	store := memory.New()
	results := store.Write(context.Background(), testCollections.Image, []domain.StoredItem{{
		ID:  "img-1",
		URL: "photo.png",
		Metadata: map[string]any{
			domain.MetaClassification: "invoice",
			domain.MetaOCRContent:     "Total due: 42.00",
		},
	}})
	require.NoError(t, results[0].Err)

	llm := &stubLLM{summary: "an invoice"}
	svc := NewLibraryService(store, nil, llm, testCollections, NewDateFilter(time.UTC))

	summary, _, err := svc.Summarize(context.Background(), domain.CollectionImage, "img-1", false)

	require.NoError(t, err)
	assert.Equal(t, "an invoice", summary)
}

func TestSummaryContent(t *testing.T) {
	assert.Equal(t, "chunk text", summaryContent(domain.StoredItem{Text: "chunk text"}))

	image := domain.StoredItem{Metadata: map[string]any{
		domain.MetaClassification: "receipt",
		domain.MetaOCRContent:     "line items",
	}}
	assert.Equal(t, "receipt\nline items", summaryContent(image))

	assert.Empty(t, summaryContent(domain.StoredItem{Metadata: map[string]any{}}))
}
