package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/memory"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// fixedClock pins date_added for deterministic assertions.
var fixedClock = func() time.Time {
	return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
}

func TestIngestService_IngestText_SingleChunkKeepsBareURL(t *testing.T) {
	store := memory.New()
	svc := NewIngestService(store, nil, testCollections, 1000, 0)
	svc.clock = fixedClock

	results, err := svc.IngestText(context.Background(),
		"https://example.com/doc", "One short document.", nil)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "https://example.com/doc", results[0].URL, "single chunk gets no suffix")

	item, err := store.Get(context.Background(), testCollections.Text, results[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "One short document.", item.Text)
	assert.Equal(t, "2025-01-10T12:00:00Z", item.Metadata[domain.MetaDateAdded])
	assert.Nil(t, item.Metadata[domain.MetaChunkIndex], "single chunk carries no chunk metadata")
}

func TestIngestService_IngestText_MultiChunkURLsAndMetadata(t *testing.T) {
	store := memory.New()
	svc := NewIngestService(store, nil, testCollections, 40, 0)
	svc.clock = fixedClock

	text := "First sentence here. Second sentence follows on. Third sentence closes it out."
	results, err := svc.IngestText(context.Background(),
		"https://example.com/doc", text,
		map[string]any{domain.MetaOriginalFilename: "doc.txt"})

	require.NoError(t, err)
	require.Greater(t, len(results), 1)

	var rebuilt strings.Builder
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, domain.ChunkURL("https://example.com/doc", i), r.URL)

		item, getErr := store.Get(context.Background(), testCollections.Text, r.ID)
		require.NoError(t, getErr)
		assert.Equal(t, i, item.ChunkIndex())
		assert.Equal(t, len(results), item.TotalChunks())
		assert.Equal(t, "doc.txt", item.Metadata[domain.MetaOriginalFilename])
		rebuilt.WriteString(item.Text)
	}
	assert.Equal(t, text, rebuilt.String(), "chunks concatenate back to the input")
}

func TestIngestService_IngestText_RequiresURL(t *testing.T) {
	svc := NewIngestService(memory.New(), nil, testCollections, 1000, 0)

	_, err := svc.IngestText(context.Background(), "", "text", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestText_EmbedsChunks(t *testing.T) {
	store := memory.New()
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	svc := NewIngestService(store, embedder, testCollections, 1000, 0)
	svc.clock = fixedClock

	results, err := svc.IngestText(context.Background(),
		"https://example.com/doc", "Embedded document.", nil)

	require.NoError(t, err)
	item, err := store.Get(context.Background(), testCollections.Text, results[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, item.Embedding)
}

func TestIngestService_IngestImage(t *testing.T) {
	store := memory.New()
	embedder := &stubEmbedder{vector: []float32{0.5, 0.5}}
	svc := NewIngestService(store, embedder, testCollections, 1000, 0)
	svc.clock = fixedClock

	result, err := svc.IngestImage(context.Background(), "photo.png",
		[]byte{0x89, 0x50}, map[string]any{
			domain.MetaClassification: "screenshot",
			domain.MetaOCRContent:     "error dialog text",
		})

	require.NoError(t, err)
	require.NoError(t, result.Err)

	item, err := store.Get(context.Background(), testCollections.Image, result.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50}, item.Image)
	assert.Equal(t, "screenshot", item.Metadata[domain.MetaClassification])
	assert.NotNil(t, item.Embedding, "searchable image text is embedded")
}

func TestIngestService_IngestImage_NoImageCollection(t *testing.T) {
	svc := NewIngestService(memory.New(), nil, domain.CollectionSet{Text: "OnlyText"}, 1000, 0)

	_, err := svc.IngestImage(context.Background(), "photo.png", nil, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestImage_NoTextSurfaceSkipsEmbedding(t *testing.T) {
	store := memory.New()
	embedder := &stubEmbedder{vector: []float32{0.5, 0.5}}
	svc := NewIngestService(store, embedder, testCollections, 1000, 0)

	result, err := svc.IngestImage(context.Background(), "photo.png", []byte{1}, nil)

	require.NoError(t, err)
	item, err := store.Get(context.Background(), testCollections.Image, result.ID)
	require.NoError(t, err)
	assert.Nil(t, item.Embedding)
	assert.Zero(t, embedder.calls)
}

func TestIngestService_IngestImage_EXIFAloneIsEmbeddable(t *testing.T) {
	store := memory.New()
	embedder := &stubEmbedder{vector: []float32{0.5, 0.5}}
	svc := NewIngestService(store, embedder, testCollections, 1000, 0)

	result, err := svc.IngestImage(context.Background(), "photo.png", []byte{1},
		map[string]any{domain.MetaEXIF: "Canon EOS R5"})

	require.NoError(t, err)
	item, err := store.Get(context.Background(), testCollections.Image, result.ID)
	require.NoError(t, err)
	assert.NotNil(t, item.Embedding)
	assert.Equal(t, 1, embedder.calls)
}
