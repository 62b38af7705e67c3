package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragstore/internal/chunker"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService chunks text and writes items into the vector backend.
type IngestService struct {
	store       driven.VectorStore
	embedder    driven.EmbeddingService
	collections domain.CollectionSet
	chunker     *chunker.Chunker
	limiter     *rate.Limiter

	// clock is swapped out in tests for deterministic date_added values.
	clock func() time.Time
}

// NewIngestService creates a new ingest service.
// The embedder is optional (can be nil) when the backend vectorises
// server-side or only keyword search is needed.
func NewIngestService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	collections domain.CollectionSet,
	chunkSize int,
	requestsPerSecond float64,
) *IngestService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &IngestService{
		store:       store,
		embedder:    embedder,
		collections: collections,
		chunker:     chunker.New(chunker.WithChunkSize(chunkSize)),
		limiter:     limiter,
		clock:       time.Now,
	}
}

// IngestText chunks the text at sentence boundaries and writes one item
// per chunk. Single-chunk documents keep the bare URL; multi-chunk
// documents get a #chunk-N suffix per member.
func (s *IngestService) IngestText(
	ctx context.Context, url, text string, metadata map[string]any,
) ([]domain.WriteResult, error) {
	logger.Section("Ingest")
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	chunks := s.chunker.Split(text)
	sizes := chunker.Sizes(chunks)
	logger.Debug("Ingest %s: %d chunk(s), sizes %v", url, len(chunks), sizes)

	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	filename, _ := metadata[domain.MetaOriginalFilename].(string)
	added := s.clock().Format(time.RFC3339)

	items := make([]domain.StoredItem, len(chunks))
	for i, content := range chunks {
		meta := make(map[string]any, len(metadata)+4)
		for k, v := range metadata {
			meta[k] = v
		}
		if len(chunks) > 1 {
			for k, v := range chunker.ChunkMetadata(i, sizes, filename) {
				meta[k] = v
			}
		}
		meta[domain.MetaDateAdded] = added

		itemURL := url
		if len(chunks) > 1 {
			itemURL = domain.ChunkURL(url, i)
		}

		items[i] = domain.StoredItem{
			ID:       uuid.New().String(),
			URL:      itemURL,
			Text:     content,
			Metadata: meta,
		}
		if embeddings != nil {
			items[i].Embedding = embeddings[i]
		}
	}

	results := s.store.Write(ctx, s.collections.Text, items)
	logWriteFailures(results)
	return results, nil
}

// IngestImage writes one image item with its supplied analysis metadata.
// Classification labels, OCR text and EXIF arrive as metadata from the
// image-analysis collaborator; they are stored and searched, never computed
// here.
func (s *IngestService) IngestImage(
	ctx context.Context, url string, image []byte, metadata map[string]any,
) (domain.WriteResult, error) {
	logger.Section("Ingest Image")
	if url == "" {
		return domain.WriteResult{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	if s.collections.Image == "" {
		return domain.WriteResult{}, fmt.Errorf("%w: no image collection configured", domain.ErrInvalidInput)
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[domain.MetaDateAdded] = s.clock().Format(time.RFC3339)

	item := domain.StoredItem{
		ID:       uuid.New().String(),
		URL:      url,
		Image:    image,
		Metadata: meta,
	}

	// Embed the searchable text surface of the image, if any.
	if s.embedder != nil {
		if text := imageSearchText(meta); text != "" {
			if err := s.limiter.Wait(ctx); err != nil {
				return domain.WriteResult{}, err
			}
			vec, err := s.embedder.Embed(ctx, text)
			if err != nil {
				return domain.WriteResult{}, fmt.Errorf("embed image text: %w", err)
			}
			item.Embedding = vec
		}
	}

	results := s.store.Write(ctx, s.collections.Image, []domain.StoredItem{item})
	logWriteFailures(results)
	return results[0], nil
}

// embedChunks generates embeddings for all chunks, rate-limited.
// Returns nil (not an error) when no embedder is configured.
func (s *IngestService) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	if s.embedder == nil {
		logger.Debug("No embedding service, writing chunks without vectors")
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors",
			len(chunks), len(embeddings))
	}
	return embeddings, nil
}

// imageSearchText assembles the sparse text fields of an image item into
// one embeddable string.
func imageSearchText(meta map[string]any) string {
	text := ""
	for _, key := range []string{
		domain.MetaOriginalFilename,
		domain.MetaClassification,
		domain.MetaOCRContent,
		domain.MetaEXIF,
	} {
		if v, ok := meta[key].(string); ok && v != "" {
			if text != "" {
				text += "\n"
			}
			text += v
		}
	}
	return text
}

func logWriteFailures(results []domain.WriteResult) {
	for _, r := range results {
		if r.Err != nil {
			logger.Warn("Write failed for %s: %v", r.URL, r.Err)
		}
	}
}
