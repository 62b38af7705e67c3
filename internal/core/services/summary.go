package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// defaultSummaryLength bounds generated summaries, in characters.
const defaultSummaryLength = 600

// MetadataCache memoises derived fields on stored items. A computed value
// is persisted into item metadata and served from there until explicitly
// force-refreshed or the item is deleted; there is no TTL.
type MetadataCache struct {
	store driven.VectorStore
}

// NewMetadataCache creates a metadata cache over the given backend.
func NewMetadataCache(store driven.VectorStore) *MetadataCache {
	return &MetadataCache{store: store}
}

// GetOrCompute returns the cached field value, or computes and persists
// it. cached reports whether the value came from item metadata.
//
// A persistence failure after a successful compute must not fail the
// request: the computed value is still returned with cached=false and a
// warning is logged; the next request simply recomputes.
func (c *MetadataCache) GetOrCompute(
	ctx context.Context,
	collection, id, field string,
	compute func(domain.StoredItem) (string, error),
	forceRefresh bool,
) (value string, cached bool, err error) {
	var item *domain.StoredItem
	err = withRetry(ctx, "get", func() error {
		var getErr error
		item, getErr = c.store.Get(ctx, collection, id)
		return getErr
	})
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", id, err)
	}

	if !forceRefresh {
		if existing, ok := item.Metadata[field].(string); ok && existing != "" {
			logger.Debug("Cache hit for %s.%s", id, field)
			return existing, true, nil
		}
	}

	value, err = compute(*item)
	if err != nil {
		return "", false, fmt.Errorf("compute %s: %w", field, err)
	}

	patch := map[string]any{field: value}
	if persistErr := c.store.UpdateMetadata(ctx, collection, id, patch); persistErr != nil {
		logger.Warn("Failed to persist %s for %s (will recompute next time): %v",
			field, id, persistErr)
	}
	return value, false, nil
}

// Summarize returns the item's AI summary, generating and caching it in
// item metadata on first access.
func (s *LibraryService) Summarize(
	ctx context.Context, kind domain.CollectionKind, id string, forceRefresh bool,
) (string, bool, error) {
	logger.Section("Summarize")
	if s.llm == nil {
		return "", false, domain.ErrLLMUnavailable
	}

	collection := s.collections.ForKind(kind)
	return s.cache.GetOrCompute(ctx, collection, id, domain.MetaAISummary,
		func(item domain.StoredItem) (string, error) {
			content := summaryContent(item)
			if content == "" {
				return "", fmt.Errorf("%w: item %s has no summarisable content",
					domain.ErrInvalidInput, id)
			}
			return s.llm.Summarise(ctx, content, defaultSummaryLength)
		}, forceRefresh)
}

// summaryContent picks the text surface to summarise: chunk text for
// documents, OCR text and classification for images.
func summaryContent(item domain.StoredItem) string {
	if item.Text != "" {
		return item.Text
	}
	text := ""
	for _, key := range []string{domain.MetaClassification, domain.MetaOCRContent} {
		if v, ok := item.Metadata[key].(string); ok && v != "" {
			if text != "" {
				text += "\n"
			}
			text += v
		}
	}
	return text
}
