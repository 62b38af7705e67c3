package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure RelevanceService implements the interface.
var _ driving.SearchService = (*RelevanceService)(nil)

// RelevanceService executes multi-strategy search with per-collection
// thresholds and optional LLM reranking.
type RelevanceService struct {
	store       driven.VectorStore
	embedder    driven.EmbeddingService
	collections domain.CollectionSet
	reranker    Reranker

	mu       sync.RWMutex
	settings domain.RelevanceSettings
}

// NewRelevanceService creates a new relevance service.
// The embedder and reranker are optional (can be nil).
func NewRelevanceService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	collections domain.CollectionSet,
	settings domain.RelevanceSettings,
	reranker Reranker,
) *RelevanceService {
	if settings.TextThreshold == 0 {
		settings.TextThreshold = domain.DefaultTextThreshold
	}
	if settings.ImageThreshold == 0 {
		settings.ImageThreshold = domain.DefaultImageThreshold
	}
	if settings.RerankTopK == 0 {
		settings.RerankTopK = domain.DefaultRerankTopK
	}

	return &RelevanceService{
		store:       store,
		embedder:    embedder,
		collections: collections,
		settings:    settings,
		reranker:    reranker,
	}
}

// UpdateSettings swaps in new thresholds. Called by the configuration
// watcher on hot reload; safe under concurrent queries.
func (s *RelevanceService) UpdateSettings(settings domain.RelevanceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.TextThreshold > 0 {
		s.settings.TextThreshold = settings.TextThreshold
	}
	if settings.ImageThreshold > 0 {
		s.settings.ImageThreshold = settings.ImageThreshold
	}
	if settings.RerankTopK > 0 {
		s.settings.RerankTopK = settings.RerankTopK
	}
	logger.Info("Relevance settings updated: text=%.2f image=%.2f rerank_top_k=%d",
		s.settings.TextThreshold, s.settings.ImageThreshold, s.settings.RerankTopK)
}

func (s *RelevanceService) currentSettings() domain.RelevanceSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Query executes the best available strategy against the collection for
// kind, drops hits below the relevance threshold and optionally reranks.
// An empty result is a valid, non-error outcome.
func (s *RelevanceService) Query(
	ctx context.Context, text string, kind domain.CollectionKind, opts domain.QueryOptions,
) ([]domain.RankedHit, error) {
	logger.Section("Query Execution")
	logger.Debug("Query: %q, kind: %s", text, kind)

	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.RankedHit{}, nil
	}
	if opts.Mode != "" && !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, opts.Mode)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	collection := s.collections.ForKind(kind)
	query := domain.SearchQuery{Text: text, TopK: topK}

	vec, err := s.queryVector(ctx, text)
	if err != nil {
		return nil, err
	}
	query.Vector = vec

	hits, err := s.execute(ctx, collection, query, opts.Mode)
	if err != nil {
		return nil, err
	}
	logger.Debug("Raw hits: %d", len(hits))

	settings := s.currentSettings()
	hits = applyThreshold(hits, settings.ThresholdFor(kind))
	logger.Debug("After threshold %.2f: %d hits", settings.ThresholdFor(kind), len(hits))

	if opts.Rerank && s.reranker != nil && len(hits) > 1 {
		hits = s.rerank(ctx, text, hits, settings.RerankTopK)
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}
	logger.Info("Final hits: %d", len(hits))
	return hits, nil
}

// queryVector embeds the query text when an embedder is available.
// Without one, vector and hybrid strategies are skipped downstream.
func (s *RelevanceService) queryVector(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// execute runs the strategy chain: hybrid, then vector, then keyword.
// A forced mode skips the chain. An unsupported strategy falls through to
// the next; transient failures are retried before falling through.
func (s *RelevanceService) execute(
	ctx context.Context, collection string, query domain.SearchQuery, forced domain.SearchMode,
) ([]domain.RankedHit, error) {
	if forced != "" {
		return s.searchOnce(ctx, collection, query, forced)
	}

	order := []domain.SearchMode{domain.SearchModeHybrid, domain.SearchModeVector, domain.SearchModeKeyword}
	if query.Vector == nil {
		// Without a query vector only keyword search can run.
		order = []domain.SearchMode{domain.SearchModeKeyword}
	}

	var lastErr error
	for _, mode := range order {
		hits, err := s.searchOnce(ctx, collection, query, mode)
		if err == nil {
			return hits, nil
		}
		if errors.Is(err, domain.ErrUnsupportedMode) {
			logger.Debug("Mode %s unsupported by %s, falling back", mode, s.store.Name())
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *RelevanceService) searchOnce(
	ctx context.Context, collection string, query domain.SearchQuery, mode domain.SearchMode,
) ([]domain.RankedHit, error) {
	query.Mode = mode
	if mode != domain.SearchModeKeyword && query.Vector == nil {
		return nil, fmt.Errorf("%w: %s requires an embedding service",
			domain.ErrUnsupportedMode, mode)
	}

	var hits []domain.RankedHit
	err := withRetry(ctx, "search", func() error {
		var searchErr error
		hits, searchErr = s.store.Search(ctx, collection, query)
		return searchErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedMode) {
			return nil, err
		}
		return nil, fmt.Errorf("%s search: %w", mode, err)
	}
	return hits, nil
}

// rerank reorders the top hits via the injected strategy. The reranker
// returns a reordering only - it never introduces new candidates - so a
// defective reordering is discarded rather than trusted.
func (s *RelevanceService) rerank(
	ctx context.Context, query string, hits []domain.RankedHit, topK int,
) []domain.RankedHit {
	n := topK
	if n > len(hits) {
		n = len(hits)
	}
	head := hits[:n]

	reordered, err := s.reranker(ctx, query, head)
	if err != nil {
		logger.Warn("Rerank failed, keeping original order: %v", err)
		return hits
	}
	if len(reordered) != n || !samePermutation(head, reordered) {
		logger.Warn("Rerank returned altered candidates, keeping original order")
		return hits
	}

	out := make([]domain.RankedHit, 0, len(hits))
	out = append(out, reordered...)
	out = append(out, hits[n:]...)
	return out
}

// samePermutation verifies both slices hold the same item IDs.
func samePermutation(a, b []domain.RankedHit) bool {
	seen := make(map[string]int, len(a))
	for _, h := range a {
		seen[h.Item.ID]++
	}
	for _, h := range b {
		seen[h.Item.ID]--
		if seen[h.Item.ID] < 0 {
			return false
		}
	}
	return true
}

// applyThreshold drops hits scoring below the collection threshold.
// Equal scores keep their original backend order.
func applyThreshold(hits []domain.RankedHit, threshold float64) []domain.RankedHit {
	kept := make([]domain.RankedHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}
