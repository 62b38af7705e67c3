package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// SearchService answers relevance queries against a collection.
type SearchService interface {
	// Query executes the best available search strategy, drops hits
	// below the collection's relevance threshold and optionally reranks
	// the top hits. An empty result is a valid, non-error outcome.
	Query(ctx context.Context, text string, kind domain.CollectionKind, opts domain.QueryOptions) ([]domain.RankedHit, error)
}
