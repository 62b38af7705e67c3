package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// VectorStore is the uniform contract over one vector database backend.
// One implementation exists per backend; selection happens in the vectordb
// factory keyed by configuration.
//
// Failure semantics: implementations classify errors as Transient
// (retryable, e.g. network/timeout) or Permanent (never retried) via
// domain.BackendError. Callers retry only Transient failures, capped at a
// small fixed attempt count.
type VectorStore interface {
	// Name returns the backend identifier ("weaviate", "milvus", ...).
	Name() string

	// Setup idempotently ensures the configured collections and schema
	// exist. Failure wraps domain.ErrBackendUnavailable and is non-fatal
	// to process startup.
	Setup(ctx context.Context) error

	// Write inserts items into the collection. The result slice is
	// positional: one WriteResult per input item. Partial failure is per
	// item, never all-or-nothing.
	Write(ctx context.Context, collection string, items []domain.StoredItem) []domain.WriteResult

	// Get retrieves a single item by ID.
	// Returns domain.ErrNotFound if the ID is absent.
	Get(ctx context.Context, collection, id string) (*domain.StoredItem, error)

	// List returns items in reverse-chronological insertion order with
	// simple offset pagination. The order is backend-stable, not a
	// guaranteed global order across backends.
	List(ctx context.Context, collection string, limit, offset int) ([]domain.StoredItem, error)

	// Search executes the query and returns ranked hits with scores
	// normalised into [0,1]. Returns domain.ErrUnsupportedMode (wrapped
	// Permanent) when the backend does not implement the requested mode.
	Search(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error)

	// UpdateMetadata shallow-merges the patch into the item's metadata at
	// the top level. Returns domain.ErrNotFound if the ID is absent.
	UpdateMetadata(ctx context.Context, collection, id string, patch map[string]any) error

	// Delete removes one item. Deleting an absent ID is not an error.
	Delete(ctx context.Context, collection, id string) error

	// DeleteByPrefix removes every item whose URL starts with the prefix
	// and returns the number removed. Idempotent.
	DeleteByPrefix(ctx context.Context, collection, urlPrefix string) (int, error)

	// Cleanup releases connections. Safe to call repeatedly.
	Cleanup() error
}
