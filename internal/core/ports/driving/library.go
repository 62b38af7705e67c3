package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// LibraryService exposes the stored content as grouped logical documents.
type LibraryService interface {
	// List returns grouped views of the stored items in reverse-
	// chronological order, optionally post-filtered by a natural-language
	// date expression ("yesterday", "last week", "3 days ago", ...).
	List(ctx context.Context, kind domain.CollectionKind, limit, offset int, dateExpr string) ([]domain.GroupedView, error)

	// Delete removes an item by ID, or a whole group by group key.
	// Group members are deleted continue-on-error; the tally reports
	// which members failed so the caller can retry the remainder.
	Delete(ctx context.Context, kind domain.CollectionKind, idOrGroupKey string) (domain.DeleteTally, error)

	// Summarize returns the item's AI summary, generating and persisting
	// it on first access. cached reports whether the value was served
	// from item metadata. forceRefresh always regenerates.
	Summarize(ctx context.Context, kind domain.CollectionKind, id string, forceRefresh bool) (summary string, cached bool, err error)
}
