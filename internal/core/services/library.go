package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// listPageSize is the page size used when walking a backend's listing.
// Group members can sit arbitrarily far down the reverse-chronological
// order, so grouping and cascade deletion walk every page.
const listPageSize = 500

// LibraryService exposes stored items as grouped logical documents and
// owns grouped (cascade) deletion.
type LibraryService struct {
	store       driven.VectorStore
	blobs       driven.BlobStore
	llm         driven.LLMService
	cache       *MetadataCache
	collections domain.CollectionSet
	dates       *DateFilter
}

// NewLibraryService creates a new library service.
// The blob store and LLM are optional (can be nil); without them,
// storage_path cleanup and summaries are skipped respectively.
func NewLibraryService(
	store driven.VectorStore,
	blobs driven.BlobStore,
	llm driven.LLMService,
	collections domain.CollectionSet,
	dates *DateFilter,
) *LibraryService {
	return &LibraryService{
		store:       store,
		blobs:       blobs,
		llm:         llm,
		cache:       NewMetadataCache(store),
		collections: collections,
		dates:       dates,
	}
}

// List returns grouped views in reverse-chronological order.
// A non-empty dateExpr post-filters members by date_added before grouping;
// an unparsable expression surfaces as *domain.UnparsableDateQuery.
func (s *LibraryService) List(
	ctx context.Context, kind domain.CollectionKind, limit, offset int, dateExpr string,
) ([]domain.GroupedView, error) {
	logger.Section("List")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var dateRange *DateRange
	if dateExpr != "" {
		r, err := s.dates.Parse(dateExpr)
		if err != nil {
			return nil, err
		}
		dateRange = &r
		logger.Debug("Date filter %q: [%s, %s)", dateExpr, r.Start, r.End)
	}

	// Groups span several stored items and a member can trail far behind
	// the group's newest item, so collect the full listing and paginate
	// over groups, not items.
	collection := s.collections.ForKind(kind)
	items, err := s.listAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	if dateRange != nil {
		items = s.dates.FilterItems(items, *dateRange)
	}

	groups := GroupItems(items, kind)
	logger.Debug("Grouped %d items into %d views", len(items), len(groups))

	if offset >= len(groups) {
		return []domain.GroupedView{}, nil
	}
	groups = groups[offset:]
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// GroupItems partitions items by group key and folds each partition into
// one GroupedView. Input order determines group order (first member wins),
// so grouping the same set twice yields identical views.
func GroupItems(items []domain.StoredItem, kind domain.CollectionKind) []domain.GroupedView {
	index := make(map[string]int, len(items))
	groups := make([]domain.GroupedView, 0, len(items))

	for _, item := range items {
		key := item.GroupKey()
		at, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, domain.GroupedView{Key: key, Kind: kind})
			at = len(groups) - 1
		}
		groups[at].Items = append(groups[at].Items, item)
	}

	for i := range groups {
		groups[i].SortMembers()
		// Representative metadata comes from member 0 after ordering.
		groups[i].Metadata = groups[i].Items[0].Metadata
	}
	return groups
}

// Delete removes an item by ID or a whole group by group key.
// Group members are deleted sequentially, continue-on-error; the tally
// reports which members failed so the caller can retry the remainder.
func (s *LibraryService) Delete(
	ctx context.Context, kind domain.CollectionKind, idOrGroupKey string,
) (domain.DeleteTally, error) {
	logger.Section("Delete")
	collection := s.collections.ForKind(kind)

	// Try as a direct item ID first.
	item, err := s.store.Get(ctx, collection, idOrGroupKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.DeleteTally{}, fmt.Errorf("get %s: %w", idOrGroupKey, err)
	}
	if item != nil {
		if delErr := s.deleteItem(ctx, collection, *item); delErr != nil {
			return domain.DeleteTally{Failed: 1, FailedIDs: []string{item.ID}}, delErr
		}
		return domain.DeleteTally{Deleted: 1}, nil
	}

	// Otherwise treat it as a group key and cascade over the members.
	members, err := s.groupMembers(ctx, collection, kind, idOrGroupKey)
	if err != nil {
		return domain.DeleteTally{}, err
	}
	if len(members) == 0 {
		// Deleting something absent is idempotent, not an error.
		return domain.DeleteTally{}, nil
	}

	var tally domain.DeleteTally
	for _, member := range members {
		if delErr := s.deleteItem(ctx, collection, member); delErr != nil {
			logger.Warn("Delete %s failed: %v", member.ID, delErr)
			tally.Failed++
			tally.FailedIDs = append(tally.FailedIDs, member.ID)
			continue
		}
		tally.Deleted++
	}
	logger.Info("Group delete %q: %s", idOrGroupKey, tally)
	return tally, nil
}

// deleteItem removes one item's vector record, then best-effort removes
// its blob. Blob failure never fails the deletion.
func (s *LibraryService) deleteItem(ctx context.Context, collection string, item domain.StoredItem) error {
	err := withRetry(ctx, "delete", func() error {
		return s.store.Delete(ctx, collection, item.ID)
	})
	if err != nil {
		return err
	}

	if s.blobs != nil {
		if path, ok := item.Metadata[domain.MetaStoragePath].(string); ok && path != "" {
			if blobErr := s.blobs.Remove(ctx, path); blobErr != nil {
				logger.Warn("Blob cleanup failed for %s: %v", path, blobErr)
			}
		}
	}
	return nil
}

// groupMembers collects every stored item belonging to the group key.
// The whole listing is walked: missing a member would turn a cascade
// delete into a silent partial delete.
func (s *LibraryService) groupMembers(
	ctx context.Context, collection string, kind domain.CollectionKind, key string,
) ([]domain.StoredItem, error) {
	items, err := s.listAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	for _, group := range GroupItems(items, kind) {
		if group.Key == key {
			return group.Items, nil
		}
	}
	return nil, nil
}

// listAll pages through the backend until the listing is exhausted.
func (s *LibraryService) listAll(ctx context.Context, collection string) ([]domain.StoredItem, error) {
	var items []domain.StoredItem
	for offset := 0; ; offset += listPageSize {
		var batch []domain.StoredItem
		err := withRetry(ctx, "list", func() error {
			var listErr error
			batch, listErr = s.store.List(ctx, collection, listPageSize, offset)
			return listErr
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		items = append(items, batch...)
		if len(batch) < listPageSize {
			return items, nil
		}
	}
}
