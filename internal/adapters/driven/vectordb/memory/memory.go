// Package memory provides an in-memory VectorStore for tests and
// ephemeral use. It supports every search mode: cosine similarity for
// vector, token overlap for keyword and an equally weighted blend for
// hybrid, making it a drop-in stand-in for server backends in service
// tests.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// record is a stored item plus its insertion sequence for stable
// reverse-chronological listing.
type record struct {
	item domain.StoredItem
	seq  int
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]record
	nextSeq     int
}

// New creates a new in-memory vector store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]record)}
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "memory" }

// Setup is a no-op; collections are created lazily on first write.
func (s *Store) Setup(_ context.Context) error { return nil }

// Cleanup is a no-op.
func (s *Store) Cleanup() error { return nil }

func (s *Store) collection(name string) map[string]record {
	if c, ok := s.collections[name]; ok {
		return c
	}
	c := make(map[string]record)
	s.collections[name] = c
	return c
}

// Write inserts items. In-memory writes cannot partially fail, so every
// result is a success.
func (s *Store) Write(_ context.Context, collection string, items []domain.StoredItem) []domain.WriteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	results := make([]domain.WriteResult, len(items))
	for i, item := range items {
		c[item.ID] = record{item: item, seq: s.nextSeq}
		s.nextSeq++
		results[i] = domain.WriteResult{ID: item.ID, URL: item.URL}
	}
	return results
}

// Get retrieves one item by ID.
func (s *Store) Get(_ context.Context, collection, id string) (*domain.StoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	item := rec.item
	return &item, nil
}

// List returns items in reverse insertion order with offset pagination.
func (s *Store) List(_ context.Context, collection string, limit, offset int) ([]domain.StoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]record, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })

	if offset >= len(records) {
		return []domain.StoredItem{}, nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	items := make([]domain.StoredItem, len(records))
	for i, rec := range records {
		items[i] = rec.item
	}
	return items, nil
}

// Search executes the query. All modes are supported.
func (s *Store) Search(_ context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	if !query.Mode.Valid() {
		return nil, domain.NewPermanent("memory", "search", domain.ErrUnsupportedMode)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		hit domain.RankedHit
		seq int
	}
	var hits []scored

	for _, rec := range s.collections[collection] {
		var score float64
		switch query.Mode {
		case domain.SearchModeVector:
			score = cosineScore(query.Vector, rec.item.Embedding)
		case domain.SearchModeKeyword:
			score = keywordScore(query.Text, rec.item)
		case domain.SearchModeHybrid:
			score = (cosineScore(query.Vector, rec.item.Embedding) + keywordScore(query.Text, rec.item)) / 2
		}
		if score > 0 {
			hits = append(hits, scored{hit: domain.RankedHit{Item: rec.item, Score: score}, seq: rec.seq})
		}
	}

	// Equal scores preserve insertion order for deterministic results.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].hit.Score != hits[j].hit.Score {
			return hits[i].hit.Score > hits[j].hit.Score
		}
		return hits[i].seq < hits[j].seq
	})

	if query.TopK > 0 && len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}
	out := make([]domain.RankedHit, len(hits))
	for i, h := range hits {
		out[i] = h.hit
	}
	return out, nil
}

// UpdateMetadata shallow-merges the patch at the top level.
func (s *Store) UpdateMetadata(_ context.Context, collection, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return domain.ErrNotFound
	}

	meta := make(map[string]any, len(rec.item.Metadata)+len(patch))
	for k, v := range rec.item.Metadata {
		meta[k] = v
	}
	for k, v := range patch {
		meta[k] = v
	}
	rec.item.Metadata = meta
	s.collections[collection][id] = rec
	return nil
}

// Delete removes one item. Absent IDs are not an error.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// DeleteByPrefix removes every item whose URL starts with the prefix.
func (s *Store) DeleteByPrefix(_ context.Context, collection, urlPrefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, rec := range s.collections[collection] {
		if strings.HasPrefix(rec.item.URL, urlPrefix) {
			delete(s.collections[collection], id)
			deleted++
		}
	}
	return deleted, nil
}

// cosineScore maps cosine similarity into [0,1].
func cosineScore(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

// keywordScore is the fraction of query tokens found in the item's text
// surface (chunk text, URL, OCR text, EXIF, classification, filename).
func keywordScore(query string, item domain.StoredItem) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	surface := strings.ToLower(item.Text + " " + item.URL)
	for _, key := range []string{
		domain.MetaOriginalFilename,
		domain.MetaClassification,
		domain.MetaOCRContent,
		domain.MetaEXIF,
	} {
		if v, ok := item.Metadata[key].(string); ok {
			surface += " " + strings.ToLower(v)
		}
	}

	matched := 0
	for _, token := range tokens {
		if strings.Contains(surface, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// Touch backdates an item's date_added metadata. Test helper.
func (s *Store) Touch(collection, id string, added time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.collections[collection][id]; ok {
		if rec.item.Metadata == nil {
			rec.item.Metadata = map[string]any{}
		}
		rec.item.Metadata[domain.MetaDateAdded] = added.Format(time.RFC3339)
		s.collections[collection][id] = rec
	}
}
