// Package local provides an embedded VectorStore backed by SQLite.
//
// Items persist in a SQLite database; embeddings are stored alongside as
// little-endian float32 blobs and searched with brute-force cosine
// similarity. Keyword search runs against an in-memory Bleve index that
// is rebuilt from the database at Setup, so the index never drifts from
// the durable state. Hybrid search blends both rankings.
//
// The backend needs no external services, which makes it the default.
package local

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/local/migrations"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// hybridAlpha weights the vector ranking against the keyword ranking in
// hybrid queries (0 = pure keyword, 1 = pure vector).
const hybridAlpha = 0.75

// Store implements driven.VectorStore on SQLite with an in-memory Bleve
// keyword index per collection.
type Store struct {
	db   *sql.DB
	path string

	mu      sync.RWMutex
	indexes map[string]bleve.Index
}

// indexDoc is the shape Bleve indexes for keyword search.
type indexDoc struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Meta    string `json:"meta"`
}

// New creates a local store at the given data directory.
// If dataDir is empty, defaults to ~/.ragstore/data.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragstore", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "items.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		indexes: make(map[string]bleve.Index),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "local" }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// Setup rebuilds the in-memory keyword indexes from the database.
// Idempotent: calling it again simply rebuilds.
func (s *Store) Setup(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, collection, url, content, meta FROM items")
	if err != nil {
		return domain.NewTransient("local", "setup", err)
	}
	defer rows.Close()

	indexes := make(map[string]bleve.Index)
	count := 0
	for rows.Next() {
		var id, collection, url, content, meta string
		if err := rows.Scan(&id, &collection, &url, &content, &meta); err != nil {
			return domain.NewPermanent("local", "setup", err)
		}

		idx, err := indexFor(indexes, collection)
		if err != nil {
			return err
		}
		if err := idx.Index(id, indexDoc{URL: url, Content: content, Meta: meta}); err != nil {
			return domain.NewPermanent("local", "setup", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return domain.NewTransient("local", "setup", err)
	}

	s.mu.Lock()
	for _, old := range s.indexes {
		old.Close()
	}
	s.indexes = indexes
	s.mu.Unlock()

	logger.Debug("Local store indexed %d items across %d collections", count, len(indexes))
	return nil
}

// indexFor returns the collection's index, creating it on first use.
func indexFor(indexes map[string]bleve.Index, collection string) (bleve.Index, error) {
	if idx, ok := indexes[collection]; ok {
		return idx, nil
	}
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, domain.NewPermanent("local", "index", err)
	}
	indexes[collection] = idx
	return idx, nil
}

// index returns the live keyword index for a collection, creating one if
// Setup has not seen it yet.
func (s *Store) index(collection string) (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexFor(s.indexes, collection)
}

// Cleanup closes the keyword indexes and the database.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	for _, idx := range s.indexes {
		idx.Close()
	}
	s.indexes = make(map[string]bleve.Index)
	s.mu.Unlock()
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// Write upserts items one at a time so failure stays per item.
func (s *Store) Write(ctx context.Context, collection string, items []domain.StoredItem) []domain.WriteResult {
	results := make([]domain.WriteResult, len(items))
	for i, item := range items {
		results[i] = domain.WriteResult{ID: item.ID, URL: item.URL}
		if err := s.writeOne(ctx, collection, item); err != nil {
			results[i].Err = err
		}
	}
	return results
}

func (s *Store) writeOne(ctx context.Context, collection string, item domain.StoredItem) error {
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return domain.NewPermanent("local", "write", err)
	}
	dateAdded, _ := item.Metadata[domain.MetaDateAdded].(string)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, collection, url, content, image, meta, date_added, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			content = excluded.content,
			image = excluded.image,
			meta = excluded.meta,
			date_added = excluded.date_added,
			embedding = excluded.embedding
	`, item.ID, collection, item.URL, item.Text, item.Image,
		string(meta), dateAdded, float32SliceToBytes(item.Embedding))
	if err != nil {
		return domain.NewTransient("local", "write", err)
	}

	idx, err := s.index(collection)
	if err != nil {
		return err
	}
	if err := idx.Index(item.ID, indexDoc{URL: item.URL, Content: item.Text, Meta: string(meta)}); err != nil {
		return domain.NewPermanent("local", "index", err)
	}
	return nil
}

// scanItem reads one row into a StoredItem.
func scanItem(row interface{ Scan(...any) error }) (domain.StoredItem, error) {
	var item domain.StoredItem
	var meta string
	var image, embedding []byte
	if err := row.Scan(&item.ID, &item.URL, &item.Text, &image, &meta, &embedding); err != nil {
		return item, err
	}
	item.Image = image
	item.Embedding = bytesToFloat32Slice(embedding)
	item.Metadata = map[string]any{}
	if meta != "" {
		_ = json.Unmarshal([]byte(meta), &item.Metadata)
	}
	return item, nil
}

const itemColumns = "id, url, content, image, meta, embedding"

// Get retrieves one item by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.StoredItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE collection = ? AND id = ?",
		collection, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewTransient("local", "get", err)
	}
	return &item, nil
}

// List returns items newest first with offset pagination.
func (s *Store) List(ctx context.Context, collection string, limit, offset int) ([]domain.StoredItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE collection = ? ORDER BY date_added DESC, id LIMIT ? OFFSET ?",
		collection, limit, offset)
	if err != nil {
		return nil, domain.NewTransient("local", "list", err)
	}
	defer rows.Close()

	var items []domain.StoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, domain.NewPermanent("local", "list", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransient("local", "list", err)
	}
	return items, nil
}

// Search executes the query. All three modes are supported: vector via
// brute-force cosine, keyword via Bleve, hybrid as a weighted blend.
func (s *Store) Search(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	switch query.Mode {
	case domain.SearchModeVector:
		return s.vectorSearch(ctx, collection, query.Vector, query.TopK)
	case domain.SearchModeKeyword:
		return s.keywordSearch(ctx, collection, query.Text, query.TopK)
	case domain.SearchModeHybrid:
		return s.hybridSearch(ctx, collection, query)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, query.Mode)
	}
}

// cosineScore maps cosine similarity [-1,1] into [0,1].
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

func (s *Store) vectorSearch(ctx context.Context, collection string, vector []float32, topK int) ([]domain.RankedHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: vector search needs an embedding", domain.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE collection = ? AND embedding IS NOT NULL",
		collection)
	if err != nil {
		return nil, domain.NewTransient("local", "search", err)
	}
	defer rows.Close()

	var hits []domain.RankedHit
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, domain.NewPermanent("local", "search", err)
		}
		if score := cosineScore(vector, item.Embedding); score > 0 {
			hits = append(hits, domain.RankedHit{Item: item, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransient("local", "search", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Store) keywordSearch(ctx context.Context, collection, text string, topK int) ([]domain.RankedHit, error) {
	idx, err := s.index(collection)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(text))
	req.Size = topK
	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.NewPermanent("local", "search", err)
	}

	// Bleve scores are unbounded; normalise by the best score in the
	// result set so the top hit lands at 1.
	var hits []domain.RankedHit
	for _, match := range result.Hits {
		item, err := s.Get(ctx, collection, match.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue // index briefly ahead of a delete
		}
		if err != nil {
			return nil, err
		}
		score := 0.0
		if result.MaxScore > 0 {
			score = match.Score / result.MaxScore
		}
		hits = append(hits, domain.RankedHit{Item: *item, Score: score})
	}
	return hits, nil
}

func (s *Store) hybridSearch(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	vecHits, err := s.vectorSearch(ctx, collection, query.Vector, query.TopK)
	if err != nil {
		return nil, err
	}
	keyHits, err := s.keywordSearch(ctx, collection, query.Text, query.TopK)
	if err != nil {
		return nil, err
	}

	// Blend by ID: alpha * vector + (1-alpha) * keyword. Items found by
	// only one ranking keep their weighted contribution.
	merged := make(map[string]*domain.RankedHit)
	order := make([]string, 0, len(vecHits)+len(keyHits))
	for _, hit := range vecHits {
		h := hit
		h.Score = hybridAlpha * hit.Score
		merged[hit.Item.ID] = &h
		order = append(order, hit.Item.ID)
	}
	for _, hit := range keyHits {
		if existing, ok := merged[hit.Item.ID]; ok {
			existing.Score += (1 - hybridAlpha) * hit.Score
			continue
		}
		h := hit
		h.Score = (1 - hybridAlpha) * hit.Score
		merged[hit.Item.ID] = &h
		order = append(order, hit.Item.ID)
	}

	hits := make([]domain.RankedHit, 0, len(merged))
	for _, id := range order {
		hits = append(hits, *merged[id])
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > query.TopK {
		hits = hits[:query.TopK]
	}
	return hits, nil
}

// UpdateMetadata shallow-merges the patch into the item's metadata.
func (s *Store) UpdateMetadata(ctx context.Context, collection, id string, patch map[string]any) error {
	item, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(item.Metadata)+len(patch))
	for k, v := range item.Metadata {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	meta, err := json.Marshal(merged)
	if err != nil {
		return domain.NewPermanent("local", "update_metadata", err)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE items SET meta = ? WHERE collection = ? AND id = ?",
		string(meta), collection, id)
	if err != nil {
		return domain.NewTransient("local", "update_metadata", err)
	}

	idx, err := s.index(collection)
	if err != nil {
		return err
	}
	return idx.Index(id, indexDoc{URL: item.URL, Content: item.Text, Meta: string(meta)})
}

// Delete removes one item. Absent IDs are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM items WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return domain.NewTransient("local", "delete", err)
	}

	idx, err := s.index(collection)
	if err != nil {
		return err
	}
	_ = idx.Delete(id)
	return nil
}

// DeleteByPrefix removes every item whose URL starts with the prefix.
func (s *Store) DeleteByPrefix(ctx context.Context, collection, urlPrefix string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM items WHERE collection = ? AND url LIKE ? ESCAPE '\\'",
		collection, likePrefix(urlPrefix))
	if err != nil {
		return 0, domain.NewTransient("local", "delete_by_prefix", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, domain.NewPermanent("local", "delete_by_prefix", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, domain.NewTransient("local", "delete_by_prefix", err)
	}

	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, collection, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// likePrefix escapes LIKE wildcards in the prefix and appends %.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}
