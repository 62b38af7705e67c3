// Package milvus provides a Milvus-backed VectorStore adapter over the
// v2 RESTful API.
//
// Milvus serves vector search only here; keyword and hybrid queries
// report ErrUnsupportedMode and the search service falls back to a mode
// the backend can run.
package milvus

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTimeout bounds every backend call unless the caller's context
// expires first.
const DefaultTimeout = 30 * time.Second

// Config holds connection settings for a Milvus instance.
type Config struct {
	// Endpoint is the base URL (e.g. http://localhost:19530).
	Endpoint string

	// APIKey authenticates managed clusters. Empty for local instances.
	APIKey string

	// Dimensions is the embedding vector size used when creating
	// collections.
	Dimensions int

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Store implements driven.VectorStore against Milvus.
type Store struct {
	endpoint    string
	apiKey      string
	dimensions  int
	client      *http.Client
	collections []domain.Collection
}

// New creates a Milvus vector store for the given collections.
func New(cfg Config, collections []domain.Collection) *Store {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		dimensions:  cfg.Dimensions,
		client:      &http.Client{Timeout: cfg.Timeout},
		collections: collections,
	}
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "milvus" }

// Cleanup releases pooled connections. Safe to call repeatedly.
func (s *Store) Cleanup() error {
	s.client.CloseIdleConnections()
	return nil
}

// milvusResponse is the envelope every v2 endpoint returns.
type milvusResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// post executes one v2 API call. Milvus signals errors both through HTTP
// status and through the envelope code.
func (s *Store) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewPermanent("milvus", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewPermanent("milvus", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewTransient("milvus", path, err)
	}
	defer resp.Body.Close()

	var envelope milvusResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, domain.NewTransient("milvus", path,
			fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, domain.NewTransient("milvus", path,
			fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Message))
	case resp.StatusCode >= 400:
		return nil, domain.NewPermanent("milvus", path,
			fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Message))
	case envelope.Code != 0:
		return nil, domain.NewPermanent("milvus", path,
			fmt.Errorf("code %d: %s", envelope.Code, envelope.Message))
	}
	return envelope.Data, nil
}

// Setup idempotently ensures every configured collection exists.
func (s *Store) Setup(ctx context.Context) error {
	for _, coll := range s.collections {
		if coll.Name == "" {
			continue
		}

		raw, err := s.post(ctx, "/v2/vectordb/collections/has", map[string]any{
			"collectionName": coll.Name,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
		}
		var has struct {
			Has bool `json:"has"`
		}
		_ = json.Unmarshal(raw, &has)
		if has.Has {
			continue
		}

		schema := map[string]any{
			"collectionName": coll.Name,
			"schema": map[string]any{
				"autoId": false,
				"fields": []map[string]any{
					{
						"fieldName": "id",
						"dataType":  "VarChar",
						"isPrimary": true,
						"elementTypeParams": map[string]any{
							"max_length": 64,
						},
					},
					{
						"fieldName": "vector",
						"dataType":  "FloatVector",
						"elementTypeParams": map[string]any{
							"dim": s.dimensions,
						},
					},
					{
						"fieldName": "url",
						"dataType":  "VarChar",
						"elementTypeParams": map[string]any{
							"max_length": 2048,
						},
					},
					{
						"fieldName": "content",
						"dataType":  "VarChar",
						"elementTypeParams": map[string]any{
							"max_length": 65535,
						},
					},
					{
						"fieldName": "image",
						"dataType":  "VarChar",
						"elementTypeParams": map[string]any{
							"max_length": 10485760,
						},
					},
					{"fieldName": "meta", "dataType": "JSON"},
					{
						"fieldName": "date_added",
						"dataType":  "VarChar",
						"elementTypeParams": map[string]any{
							"max_length": 64,
						},
					},
				},
			},
			"indexParams": []map[string]any{
				{
					"fieldName":  "vector",
					"indexName":  "vector_idx",
					"metricType": "COSINE",
				},
			},
		}
		if _, err := s.post(ctx, "/v2/vectordb/collections/create", schema); err != nil {
			return fmt.Errorf("%w: create collection %s: %v", domain.ErrBackendUnavailable, coll.Name, err)
		}
		logger.Info("Created Milvus collection %s", coll.Name)
	}
	return nil
}

// rowFields is the field list every read asks for. The vector comes back
// too so a read-modify-write (UpdateMetadata) never drops the embedding.
var rowFields = []string{"id", "vector", "url", "content", "image", "meta", "date_added"}

// toRow builds the insert representation of one item.
func toRow(item domain.StoredItem) map[string]any {
	dateAdded, _ := item.Metadata[domain.MetaDateAdded].(string)
	image := ""
	if len(item.Image) > 0 {
		image = base64.StdEncoding.EncodeToString(item.Image)
	}
	meta := item.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"id":         item.ID,
		"vector":     item.Embedding,
		"url":        item.URL,
		"content":    item.Text,
		"image":      image,
		"meta":       meta,
		"date_added": dateAdded,
	}
}

// fromRow converts one result row into the canonical StoredItem.
func fromRow(row map[string]any) domain.StoredItem {
	item := domain.StoredItem{Metadata: map[string]any{}}
	if id, ok := row["id"].(string); ok {
		item.ID = id
	}
	if url, ok := row["url"].(string); ok {
		item.URL = url
	}
	if content, ok := row["content"].(string); ok {
		item.Text = content
	}
	if image, ok := row["image"].(string); ok && image != "" {
		if decoded, err := base64.StdEncoding.DecodeString(image); err == nil {
			item.Image = decoded
		}
	}
	if vector, ok := row["vector"].([]any); ok {
		item.Embedding = make([]float32, 0, len(vector))
		for _, v := range vector {
			if f, ok := v.(float64); ok {
				item.Embedding = append(item.Embedding, float32(f))
			}
		}
	}
	switch meta := row["meta"].(type) {
	case map[string]any:
		item.Metadata = meta
	case string:
		// Some deployments return JSON fields as strings.
		_ = json.Unmarshal([]byte(meta), &item.Metadata)
	}
	if item.Metadata == nil {
		// A JSON "null" meta unmarshals to a nil map; callers merge into it.
		item.Metadata = map[string]any{}
	}
	return item
}

// Write upserts items one at a time so failure stays per item.
func (s *Store) Write(ctx context.Context, collection string, items []domain.StoredItem) []domain.WriteResult {
	results := make([]domain.WriteResult, len(items))
	for i, item := range items {
		results[i] = domain.WriteResult{ID: item.ID, URL: item.URL}
		_, err := s.post(ctx, "/v2/vectordb/entities/upsert", map[string]any{
			"collectionName": collection,
			"data":           []map[string]any{toRow(item)},
		})
		if err != nil {
			results[i].Err = err
		}
	}
	return results
}

// query runs a filter expression and decodes the matching rows.
func (s *Store) query(ctx context.Context, collection, filter string, limit, offset int) ([]map[string]any, error) {
	body := map[string]any{
		"collectionName": collection,
		"filter":         filter,
		"outputFields":   rowFields,
		"limit":          limit,
	}
	if offset > 0 {
		body["offset"] = offset
	}
	raw, err := s.post(ctx, "/v2/vectordb/entities/query", body)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, domain.NewPermanent("milvus", "query", err)
	}
	return rows, nil
}

// Get retrieves one item by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.StoredItem, error) {
	rows, err := s.query(ctx, collection, fmt.Sprintf("id == %q", id), 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	item := fromRow(rows[0])
	return &item, nil
}

// List returns items newest first. Milvus queries do not sort, so the
// window is fetched and ordered client-side.
func (s *Store) List(ctx context.Context, collection string, limit, offset int) ([]domain.StoredItem, error) {
	rows, err := s.query(ctx, collection, `id != ""`, limit+offset, 0)
	if err != nil {
		return nil, err
	}

	items := make([]domain.StoredItem, len(rows))
	for i, row := range rows {
		items[i] = fromRow(row)
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, _ := items[i].Metadata[domain.MetaDateAdded].(string)
		dj, _ := items[j].Metadata[domain.MetaDateAdded].(string)
		return di > dj
	})

	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Search executes a vector query. Keyword and hybrid modes are not
// available on this backend.
func (s *Store) Search(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	if query.Mode != domain.SearchModeVector {
		return nil, fmt.Errorf("%w: milvus supports vector search only, got %q",
			domain.ErrUnsupportedMode, query.Mode)
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: vector search needs an embedding", domain.ErrInvalidInput)
	}

	raw, err := s.post(ctx, "/v2/vectordb/entities/search", map[string]any{
		"collectionName": collection,
		"data":           [][]float32{query.Vector},
		"annsField":      "vector",
		"limit":          query.TopK,
		"outputFields":   rowFields,
	})
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, domain.NewPermanent("milvus", "search", err)
	}

	hits := make([]domain.RankedHit, 0, len(rows))
	for _, row := range rows {
		distance, _ := row["distance"].(float64)
		// COSINE distance is similarity in [-1,1]; rescale to [0,1].
		score := (distance + 1) / 2
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		hits = append(hits, domain.RankedHit{Item: fromRow(row), Score: score})
	}
	return hits, nil
}

// UpdateMetadata shallow-merges the patch into the item's metadata.
// Milvus has no partial update, so the merged row is upserted whole.
func (s *Store) UpdateMetadata(ctx context.Context, collection, id string, patch map[string]any) error {
	item, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	for k, v := range patch {
		item.Metadata[k] = v
	}
	results := s.Write(ctx, collection, []domain.StoredItem{*item})
	return results[0].Err
}

// Delete removes one item. Absent IDs are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.post(ctx, "/v2/vectordb/entities/delete", map[string]any{
		"collectionName": collection,
		"filter":         fmt.Sprintf("id == %q", id),
	})
	return err
}

// DeleteByPrefix removes every item whose URL starts with the prefix.
// Matching runs client-side because LIKE support varies by version.
func (s *Store) DeleteByPrefix(ctx context.Context, collection, urlPrefix string) (int, error) {
	rows, err := s.query(ctx, collection, `id != ""`, 16384, 0)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, row := range rows {
		url, _ := row["url"].(string)
		id, _ := row["id"].(string)
		if id == "" || !strings.HasPrefix(url, urlPrefix) {
			continue
		}
		if err := s.Delete(ctx, collection, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
