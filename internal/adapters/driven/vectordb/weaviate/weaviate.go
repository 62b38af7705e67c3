// Package weaviate provides a Weaviate-backed VectorStore adapter over the
// REST and GraphQL APIs. One adapter serves both the cloud and self-hosted
// variants; they differ only in endpoint and authentication.
//
// Weaviate stores the open metadata map JSON-encoded in a single "meta"
// text property. That quirk stays inside this package: items cross the
// boundary with a canonical in-memory map.
package weaviate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
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

// hybridAlpha weights vector similarity against keyword matching in
// hybrid queries (0 = pure keyword, 1 = pure vector).
const hybridAlpha = 0.75

// Config holds connection settings for a Weaviate instance.
type Config struct {
	// Endpoint is the base URL (e.g. http://localhost:8080 or a cloud
	// cluster URL).
	Endpoint string

	// APIKey authenticates cloud clusters. Empty for local instances.
	APIKey string

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Store implements driven.VectorStore against Weaviate.
type Store struct {
	endpoint    string
	apiKey      string
	client      *http.Client
	collections []domain.Collection
}

// New creates a Weaviate vector store for the given collections.
func New(cfg Config, collections []domain.Collection) *Store {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		collections: collections,
	}
}

// Name returns the backend identifier.
func (s *Store) Name() string { return "weaviate" }

// Cleanup releases pooled connections. Safe to call repeatedly.
func (s *Store) Cleanup() error {
	s.client.CloseIdleConnections()
	return nil
}

// doJSON executes one REST call and decodes the response body.
func (s *Store) doJSON(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, domain.NewPermanent("weaviate", method, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewPermanent("weaviate", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Connection and timeout failures are retryable.
		return nil, domain.NewTransient("weaviate", method+" "+path, err)
	}
	defer resp.Body.Close()

	var result json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&result)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, domain.NewTransient("weaviate", path,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(result)))
	case resp.StatusCode >= 400:
		return nil, domain.NewPermanent("weaviate", path,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(result)))
	}
	return result, nil
}

// Setup idempotently ensures every configured collection exists.
func (s *Store) Setup(ctx context.Context) error {
	for _, coll := range s.collections {
		if coll.Name == "" {
			continue
		}
		_, err := s.doJSON(ctx, http.MethodGet, "/v1/schema/"+coll.Name, nil)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
		}

		properties := []map[string]any{
			{"name": "url", "dataType": []string{"text"}},
			{"name": "content", "dataType": []string{"text"}},
			{"name": "meta", "dataType": []string{"text"}},
			{"name": "date_added", "dataType": []string{"date"}},
		}
		if coll.Kind == domain.CollectionImage {
			properties = append(properties, map[string]any{
				"name": "image", "dataType": []string{"blob"},
			})
		}
		schema := map[string]any{
			"class":      coll.Name,
			"vectorizer": "none",
			"properties": properties,
		}
		if _, err := s.doJSON(ctx, http.MethodPost, "/v1/schema", schema); err != nil {
			return fmt.Errorf("%w: create class %s: %v", domain.ErrBackendUnavailable, coll.Name, err)
		}
		logger.Info("Created Weaviate class %s", coll.Name)
	}
	return nil
}

// objectBody builds the REST representation of one item.
func objectBody(collection string, item domain.StoredItem) (map[string]any, error) {
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return nil, err
	}

	props := map[string]any{
		"url":     item.URL,
		"content": item.Text,
		"meta":    string(meta),
	}
	if added, ok := item.Metadata[domain.MetaDateAdded].(string); ok {
		props["date_added"] = added
	}
	if len(item.Image) > 0 {
		props["image"] = base64.StdEncoding.EncodeToString(item.Image)
	}

	obj := map[string]any{
		"class":      collection,
		"properties": props,
	}
	if item.ID != "" {
		obj["id"] = item.ID
	}
	if len(item.Embedding) > 0 {
		obj["vector"] = item.Embedding
	}
	return obj, nil
}

// Write inserts items one at a time so failure stays per item.
func (s *Store) Write(ctx context.Context, collection string, items []domain.StoredItem) []domain.WriteResult {
	results := make([]domain.WriteResult, len(items))
	for i, item := range items {
		results[i] = domain.WriteResult{ID: item.ID, URL: item.URL}

		obj, err := objectBody(collection, item)
		if err != nil {
			results[i].Err = domain.NewPermanent("weaviate", "write", err)
			continue
		}
		if _, err := s.doJSON(ctx, http.MethodPost, "/v1/objects", obj); err != nil {
			results[i].Err = err
		}
	}
	return results
}

// restObject is the REST shape of one stored object.
type restObject struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Vector     []float32      `json:"vector"`
}

// toItem converts a REST object into the canonical StoredItem.
func toItem(obj restObject) domain.StoredItem {
	item := domain.StoredItem{
		ID:        obj.ID,
		Embedding: obj.Vector,
		Metadata:  map[string]any{},
	}
	if url, ok := obj.Properties["url"].(string); ok {
		item.URL = url
	}
	if content, ok := obj.Properties["content"].(string); ok {
		item.Text = content
	}
	if meta, ok := obj.Properties["meta"].(string); ok && meta != "" {
		_ = json.Unmarshal([]byte(meta), &item.Metadata)
	}
	if img, ok := obj.Properties["image"].(string); ok && img != "" {
		if decoded, err := base64.StdEncoding.DecodeString(img); err == nil {
			item.Image = decoded
		}
	}
	return item
}

// Get retrieves one item by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.StoredItem, error) {
	raw, err := s.doJSON(ctx, http.MethodGet,
		fmt.Sprintf("/v1/objects/%s/%s?include=vector", collection, id), nil)
	if err != nil {
		return nil, err
	}

	var obj restObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, domain.NewPermanent("weaviate", "get", err)
	}
	item := toItem(obj)
	return &item, nil
}

// graphql executes one GraphQL query and returns the per-class object list.
func (s *Store) graphql(ctx context.Context, collection, query string) ([]gqlObject, error) {
	body := map[string]string{"query": query}
	raw, err := s.doJSON(ctx, http.MethodPost, "/v1/graphql", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Get map[string][]gqlObject `json:"Get"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.NewPermanent("weaviate", "graphql", err)
	}
	if len(resp.Errors) > 0 {
		return nil, domain.NewPermanent("weaviate", "graphql",
			errors.New(resp.Errors[0].Message))
	}
	return resp.Data.Get[collection], nil
}

// gqlObject is the GraphQL shape of one hit.
type gqlObject struct {
	URL        string `json:"url"`
	Content    string `json:"content"`
	Meta       string `json:"meta"`
	Additional struct {
		ID        string  `json:"id"`
		Certainty float64 `json:"certainty"`
		Score     string  `json:"score"`
	} `json:"_additional"`
}

func (o gqlObject) toItem() domain.StoredItem {
	item := domain.StoredItem{
		ID:       o.Additional.ID,
		URL:      o.URL,
		Text:     o.Content,
		Metadata: map[string]any{},
	}
	if o.Meta != "" {
		_ = json.Unmarshal([]byte(o.Meta), &item.Metadata)
	}
	return item
}

// List returns items sorted by date_added descending with offset pagination.
func (s *Store) List(ctx context.Context, collection string, limit, offset int) ([]domain.StoredItem, error) {
	query := fmt.Sprintf(
		`{Get{%s(sort:[{path:["date_added"],order:desc}],limit:%d,offset:%d){url content meta _additional{id}}}}`,
		collection, limit, offset)

	objects, err := s.graphql(ctx, collection, query)
	if err != nil {
		return nil, err
	}

	items := make([]domain.StoredItem, len(objects))
	for i, obj := range objects {
		items[i] = obj.toItem()
	}
	return items, nil
}

// Search executes the query. Weaviate supports all three modes natively.
func (s *Store) Search(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	text, err := json.Marshal(query.Text)
	if err != nil {
		return nil, domain.NewPermanent("weaviate", "search", err)
	}

	var clause, scoreField string
	switch query.Mode {
	case domain.SearchModeVector:
		vec, _ := json.Marshal(query.Vector)
		clause = fmt.Sprintf(`nearVector:{vector:%s}`, vec)
		scoreField = "certainty"
	case domain.SearchModeHybrid:
		vec, _ := json.Marshal(query.Vector)
		clause = fmt.Sprintf(`hybrid:{query:%s,vector:%s,alpha:%g,fusionType:relativeScoreFusion}`,
			text, vec, hybridAlpha)
		scoreField = "score"
	case domain.SearchModeKeyword:
		clause = fmt.Sprintf(`bm25:{query:%s,properties:["content","url","meta"]}`, text)
		scoreField = "score"
	default:
		return nil, domain.NewPermanent("weaviate", "search",
			fmt.Errorf("%w: %q", domain.ErrUnsupportedMode, query.Mode))
	}

	gql := fmt.Sprintf(`{Get{%s(%s,limit:%d){url content meta _additional{id %s}}}}`,
		collection, clause, query.TopK, scoreField)

	objects, err := s.graphql(ctx, collection, gql)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.RankedHit, len(objects))
	for i, obj := range objects {
		score := obj.Additional.Certainty
		if query.Mode != domain.SearchModeVector {
			score = normaliseScore(obj.Additional.Score, query.Mode)
		}
		hits[i] = domain.RankedHit{Item: obj.toItem(), Score: score}
	}
	return hits, nil
}

// normaliseScore rescales Weaviate's string-encoded scores into [0,1].
// Relative-fusion hybrid scores already land in [0,1]; BM25 scores are
// unbounded and are squashed with s/(s+1).
func normaliseScore(raw string, mode domain.SearchMode) float64 {
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || score < 0 {
		return 0
	}
	if mode == domain.SearchModeKeyword {
		score = score / (score + 1)
	}
	if score > 1 {
		score = 1
	}
	return score
}

// UpdateMetadata shallow-merges the patch into the item's metadata.
// The merge happens client-side because metadata is one JSON property.
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
		return domain.NewPermanent("weaviate", "update_metadata", err)
	}

	body := map[string]any{
		"class":      collection,
		"properties": map[string]any{"meta": string(meta)},
	}
	_, err = s.doJSON(ctx, http.MethodPatch,
		fmt.Sprintf("/v1/objects/%s/%s", collection, id), body)
	return err
}

// Delete removes one item. Absent IDs are not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.doJSON(ctx, http.MethodDelete,
		fmt.Sprintf("/v1/objects/%s/%s", collection, id), nil)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteByPrefix removes every item whose URL starts with the prefix
// using a batch delete with a Like filter.
func (s *Store) DeleteByPrefix(ctx context.Context, collection, urlPrefix string) (int, error) {
	body := map[string]any{
		"match": map[string]any{
			"class": collection,
			"where": map[string]any{
				"path":      []string{"url"},
				"operator":  "Like",
				"valueText": urlPrefix + "*",
			},
		},
	}
	raw, err := s.doJSON(ctx, http.MethodDelete, "/v1/batch/objects", body)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Results struct {
			Successful int `json:"successful"`
		} `json:"results"`
	}
	_ = json.Unmarshal(raw, &resp)
	return resp.Results.Successful, nil
}
