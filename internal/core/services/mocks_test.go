package services

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// stubEmbedder returns a fixed vector for every input.
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int            { return len(s.vector) }
func (s *stubEmbedder) ModelName() string          { return "stub-embed" }
func (s *stubEmbedder) Ping(context.Context) error { return nil }
func (s *stubEmbedder) Close() error               { return nil }

// stubLLM returns canned completions and summaries.
type stubLLM struct {
	generated string
	summary   string
	err       error
	calls     int
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.generated, nil
}

func (s *stubLLM) Summarise(context.Context, string, int) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func (s *stubLLM) ModelName() string          { return "stub-llm" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

// stubBlobStore records removed paths.
type stubBlobStore struct {
	removed []string
	err     error
}

func (s *stubBlobStore) Remove(_ context.Context, path string) error {
	if s.err != nil {
		return s.err
	}
	s.removed = append(s.removed, path)
	return nil
}

// flakyStore wraps a VectorStore, overriding selected operations with
// scripted failures.
type flakyStore struct {
	driven.VectorStore

	searchErrs []error // consumed one per Search call, nil entries pass through
	deleteFail map[string]error
	updateErr  error
}

func (f *flakyStore) Search(ctx context.Context, collection string, query domain.SearchQuery) ([]domain.RankedHit, error) {
	if len(f.searchErrs) > 0 {
		err := f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.VectorStore.Search(ctx, collection, query)
}

func (f *flakyStore) Delete(ctx context.Context, collection, id string) error {
	if err, ok := f.deleteFail[id]; ok {
		return err
	}
	return f.VectorStore.Delete(ctx, collection, id)
}

func (f *flakyStore) UpdateMetadata(ctx context.Context, collection, id string, patch map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.VectorStore.UpdateMetadata(ctx, collection, id, patch)
}

// testCollections is the collection set used throughout the service tests.
var testCollections = domain.CollectionSet{Text: "TestDocs", Image: "TestImages"}
