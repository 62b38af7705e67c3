package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Reranker reorders search candidates by relevance to the query.
// It returns the same candidates in a new order and never introduces new
// ones. Supplied by configuration or the caller so the core stays testable
// with a deterministic stub.
type Reranker func(ctx context.Context, query string, candidates []domain.RankedHit) ([]domain.RankedHit, error)

// defaultRerankPrompt is used when no prompt store is configured.
const defaultRerankPrompt = `Rank the following search results by relevance to the query.
Return ONLY the result numbers in ranked order, best first, comma-separated.

Query: %s

Results:
%s

Ranking:`

// NewLLMReranker builds a Reranker backed by an LLM completion.
// The prompt template is loaded from store when provided, falling back to
// the embedded default.
func NewLLMReranker(llm driven.LLMService, store driven.PromptStore) Reranker {
	return func(ctx context.Context, query string, candidates []domain.RankedHit) ([]domain.RankedHit, error) {
		if llm == nil {
			return nil, domain.ErrLLMUnavailable
		}

		template := defaultRerankPrompt
		if store != nil {
			if loaded, err := store.Load(driven.PromptRerank); err == nil && loaded != "" {
				template = loaded
			}
		}

		var listing strings.Builder
		for i, c := range candidates {
			snippet := c.Item.Text
			if len(snippet) > 300 {
				snippet = snippet[:300]
			}
			fmt.Fprintf(&listing, "%d. %s\n", i+1, snippet)
		}

		prompt := fmt.Sprintf(template, query, listing.String())
		answer, err := llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 100})
		if err != nil {
			return nil, fmt.Errorf("rerank completion: %w", err)
		}

		order, err := parseRanking(answer, len(candidates))
		if err != nil {
			return nil, err
		}

		reordered := make([]domain.RankedHit, 0, len(candidates))
		for _, idx := range order {
			reordered = append(reordered, candidates[idx])
		}
		return reordered, nil
	}
}

// parseRanking extracts a permutation of 0..n-1 from a comma-separated
// 1-based ranking. Missing positions are appended in original order so a
// truncated answer still yields a full reordering.
func parseRanking(answer string, n int) ([]int, error) {
	seen := make(map[int]bool, n)
	order := make([]int, 0, n)

	for _, field := range strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' '
	}) {
		field = strings.TrimSuffix(strings.TrimSpace(field), ".")
		num, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		idx := num - 1
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("unparseable ranking: %q", answer)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order, nil
}
