// Package ai provides factory functions for creating AI service adapters.
//
// Both services are optional: an unconfigured provider yields a nil
// service, and the core degrades gracefully (no embeddings means
// keyword-only search, no LLM means no summaries or reranking).
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragstore/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragstore/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates
// connectivity. Returns nil without error when the provider is not configured.
func CreateAndValidateEmbeddingService(settings domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragstore setup' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragstore setup' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates
// connectivity. Returns nil without error when the provider is not configured.
func CreateAndValidateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragstore setup' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragstore setup' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on
// settings. The dimensions come from the backend configuration so collections
// and embeddings agree. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
