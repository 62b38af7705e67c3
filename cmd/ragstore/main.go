package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/blob/fs"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/services"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	settingsStore, err := file.NewSettingsStore("")
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings from %s: %w", settingsStore.Path(), err)
	}

	store, err := vectordb.New(settings.Backend)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Cleanup() //nolint:errcheck

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Setup(setupCtx); err != nil {
		logger.Warn("Backend setup failed: %v (run 'ragstore setup' once the backend is reachable)", err)
	}
	cancel()

	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}

	embedder := createEmbedder(settings)
	llm := createLLM(settings, promptStore)

	blobs, err := fs.New("")
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	collections := settings.Backend.Collections()

	ingestService := services.NewIngestService(
		store, embedder, collections,
		settings.Chunking.ChunkSize,
		settings.Embedding.RequestsPerSecond,
	)

	searchService := services.NewRelevanceService(
		store, embedder, collections,
		settings.Relevance,
		services.NewLLMReranker(llm, promptStore),
	)

	libraryService := services.NewLibraryService(
		store, blobs, llm, collections,
		services.NewDateFilter(time.Local),
	)

	// Threshold changes in config.toml take effect without a restart.
	stopWatch, err := settingsStore.Watch(func(fresh domain.AppSettings) {
		searchService.UpdateSettings(fresh.Relevance)
		promptStore.Reload()
	})
	if err != nil {
		logger.Warn("Settings watch unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Ingest:   ingestService,
		Search:   searchService,
		Library:  libraryService,
		Store:    store,
		Settings: settingsStore,
	})

	defer closeServices(embedder, llm)
	return cli.Execute()
}

// createEmbedder builds the embedding service, degrading to nil (keyword-only
// search) when the provider is unconfigured or unreachable.
func createEmbedder(settings domain.AppSettings) driven.EmbeddingService {
	embedder, err := ai.CreateAndValidateEmbeddingService(settings.Embedding, settings.Backend.Dimensions)
	if err != nil {
		logger.Warn("%v", err)
		return nil
	}
	return embedder
}

// createLLM builds the LLM service, degrading to nil (no summaries or
// reranking) when the provider is unconfigured or unreachable.
func createLLM(settings domain.AppSettings, prompts driven.PromptStore) driven.LLMService {
	llm, err := ai.CreateAndValidateLLMService(settings.LLM)
	if err != nil {
		logger.Warn("%v", err)
		return nil
	}
	if aware, ok := llm.(driven.PromptStoreAware); ok {
		aware.SetPromptStore(prompts)
	}
	return llm
}

func closeServices(embedder driven.EmbeddingService, llm driven.LLMService) {
	if embedder != nil {
		embedder.Close() //nolint:errcheck
	}
	if llm != nil {
		llm.Close() //nolint:errcheck
	}
}
