// Package vectordb constructs VectorStore backends from settings.
//
// This factory is the only place that branches on the backend type;
// everything above it works against the VectorStore port.
package vectordb

import (
	"fmt"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/local"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/memory"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/milvus"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectordb/weaviate"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// New builds the VectorStore the settings describe. Unknown backends and
// missing endpoints fail here, before the store sees any traffic.
func New(cfg domain.BackendSettings) (driven.VectorStore, error) {
	if !cfg.Backend.IsValid() {
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
	if cfg.Backend.RequiresEndpoint() && cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: backend %q needs an endpoint", domain.ErrInvalidInput, cfg.Backend)
	}

	collections := []domain.Collection{
		{Name: cfg.TextCollection, Kind: domain.CollectionText},
		{Name: cfg.ImageCollection, Kind: domain.CollectionImage},
	}

	switch cfg.Backend {
	case domain.BackendWeaviateCloud, domain.BackendWeaviateLocal:
		return weaviate.New(weaviate.Config{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
		}, collections), nil

	case domain.BackendMilvus:
		return milvus.New(milvus.Config{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Dimensions: cfg.Dimensions,
		}, collections), nil

	case domain.BackendLocal:
		return local.New(cfg.DataDir)

	case domain.BackendMemory:
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
