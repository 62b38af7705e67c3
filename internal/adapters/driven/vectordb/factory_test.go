package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestNew_BackendSelection(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.BackendSettings
		want     string
	}{
		{
			name: "weaviate cloud",
			settings: domain.BackendSettings{
				Backend:  domain.BackendWeaviateCloud,
				Endpoint: "https://cluster.weaviate.cloud",
				APIKey:   "key",
			},
			want: "weaviate",
		},
		{
			name: "weaviate local",
			settings: domain.BackendSettings{
				Backend:  domain.BackendWeaviateLocal,
				Endpoint: "http://localhost:8080",
			},
			want: "weaviate",
		},
		{
			name: "milvus",
			settings: domain.BackendSettings{
				Backend:  domain.BackendMilvus,
				Endpoint: "http://localhost:19530",
			},
			want: "milvus",
		},
		{
			name: "local",
			settings: domain.BackendSettings{
				Backend: domain.BackendLocal,
				DataDir: t.TempDir(),
			},
			want: "local",
		},
		{
			name:     "memory",
			settings: domain.BackendSettings{Backend: domain.BackendMemory},
			want:     "memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.settings)
			require.NoError(t, err)
			defer store.Cleanup() //nolint:errcheck

			assert.Equal(t, tt.want, store.Name())
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(domain.BackendSettings{Backend: domain.Backend("cassandra")})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_MissingEndpoint(t *testing.T) {
	for _, backend := range []domain.Backend{
		domain.BackendWeaviateCloud,
		domain.BackendWeaviateLocal,
		domain.BackendMilvus,
	} {
		_, err := New(domain.BackendSettings{Backend: backend})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, string(backend))
	}
}
