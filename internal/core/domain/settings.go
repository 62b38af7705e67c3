package domain

const unknownDescription = "Unknown"

// Backend identifies a vector database backend.
type Backend string

// Available backends.
const (
	// BackendWeaviateCloud is a managed Weaviate cluster (endpoint + API key).
	BackendWeaviateCloud Backend = "weaviate-cloud"

	// BackendWeaviateLocal is a self-hosted Weaviate instance.
	BackendWeaviateLocal Backend = "weaviate-local"

	// BackendMilvus is a Milvus server (REST v2).
	BackendMilvus Backend = "milvus"

	// BackendLocal is the embedded SQLite + BM25 backend (no server).
	BackendLocal Backend = "local"

	// BackendMemory is the in-memory backend for tests and ephemeral use.
	BackendMemory Backend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b Backend) IsValid() bool {
	switch b {
	case BackendWeaviateCloud, BackendWeaviateLocal, BackendMilvus, BackendLocal, BackendMemory:
		return true
	default:
		return false
	}
}

// RequiresEndpoint returns true if this backend needs a server endpoint.
func (b Backend) RequiresEndpoint() bool {
	switch b {
	case BackendWeaviateCloud, BackendWeaviateLocal, BackendMilvus:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b Backend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b Backend) Description() string {
	switch b {
	case BackendWeaviateCloud:
		return "Weaviate (cloud cluster)"
	case BackendWeaviateLocal:
		return "Weaviate (self-hosted)"
	case BackendMilvus:
		return "Milvus (REST)"
	case BackendLocal:
		return "Local (embedded SQLite)"
	case BackendMemory:
		return "Memory (ephemeral)"
	default:
		return unknownDescription
	}
}

// BackendSettings holds vector backend configuration.
type BackendSettings struct {
	// Backend selects the adapter.
	Backend Backend

	// Endpoint is the server base URL (Weaviate, Milvus).
	Endpoint string

	// APIKey authenticates against cloud backends.
	APIKey string

	// DataDir is the storage directory for the local backend.
	DataDir string

	// TextCollection is the text collection/class name.
	TextCollection string

	// ImageCollection is the optional image collection/class name.
	ImageCollection string

	// Dimensions is the embedding vector size the collections are
	// created with. Must match the embedding model.
	Dimensions int
}

// Collections returns the configured collection set.
func (b BackendSettings) Collections() CollectionSet {
	return CollectionSet{Text: b.TextCollection, Image: b.ImageCollection}
}

// RelevanceSettings holds search thresholds and reranking configuration.
type RelevanceSettings struct {
	// TextThreshold is the minimum normalised score for text hits.
	TextThreshold float64

	// ImageThreshold is the minimum normalised score for image hits.
	ImageThreshold float64

	// RerankTopK is how many raw hits are handed to the reranker.
	RerankTopK int
}

// ThresholdFor returns the relevance threshold for the given kind.
func (r RelevanceSettings) ThresholdFor(kind CollectionKind) float64 {
	if kind == CollectionImage {
		return r.ImageThreshold
	}
	return r.TextThreshold
}

// ChunkingSettings holds the text chunking configuration.
type ChunkingSettings struct {
	// ChunkSize is the per-chunk character budget.
	ChunkSize int
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond caps embedding API calls during ingestion.
	// Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Backend holds vector database settings.
	Backend BackendSettings

	// Relevance holds thresholds and rerank settings.
	Relevance RelevanceSettings

	// Chunking holds text chunking settings.
	Chunking ChunkingSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; the local backend works without them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Backend: BackendSettings{
			Backend:         BackendLocal,
			TextCollection:  "RagStoreDocs",
			ImageCollection: "RagStoreImages",
			Dimensions:      768,
		},
		Relevance: RelevanceSettings{
			TextThreshold:  DefaultTextThreshold,
			ImageThreshold: DefaultImageThreshold,
			RerankTopK:     DefaultRerankTopK,
		},
		Chunking: ChunkingSettings{
			ChunkSize: 1000,
		},
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
	}
}
