package domain

// SearchMode selects the retrieval strategy executed by a backend.
type SearchMode string

const (
	// SearchModeVector is dense vector similarity search.
	SearchModeVector SearchMode = "vector"

	// SearchModeKeyword is sparse keyword/BM25 search.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeHybrid combines vector similarity with keyword matching
	// across filename, OCR text, EXIF and classification fields.
	SearchModeHybrid SearchMode = "hybrid"
)

// Valid reports whether the mode is one of the defined strategies.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeVector, SearchModeKeyword, SearchModeHybrid:
		return true
	}
	return false
}

// SearchQuery describes one search executed against a backend collection.
type SearchQuery struct {
	// Text is the free-text query.
	Text string

	// Vector is the query embedding, computed client-side. Nil when the
	// backend vectorises server-side or for keyword-only search.
	Vector []float32

	// TopK is the maximum number of hits to return.
	TopK int

	// Mode is the retrieval strategy.
	Mode SearchMode
}

// RankedHit is one search result with a normalised score.
type RankedHit struct {
	Item StoredItem

	// Score is the backend score rescaled into [0,1].
	Score float64
}

// QueryOptions configures a relevance query.
type QueryOptions struct {
	// TopK is the maximum number of hits (default 10).
	TopK int

	// Mode forces a strategy. Empty selects the best available
	// (hybrid, then vector, then keyword).
	Mode SearchMode

	// Rerank enables LLM-based reordering of the top hits.
	Rerank bool
}

// Default relevance thresholds on the normalised score. Hits below the
// threshold for their collection are dropped entirely.
const (
	DefaultTextThreshold  = 0.4
	DefaultImageThreshold = 0.3
)

// DefaultRerankTopK is how many raw hits are handed to the reranker.
const DefaultRerankTopK = 10
