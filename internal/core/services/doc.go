// Package services implements the driving port interfaces.
// Services contain the core business logic - chunked ingestion, relevance
// search with thresholds and reranking, grouped listing and deletion, the
// summary metadata cache and the datetime filter - and orchestrate calls
// to driven ports (adapters).
package services
