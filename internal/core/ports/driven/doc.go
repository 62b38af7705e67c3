// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: The backend adapter contract over one vector database.
//     Construction is routed through the vectordb factory; no backend-type
//     branching happens outside it.
//   - SettingsStore: Application configuration persistence.
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, vector and
//     hybrid search fall back to keyword search.
//   - LLMService: Language model operations. Without it, summaries and
//     reranking are disabled.
//   - BlobStore: Removes stored binaries on delete. Without it, blob
//     cleanup is skipped.
//   - PromptStore: User-customisable prompt templates. Without it, embedded
//     defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
