// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TranscriptFetcher: Retrieves timed transcripts for a video
//   - EmbeddingService: Generates vector embeddings
//   - RegistryStore: Processed-source registry and chunk metadata persistence
//   - VectorIndex: Similarity search over chunk embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer and summary generation. Without it, ask is disabled.
//   - FileWatcher: Transcript drop-directory monitoring.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
