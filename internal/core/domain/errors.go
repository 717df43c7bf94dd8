package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates invalid settings, such as a chunk overlap
	// that is not smaller than the chunk size. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// Fetch Errors.

	// ErrFetchRateLimited indicates the transcript provider throttled the request.
	// Retryable after a backoff.
	ErrFetchRateLimited = errors.New("transcript fetch rate limited")

	// ErrFetchUnavailable indicates no transcript exists in any requested language.
	// Terminal for the source.
	ErrFetchUnavailable = errors.New("transcript unavailable")

	// Provider Errors.

	// ErrEmbeddingProvider indicates the embedding provider failed after retries.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationProvider indicates the generative model failed.
	// Generation is not retried automatically.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrIndexCorrupted indicates the persisted index snapshot could not be
	// read. The index serves no results until it is rebuilt.
	ErrIndexCorrupted = errors.New("vector index corrupted")

	// ErrIndexBusy indicates a rebuild is already running. Callers may retry.
	ErrIndexBusy = errors.New("vector index rebuild in progress")

	// ErrDimensionMismatch indicates an embedding whose length differs from the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
