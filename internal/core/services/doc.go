// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingestion, index administration and source removal share one
// CommitLock so the registry and the vector index change together.
package services
