// Package sqlite provides a SQLite-based implementation of the registry store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database holds:
//
//   - sources: the processed-source registry (one row per source id)
//   - chunks: per-source chunk text, start offsets and embeddings
//   - store_meta: bookkeeping such as the last mutation time
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The database is registry.db inside the data directory (~/.ragtube by
// default), next to the vector index snapshot.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Commit replaces a source's chunks and records its
// entry in one transaction.
package sqlite
