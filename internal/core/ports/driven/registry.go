package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// RegistryStore persists the processed-source registry together with the
// chunk metadata and embeddings of every successfully ingested source.
// It is the durable input the vector index is rebuilt from.
type RegistryStore interface {
	// Contains reports whether the source has a success entry.
	// Failed and skipped entries do not count.
	Contains(ctx context.Context, sourceID string) (bool, error)

	// Get returns the entry for a source or domain.ErrNotFound.
	Get(ctx context.Context, sourceID string) (*domain.RegistryEntry, error)

	// List returns every entry regardless of status, oldest first.
	List(ctx context.Context) ([]domain.RegistryEntry, error)

	// Count returns the number of entries regardless of status.
	Count(ctx context.Context) (int, error)

	// Record upserts an entry. Durable once it returns.
	Record(ctx context.Context, entry domain.RegistryEntry) error

	// Commit atomically replaces the source's chunks and records the entry.
	Commit(ctx context.Context, entry domain.RegistryEntry, chunks []domain.Chunk) error

	// Delete removes the entry and its chunks. Missing sources are not an error.
	Delete(ctx context.Context, sourceID string) error

	// Chunks returns the stored chunks of one source in index order.
	Chunks(ctx context.Context, sourceID string) ([]domain.Chunk, error)

	// AllChunks returns every stored chunk with its source metadata,
	// ordered by commit sequence and then chunk index.
	AllChunks(ctx context.Context) ([]domain.StoredChunk, error)

	// ChunkCounts returns the stored chunk count per source.
	ChunkCounts(ctx context.Context) (map[string]int, error)

	// LastUpdated returns the time of the most recent mutation.
	LastUpdated(ctx context.Context) (time.Time, error)

	// Close releases resources.
	Close() error
}
