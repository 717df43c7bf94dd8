package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// IndexRow is one searchable chunk in the vector index.
type IndexRow struct {
	SourceID   string        `json:"source_id"`
	ChunkIndex int           `json:"chunk_index"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	URL        string        `json:"url"`
	Text       string        `json:"text"`
	Start      time.Duration `json:"start"`
	Vector     []float32     `json:"-"`
}

// VectorHit represents a vector similarity search result.
type VectorHit struct {
	// Row is the matched index row.
	Row IndexRow

	// RowID is the position of the row in the snapshot it was found in.
	// Equal scores are ordered by ascending RowID.
	RowID int

	// Score is the cosine similarity to the query.
	Score float64
}

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
//
// Readers never block on writers: a search observes one complete snapshot.
// Every successful mutation is persisted before it returns.
type VectorIndex interface {
	// Search returns at most k hits with score >= floor, best first.
	// An empty index yields an empty result.
	Search(ctx context.Context, query []float32, k int, floor float64) ([]VectorHit, error)

	// Append adds rows to the index.
	Append(ctx context.Context, rows []IndexRow) error

	// ReplaceSource drops the source's rows and appends the given ones.
	ReplaceSource(ctx context.Context, sourceID string, rows []IndexRow) error

	// RemoveSource drops the source's rows.
	RemoveSource(ctx context.Context, sourceID string) error

	// Rebuild swaps in a fresh index built from rows.
	// Returns domain.ErrIndexBusy if another rebuild is running.
	Rebuild(ctx context.Context, rows []IndexRow) error

	// SourceCounts returns the row count per source.
	SourceCounts() map[string]int

	// Stats returns counters for the current snapshot.
	Stats() domain.IndexStats

	// Close releases resources.
	Close() error
}
