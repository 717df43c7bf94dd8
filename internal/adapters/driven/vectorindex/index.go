package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// FileName is the snapshot file name inside the data directory.
const FileName = "index.snap"

// cancelCheckInterval is how many rows a search scans between context checks.
const cancelCheckInterval = 1024

type snapshot struct {
	rows      []driven.IndexRow
	norms     []float64
	dims      int
	updatedAt time.Time
	corrupted bool
}

func (s *snapshot) sourceCounts() map[string]int {
	counts := make(map[string]int)
	for i := range s.rows {
		counts[s.rows[i].SourceID]++
	}
	return counts
}

// Index is a flat cosine-similarity index.
type Index struct {
	path       string
	writeMu    sync.Mutex
	rebuilding atomic.Bool
	current    atomic.Pointer[snapshot]
	now        func() time.Time
}

// Open loads the index snapshot from dataDir, creating the directory if
// needed. A missing snapshot yields an empty index. A damaged snapshot
// yields an index that reports itself corrupted; Open itself only fails
// when the file cannot be read at all.
func Open(dataDir string) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	idx := &Index{
		path: filepath.Join(dataDir, FileName),
		now:  time.Now,
	}

	snap, err := readSnapshot(idx.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("vector index: no snapshot at %s, starting empty", idx.path)
		snap = &snapshot{}
	case errors.Is(err, domain.ErrIndexCorrupted):
		logger.Error("vector index at %s is corrupted (%v); rebuild required", idx.path, err)
		snap = &snapshot{corrupted: true}
	case err != nil:
		return nil, err
	default:
		logger.Debug("vector index: loaded %d rows (%d dims)", len(snap.rows), snap.dims)
	}

	idx.current.Store(snap)
	return idx, nil
}

// Path returns the snapshot file path.
func (idx *Index) Path() string {
	return idx.path
}

// Search scans the current snapshot for the k rows most similar to query.
func (idx *Index) Search(ctx context.Context, query []float32, k int, floor float64) ([]driven.VectorHit, error) {
	snap := idx.current.Load()
	if snap.corrupted {
		return nil, domain.ErrIndexCorrupted
	}
	if len(snap.rows) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != snap.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), snap.dims)
	}

	qNorm := norm(query)
	hits := make([]driven.VectorHit, 0, k)
	for i := range snap.rows {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := cosine(query, qNorm, snap.rows[i].Vector, snap.norms[i])
		if score < floor {
			continue
		}
		hits = append(hits, driven.VectorHit{Row: snap.rows[i], RowID: i, Score: score})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].RowID < hits[b].RowID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Append adds rows after the existing ones.
func (idx *Index) Append(_ context.Context, rows []driven.IndexRow) error {
	if len(rows) == 0 {
		return nil
	}
	return idx.mutate(func(cur *snapshot) []driven.IndexRow {
		return append(append([]driven.IndexRow(nil), cur.rows...), rows...)
	}, rows)
}

// ReplaceSource drops every row of sourceID and appends rows.
func (idx *Index) ReplaceSource(_ context.Context, sourceID string, rows []driven.IndexRow) error {
	return idx.mutate(func(cur *snapshot) []driven.IndexRow {
		return append(without(cur.rows, sourceID), rows...)
	}, rows)
}

// RemoveSource drops every row of sourceID.
func (idx *Index) RemoveSource(_ context.Context, sourceID string) error {
	return idx.mutate(func(cur *snapshot) []driven.IndexRow {
		return without(cur.rows, sourceID)
	}, nil)
}

// Rebuild replaces the whole index with rows, clearing a corrupted state.
// Searches keep using the previous snapshot until the new one is published.
func (idx *Index) Rebuild(ctx context.Context, rows []driven.IndexRow) error {
	if !idx.rebuilding.CompareAndSwap(false, true) {
		return domain.ErrIndexBusy
	}
	defer idx.rebuilding.Store(false)

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := idx.build(append([]driven.IndexRow(nil), rows...), 0)
	if err != nil {
		return err
	}
	if err := idx.publish(next); err != nil {
		return err
	}
	logger.Info("vector index rebuilt with %d rows", len(next.rows))
	return nil
}

// SourceCounts returns the number of rows per source in the current snapshot.
func (idx *Index) SourceCounts() map[string]int {
	return idx.current.Load().sourceCounts()
}

// Stats returns counters for the current snapshot.
func (idx *Index) Stats() domain.IndexStats {
	snap := idx.current.Load()
	return domain.IndexStats{
		Rows:       len(snap.rows),
		Sources:    len(snap.sourceCounts()),
		Dimensions: snap.dims,
		UpdatedAt:  snap.updatedAt,
		Corrupted:  snap.corrupted,
	}
}

// Close is a no-op; every mutation is already persisted.
func (idx *Index) Close() error {
	return nil
}

// mutate runs one write under the writer lock. added are the rows being
// introduced, checked against the current dimensionality.
func (idx *Index) mutate(next func(*snapshot) []driven.IndexRow, added []driven.IndexRow) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	cur := idx.current.Load()
	if cur.corrupted {
		return domain.ErrIndexCorrupted
	}

	rows := next(cur)
	dims := cur.dims
	if len(rows) == len(added) {
		// Every existing row is gone, so the new rows set the width.
		dims = 0
	}
	snap, err := idx.build(rows, dims)
	if err != nil {
		return err
	}
	return idx.publish(snap)
}

// build computes norms and validates that all rows share one width.
// want is the required width, or 0 to take it from the first row.
func (idx *Index) build(rows []driven.IndexRow, want int) (*snapshot, error) {
	snap := &snapshot{
		rows:      rows,
		norms:     make([]float64, len(rows)),
		dims:      want,
		updatedAt: idx.now(),
	}
	for i := range rows {
		n := len(rows[i].Vector)
		if n == 0 {
			return nil, fmt.Errorf("%w: row %s has no vector",
				domain.ErrInvalidInput, domain.ChunkID(rows[i].SourceID, rows[i].ChunkIndex))
		}
		if snap.dims == 0 {
			snap.dims = n
		}
		if n != snap.dims {
			return nil, fmt.Errorf("%w: row %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, domain.ChunkID(rows[i].SourceID, rows[i].ChunkIndex), n, snap.dims)
		}
		snap.norms[i] = norm(rows[i].Vector)
	}
	if len(rows) == 0 {
		snap.dims = 0
	}
	return snap, nil
}

// publish persists snap and makes it the live snapshot (caller holds writeMu).
func (idx *Index) publish(snap *snapshot) error {
	if err := writeSnapshot(idx.path, snap); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}
	idx.current.Store(snap)
	return nil
}

func without(rows []driven.IndexRow, sourceID string) []driven.IndexRow {
	out := make([]driven.IndexRow, 0, len(rows))
	for i := range rows {
		if rows[i].SourceID != sourceID {
			out = append(out, rows[i])
		}
	}
	return out
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(q []float32, qNorm float64, v []float32, vNorm float64) float64 {
	if qNorm == 0 || vNorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot / (qNorm * vNorm)
}
