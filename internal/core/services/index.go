package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// CommitLock serialises registry commits with index writes. Ingestion holds
// it from the registry commit until the index write returns; a rebuild holds
// it from reading the stored chunks until the new snapshot is swapped in.
type CommitLock struct {
	sync.Mutex
}

// IndexService rebuilds and reconciles the vector index from the registry store.
type IndexService struct {
	registry    driven.RegistryStore
	index       driven.VectorIndex
	lock        *CommitLock
	autoRebuild bool
	rebuilding  atomic.Bool
}

// NewIndexService creates an index service. A nil lock gets a private one.
func NewIndexService(
	registry driven.RegistryStore,
	index driven.VectorIndex,
	lock *CommitLock,
	autoRebuild bool,
) *IndexService {
	if lock == nil {
		lock = &CommitLock{}
	}
	return &IndexService{
		registry:    registry,
		index:       index,
		lock:        lock,
		autoRebuild: autoRebuild,
	}
}

// Rebuild regenerates the index from the stored chunks alone; nothing is
// fetched or embedded. A second rebuild while one runs returns
// domain.ErrIndexBusy. Ingestion commits queue behind the rebuild.
func (s *IndexService) Rebuild(ctx context.Context) (*domain.RebuildResult, error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return nil, domain.ErrIndexBusy
	}
	defer s.rebuilding.Store(false)

	logger.Section("Index Rebuild")
	defer logger.Timed("rebuild")()

	s.lock.Lock()
	defer s.lock.Unlock()

	previous := s.index.Stats().Rows

	stored, err := s.registry.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stored chunks: %w", err)
	}

	rows := make([]driven.IndexRow, len(stored))
	for i, sc := range stored {
		rows[i] = indexRow(sc.Source, sc.Chunk)
	}
	logger.Debug("Rebuilding from %d stored chunks", len(rows))

	if err := s.index.Rebuild(ctx, rows); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	logger.Info("Index rebuilt: %d -> %d chunks", previous, len(rows))
	return &domain.RebuildResult{Previous: previous, Current: len(rows)}, nil
}

// Reconcile rebuilds the index when it is corrupted or its per-source row
// counts disagree with the store. Without auto-rebuild a mismatch is only
// reported.
func (s *IndexService) Reconcile(ctx context.Context) (bool, error) {
	stats := s.index.Stats()

	stored, err := s.registry.ChunkCounts(ctx)
	if err != nil {
		return false, fmt.Errorf("read chunk counts: %w", err)
	}

	if !stats.Corrupted && sameCounts(stored, s.index.SourceCounts()) {
		logger.Debug("Index consistent with store: %d rows", stats.Rows)
		return false, nil
	}

	if !s.autoRebuild {
		if stats.Corrupted {
			logger.Error("vector index is corrupted; run `ragtube rebuild` to recover")
		} else {
			logger.Warn("Index disagrees with store; auto-rebuild disabled")
		}
		return false, nil
	}

	logger.Info("Index disagrees with store (corrupted=%t), rebuilding", stats.Corrupted)
	if _, err := s.Rebuild(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func sameCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// indexRow flattens a chunk and its source into an index row.
func indexRow(src domain.Source, c domain.Chunk) driven.IndexRow {
	return driven.IndexRow{
		SourceID:   c.SourceID,
		ChunkIndex: c.Index,
		Title:      src.Title,
		Uploader:   src.Uploader,
		URL:        src.URL,
		Text:       c.Text,
		Start:      c.Start,
		Vector:     c.Embedding,
	}
}
