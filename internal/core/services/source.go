package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages ingested sources.
type SourceService struct {
	registry driven.RegistryStore
	index    driven.VectorIndex
	lock     *CommitLock
}

// NewSourceService creates a source service. Share lock with ingestion.
func NewSourceService(registry driven.RegistryStore, index driven.VectorIndex, lock *CommitLock) *SourceService {
	if lock == nil {
		lock = &CommitLock{}
	}
	return &SourceService{registry: registry, index: index, lock: lock}
}

// List returns all registry entries.
func (s *SourceService) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	return s.registry.List(ctx)
}

// Get returns one registry entry.
func (s *SourceService) Get(ctx context.Context, sourceID string) (*domain.RegistryEntry, error) {
	return s.registry.Get(ctx, sourceID)
}

// Remove drops the source's index rows, then its registry entry and chunks.
func (s *SourceService) Remove(ctx context.Context, sourceID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.registry.Get(ctx, sourceID); err != nil {
		return err
	}

	if err := s.index.RemoveSource(ctx, sourceID); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	if err := s.registry.Delete(ctx, sourceID); err != nil {
		return fmt.Errorf("remove from registry: %w", err)
	}

	logger.Info("Removed source %s", sourceID)
	return nil
}
