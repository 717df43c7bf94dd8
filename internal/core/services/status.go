package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService aggregates store and index counters.
type StatusService struct {
	registry driven.RegistryStore
	index    driven.VectorIndex
}

// NewStatusService creates a status service.
func NewStatusService(registry driven.RegistryStore, index driven.VectorIndex) *StatusService {
	return &StatusService{registry: registry, index: index}
}

// Status reads both stores on every call; nothing is cached.
func (s *StatusService) Status(ctx context.Context) (*domain.Status, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	updated, err := s.registry.LastUpdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry last updated: %w", err)
	}

	sources := 0
	for i := range entries {
		if entries[i].Processed() {
			sources++
		}
	}

	stats := s.index.Stats()
	if stats.UpdatedAt.After(updated) {
		updated = stats.UpdatedAt
	}

	health := domain.IndexOK
	switch {
	case stats.Corrupted:
		health = domain.IndexCorrupted
	case stats.Rows == 0:
		health = domain.IndexEmpty
	}

	return &domain.Status{
		Status:        health,
		SourceCount:   sources,
		ChunkCount:    stats.Rows,
		RegistryCount: len(entries),
		LastUpdated:   updated,
	}, nil
}
