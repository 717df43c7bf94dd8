package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// SourceService manages ingested sources.
type SourceService interface {
	// List returns every registry entry regardless of status.
	List(ctx context.Context) ([]domain.RegistryEntry, error)

	// Get returns the entry for a source.
	Get(ctx context.Context, sourceID string) (*domain.RegistryEntry, error)

	// Remove deletes a source from the index and the registry.
	Remove(ctx context.Context, sourceID string) error
}
