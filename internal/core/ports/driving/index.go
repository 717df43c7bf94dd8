package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// IndexService administers the vector index.
type IndexService interface {
	// Rebuild reconstructs the index from persisted chunk metadata only.
	Rebuild(ctx context.Context) (*domain.RebuildResult, error)

	// Reconcile compares the index with the registry store and rebuilds
	// when they disagree and auto-rebuild is enabled. Returns true if a
	// rebuild ran.
	Reconcile(ctx context.Context) (bool, error)
}
