package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// SearchService provides retrieval without generation.
type SearchService interface {
	// SearchContent returns up to k passages above the similarity floor.
	SearchContent(ctx context.Context, query string, k int) ([]domain.SearchHit, error)

	// SimilarSources groups passage hits by source, best source first.
	SimilarSources(ctx context.Context, query string, limit int) ([]domain.SimilarSource, error)
}
