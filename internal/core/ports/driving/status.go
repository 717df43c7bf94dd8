package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// StatusService reports the health of the store and index.
type StatusService interface {
	// Status is computed fresh on every call.
	Status(ctx context.Context) (*domain.Status, error)
}
