// Package embedding holds helpers shared by the embedding provider adapters.
package embedding

import (
	"fmt"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// CheckVectors verifies a provider response: exactly want vectors, none
// missing or empty, all of one length. It returns that length.
func CheckVectors(want int, vectors [][]float32) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrInvalidInput, want, len(vectors))
	}
	dims := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: embedding %d is missing or empty", domain.ErrInvalidInput, i)
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return 0, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return dims, nil
}
