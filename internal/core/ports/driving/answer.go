package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// AnswerService answers questions grounded in retrieved passages.
type AnswerService interface {
	// Ask retrieves up to k passages and synthesises an answer.
	// k <= 0 uses the configured default.
	Ask(ctx context.Context, question string, k int) (*domain.Answer, error)

	// Summarize generates an overview of one ingested source.
	Summarize(ctx context.Context, sourceID string) (*domain.SourceSummary, error)
}
