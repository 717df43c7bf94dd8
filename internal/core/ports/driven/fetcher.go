package driven

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// TranscriptFetcher retrieves a timed transcript for a video.
//
// Implementations classify failures so the core can apply its retry policy:
//   - domain.ErrFetchRateLimited when the provider throttles (retryable)
//   - domain.ErrFetchUnavailable when no transcript exists in any requested
//     language (terminal)
//   - any other error for transient transport failures
type TranscriptFetcher interface {
	// Fetch returns the transcript in the first available language,
	// trying preferred languages before fallback ones.
	Fetch(ctx context.Context, videoID string, preferred, fallback []string) (*domain.Transcript, error)
}
