package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure RetryingFetcher implements the interface.
var _ driven.TranscriptFetcher = (*RetryingFetcher)(nil)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Jitter returns a wait in [lo, hi].
type Jitter func(lo, hi time.Duration) time.Duration

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UniformJitter draws uniformly from [lo, hi].
func UniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// RetryingFetcher applies the fetch retry policy around a transcript fetcher:
//   - rate limited: wait RateLimitBackoff and retry
//   - unavailable: fail immediately
//   - anything else: wait a jittered interval in [SleepInterval, MaxSleep] and retry
//
// At most MaxAttempts fetches are made per call.
type RetryingFetcher struct {
	fetcher  driven.TranscriptFetcher
	settings domain.FetchSettings
	sleep    Sleeper
	jitter   Jitter
}

// NewRetryingFetcher wraps fetcher with the retry policy from settings.
func NewRetryingFetcher(fetcher driven.TranscriptFetcher, settings domain.FetchSettings) *RetryingFetcher {
	return &RetryingFetcher{
		fetcher:  fetcher,
		settings: settings,
		sleep:    SleepContext,
		jitter:   UniformJitter,
	}
}

// SetSleeper replaces the wait function (tests).
func (r *RetryingFetcher) SetSleeper(s Sleeper) {
	r.sleep = s
}

// SetJitter replaces the jitter source (tests).
func (r *RetryingFetcher) SetJitter(j Jitter) {
	r.jitter = j
}

// Fetch fetches a transcript, retrying transient failures.
func (r *RetryingFetcher) Fetch(
	ctx context.Context, videoID string, preferred, fallback []string,
) (*domain.Transcript, error) {
	attempts := r.settings.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		tr, err := r.fetcher.Fetch(ctx, videoID, preferred, fallback)
		if err == nil {
			return tr, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrFetchUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		var wait time.Duration
		if errors.Is(err, domain.ErrFetchRateLimited) {
			wait = r.settings.RateLimitBackoff
			logger.Warn("fetch %s: rate limited, backing off %s (attempt %d/%d)", videoID, wait, attempt, attempts)
		} else {
			wait = r.jitter(r.settings.SleepInterval, r.settings.MaxSleep)
			logger.Warn("fetch %s: %v, retrying in %s (attempt %d/%d)", videoID, err, wait, attempt, attempts)
		}

		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", videoID, attempts, lastErr)
}
