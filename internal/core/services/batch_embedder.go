package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// BatchEmbedder embeds arbitrarily many texts in bounded batches, retrying
// each failed batch with exponential backoff.
type BatchEmbedder struct {
	service     driven.EmbeddingService
	batchSize   int
	maxAttempts int
	backoff     time.Duration
	sleep       Sleeper
}

// NewBatchEmbedder creates a batch embedder from the RAG settings.
func NewBatchEmbedder(service driven.EmbeddingService, rag domain.RAGSettings) *BatchEmbedder {
	b := &BatchEmbedder{
		service:     service,
		batchSize:   rag.EmbedBatchSize,
		maxAttempts: rag.EmbedMaxAttempts,
		backoff:     rag.EmbedBackoff,
		sleep:       SleepContext,
	}
	if b.batchSize < 1 {
		b.batchSize = 1
	}
	if b.maxAttempts < 1 {
		b.maxAttempts = 1
	}
	return b
}

// SetSleeper replaces the wait function (tests).
func (b *BatchEmbedder) SetSleeper(s Sleeper) {
	b.sleep = s
}

// Embed embeds a single query text.
func (b *BatchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedAll returns one vector per text, in input order. A batch that still
// fails after the last attempt fails the whole call with
// domain.ErrEmbeddingProvider.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if b.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	dims := 0

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		batch := texts[start:end]

		vecs, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for _, v := range vecs {
			if dims == 0 {
				dims = len(v)
			}
			if len(v) != dims {
				return nil, fmt.Errorf("%w: %w: got %d, want %d",
					domain.ErrEmbeddingProvider, domain.ErrDimensionMismatch, len(v), dims)
			}
		}
		out = append(out, vecs...)
	}

	return out, nil
}

func (b *BatchEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < b.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := b.backoff * time.Duration(1<<(attempt-1))
			logger.Warn("embedding batch of %d failed: %v, retrying in %s", len(batch), lastErr, wait)
			if err := b.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		vecs, err := b.service.EmbedBatch(ctx, batch)
		if err == nil && len(vecs) != len(batch) {
			err = fmt.Errorf("%w: %d vectors for %d inputs", domain.ErrInvalidInput, len(vecs), len(batch))
		}
		if err == nil {
			return vecs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: after %d attempts: %w", domain.ErrEmbeddingProvider, b.maxAttempts, lastErr)
}
