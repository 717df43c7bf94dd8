package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

func newTestBatchEmbedder(svc *mockEmbeddingService, batch, attempts int) (*BatchEmbedder, *noSleep) {
	b := NewBatchEmbedder(svc, domain.RAGSettings{
		EmbedBatchSize:   batch,
		EmbedMaxAttempts: attempts,
		EmbedBackoff:     time.Second,
	})
	ns := &noSleep{}
	b.SetSleeper(ns.sleep)
	return b, ns
}

func TestBatchEmbedder_SplitsAndKeepsOrder(t *testing.T) {
	svc := &mockEmbeddingService{}
	b, _ := newTestBatchEmbedder(svc, 2, 3)

	texts := []string{"cat", "dog", "go", "rust", "music"}
	vecs, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vecs, 5)
	assert.Equal(t, 3, svc.batchCount())
	for i, text := range texts {
		assert.Equal(t, svc.vector(text), vecs[i])
	}
}

func TestBatchEmbedder_RetriesWithExponentialBackoff(t *testing.T) {
	svc := &mockEmbeddingService{errs: []error{errors.New("503"), errors.New("503")}}
	b, ns := newTestBatchEmbedder(svc, 10, 3)

	vecs, err := b.EmbedAll(context.Background(), []string{"cat"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, ns.waits)
}

func TestBatchEmbedder_Exhausted(t *testing.T) {
	boom := errors.New("503")
	svc := &mockEmbeddingService{errs: []error{boom, boom, boom}}
	b, _ := newTestBatchEmbedder(svc, 10, 3)

	_, err := b.EmbedAll(context.Background(), []string{"cat"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, svc.batchCount())
}

func TestBatchEmbedder_CountMismatchIsRetriedThenFails(t *testing.T) {
	svc := &mockEmbeddingService{wrongSize: true}
	b, _ := newTestBatchEmbedder(svc, 10, 2)

	_, err := b.EmbedAll(context.Background(), []string{"cat", "dog"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Equal(t, 2, svc.batchCount())
}

func TestBatchEmbedder_NoService(t *testing.T) {
	b := NewBatchEmbedder(nil, domain.DefaultAppSettings().RAG)
	_, err := b.EmbedAll(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestBatchEmbedder_Empty(t *testing.T) {
	b, _ := newTestBatchEmbedder(&mockEmbeddingService{}, 2, 1)
	vecs, err := b.EmbedAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
