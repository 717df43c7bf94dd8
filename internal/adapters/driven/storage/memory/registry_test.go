package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

func entry(id string, status domain.IngestStatus) domain.RegistryEntry {
	return domain.RegistryEntry{
		Source: domain.Source{ID: id, Title: "T " + id},
		Status: status,
	}
}

func chunksFor(id string, n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{SourceID: id, Index: i, Text: "x", Embedding: []float32{1}}
	}
	return out
}

func TestRegistryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	require.NoError(t, s.Record(ctx, entry("a", domain.IngestFailed)))
	ok, err := s.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Commit(ctx, entry("a", domain.IngestSuccess), chunksFor("a", 3)))
	require.NoError(t, s.Commit(ctx, entry("b", domain.IngestSuccess), chunksFor("b", 1)))

	ok, _ = s.Contains(ctx, "a")
	assert.True(t, ok)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, fixed, got.Timestamp)

	counts, _ := s.ChunkCounts(ctx)
	assert.Equal(t, map[string]int{"a": 3, "b": 1}, counts)

	all, _ := s.AllChunks(ctx)
	require.Len(t, all, 4)
	assert.Equal(t, "a", all[0].SourceID)
	assert.Equal(t, "b", all[3].SourceID)
	assert.Equal(t, "T b", all[3].Source.Title)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)

	last, _ := s.LastUpdated(ctx)
	assert.Equal(t, fixed, last)
}

func TestRegistryStore_RecordKeepsChunks(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()

	require.NoError(t, s.Commit(ctx, entry("a", domain.IngestSuccess), chunksFor("a", 2)))
	e := entry("a", domain.IngestSuccess)
	e.Message = "touched"
	require.NoError(t, s.Record(ctx, e))

	chunks, _ := s.Chunks(ctx, "a")
	assert.Len(t, chunks, 2)
}

func TestRegistryStore_FailNextCommit(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()
	boom := errors.New("disk full")

	s.FailNextCommit(boom)
	assert.ErrorIs(t, s.Commit(ctx, entry("a", domain.IngestSuccess), nil), boom)
	n, _ := s.Count(ctx)
	assert.Zero(t, n)

	assert.NoError(t, s.Commit(ctx, entry("a", domain.IngestSuccess), nil))
}

func TestRegistryStore_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewRegistryStore()

	assert.ErrorIs(t, s.Record(ctx, entry("", domain.IngestFailed)), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Record(ctx, entry("a", "bogus")), domain.ErrInvalidInput)

	bad := chunksFor("a", 1)
	bad[0].SourceID = "b"
	assert.ErrorIs(t, s.Commit(ctx, entry("a", domain.IngestSuccess), bad), domain.ErrInvalidInput)
}
