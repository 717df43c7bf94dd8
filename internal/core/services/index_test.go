package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragtube/internal/core/domain"
)

func TestIndexService_RebuildMatchesIncrementalIndex(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	ctx := context.Background()

	_, err := env.ingest.Ingest(ctx, []string{"catcatcat01", "dogdogdog01", "gogogogo001"}, false)
	require.NoError(t, err)

	before, err := env.search.SearchContent(ctx, "cat", 5)
	require.NoError(t, err)
	rows := env.index.Stats().Rows
	fetches := env.fetcher.callCount("catcatcat01")

	res, err := env.indexes.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, res.Previous)
	assert.Equal(t, rows, res.Current)

	after, err := env.search.SearchContent(ctx, "cat", 5)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	// Rebuild never goes back to the network.
	assert.Equal(t, fetches, env.fetcher.callCount("catcatcat01"))
}

func TestIndexService_RebuildBusy(t *testing.T) {
	env := newTestEnv(t)
	env.indexes.rebuilding.Store(true)

	_, err := env.indexes.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexBusy)
}

func TestIndexService_ReconcileConsistent(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	ctx := context.Background()
	_, err := env.ingest.Ingest(ctx, []string{"catcatcat01"}, false)
	require.NoError(t, err)

	rebuilt, err := env.indexes.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, rebuilt)
}

func TestIndexService_ReconcileRecoversCorruptSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := vectorindex.Open(dir)
	require.NoError(t, err)
	env.index.VectorIndex = idx

	_, err = env.ingest.Ingest(ctx, []string{"catcatcat01", "dogdogdog01"}, false)
	require.NoError(t, err)

	// Damage the snapshot and reopen, as after a crash.
	require.NoError(t, os.WriteFile(idx.Path(), []byte("garbage"), 0o600))
	reopened, err := vectorindex.Open(dir)
	require.NoError(t, err)
	require.True(t, reopened.Stats().Corrupted)
	env.index.VectorIndex = reopened

	_, err = env.search.SearchContent(ctx, "cat", 5)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)

	rebuilt, err := env.indexes.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.False(t, reopened.Stats().Corrupted)
	assert.Equal(t, map[string]int{"catcatcat01": 1, "dogdogdog01": 1}, reopened.SourceCounts())

	hits, err := env.search.SearchContent(ctx, "cat", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "catcatcat01", hits[0].SourceID)
}

func TestIngest_ForceAgainstCorruptIndexKeepsRegistry(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := vectorindex.Open(dir)
	require.NoError(t, err)
	env.index.VectorIndex = idx

	_, err = env.ingest.Ingest(ctx, []string{"catcatcat01", "dogdogdog01"}, false)
	require.NoError(t, err)
	before, err := env.registry.Chunks(ctx, "catcatcat01")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(idx.Path(), []byte("garbage"), 0o600))
	reopened, err := vectorindex.Open(dir)
	require.NoError(t, err)
	require.True(t, reopened.Stats().Corrupted)
	env.index.VectorIndex = reopened

	out, err := env.ingest.Ingest(ctx, []string{"catcatcat01"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestFailed, out[0].Status)
	assert.Contains(t, out[0].Message, domain.ErrIndexCorrupted.Error())

	entry, err := env.registry.Get(ctx, "catcatcat01")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestSuccess, entry.Status)
	after, err := env.registry.Chunks(ctx, "catcatcat01")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = env.indexes.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"catcatcat01": 1, "dogdogdog01": 1}, reopened.SourceCounts())
}

func TestIndexService_ReconcileWithoutAutoRebuild(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	ctx := context.Background()
	_, err := env.ingest.Ingest(ctx, []string{"catcatcat01"}, false)
	require.NoError(t, err)
	require.NoError(t, env.index.RemoveSource(ctx, "catcatcat01"))

	svc := NewIndexService(env.registry, env.index, env.lock, false)
	rebuilt, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Zero(t, env.index.Stats().Rows)

	rebuilt, err = env.indexes.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 1, env.index.Stats().Rows)
}
