package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// fakeWatcher implements driven.FileWatcher over a channel the test feeds.
type fakeWatcher struct {
	events  chan driven.FileEvent
	stopped bool
}

func (f *fakeWatcher) Watch(context.Context, string) (<-chan driven.FileEvent, error) {
	return f.events, nil
}

func (f *fakeWatcher) Stop() error {
	f.stopped = true
	return nil
}

type fileCall struct {
	name  string
	force bool
}

// recordingIngest implements driving.IngestService, recording file ingests.
type recordingIngest struct {
	mu    sync.Mutex
	calls []fileCall
}

func (r *recordingIngest) Ingest(context.Context, []string, bool) ([]domain.IngestOutcome, error) {
	return nil, nil
}

func (r *recordingIngest) IngestAsync(context.Context, []string, bool) (driving.IngestJob, error) {
	return nil, nil
}

func (r *recordingIngest) IngestFile(_ context.Context, path string, force bool) (domain.IngestOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fileCall{name: filepath.Base(path), force: force})
	return domain.IngestOutcome{SourceID: filepath.Base(path), Status: domain.IngestSuccess}, nil
}

func (r *recordingIngest) Job(string) (driving.IngestJob, bool) { return nil, false }

func (r *recordingIngest) snapshot() []fileCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fileCall(nil), r.calls...)
}

func TestWatchService_ScanThenEvents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.vtt"), []byte("WEBVTT\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	watcher := &fakeWatcher{events: make(chan driven.FileEvent, 10)}
	ingest := &recordingIngest{}
	svc := NewWatchService(watcher, ingest)
	svc.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, dir) }()

	require.Eventually(t, func() bool { return len(ingest.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fileCall{name: "existing.vtt", force: false}, ingest.snapshot()[0])

	// Repeated writes to one file collapse into a single ingest.
	watcher.events <- driven.FileEvent{Path: filepath.Join(dir, "new.srt"), Operation: driven.FileCreated}
	watcher.events <- driven.FileEvent{Path: filepath.Join(dir, "new.srt"), Operation: driven.FileModified}
	watcher.events <- driven.FileEvent{Path: filepath.Join(dir, "gone.vtt"), Operation: driven.FileDeleted}

	require.Eventually(t, func() bool { return len(ingest.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fileCall{name: "new.srt", force: true}, ingest.snapshot()[1])

	close(watcher.events)
	require.NoError(t, <-done)
	assert.True(t, watcher.stopped)
	assert.Len(t, ingest.snapshot(), 2)
}

func TestWatchService_MissingDir(t *testing.T) {
	svc := NewWatchService(&fakeWatcher{}, &recordingIngest{})

	err := svc.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
