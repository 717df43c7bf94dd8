package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// DefaultDebounce is how long a file must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// WatchService ingests transcripts that appear in a directory.
type WatchService struct {
	watcher  driven.FileWatcher
	ingest   driving.IngestService
	debounce time.Duration
}

// NewWatchService creates a watch service.
func NewWatchService(watcher driven.FileWatcher, ingest driving.IngestService) *WatchService {
	return &WatchService{
		watcher:  watcher,
		ingest:   ingest,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides the quiet period (tests).
func (s *WatchService) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Run ingests transcripts already in dir that are not yet processed, then
// re-ingests every created or modified file with force until ctx is done.
// Deleted files are only logged; use `sources remove` to drop them.
func (s *WatchService) Run(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir: %s is not a directory", dir)
	}

	events, err := s.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer s.watcher.Stop()

	logger.Info("Watching %s", dir)
	s.scan(ctx, dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				s.flush(ctx, pending)
				return nil
			}
			if ev.Operation == driven.FileDeleted {
				logger.Info("%s %s", filepath.Base(ev.Path), ev.Operation)
				delete(pending, ev.Path)
				continue
			}
			pending[ev.Path] = struct{}{}
			timer.Reset(s.debounce)
		case <-timer.C:
			s.flush(ctx, pending)
		}
	}
}

func (s *WatchService) scan(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("scan %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		s.ingestFile(ctx, filepath.Join(dir, e.Name()), false)
	}
}

func (s *WatchService) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	clear(pending)

	for _, p := range paths {
		s.ingestFile(ctx, p, true)
	}
}

func (s *WatchService) ingestFile(ctx context.Context, path string, force bool) {
	outcome, err := s.ingest.IngestFile(ctx, path, force)
	if err != nil {
		logger.Debug("skip %s: %v", filepath.Base(path), err)
		return
	}
	logger.Info("%s: %s (%d chunks) %s", outcome.SourceID, outcome.Status, outcome.ChunkCount, outcome.Message)
}
