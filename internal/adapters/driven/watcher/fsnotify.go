// Package watcher provides an fsnotify-backed transcript directory watcher.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure FSNotifyWatcher implements the interface.
var _ driven.FileWatcher = (*FSNotifyWatcher)(nil)

// DefaultExtensions are the transcript formats picked up from a watch dir.
var DefaultExtensions = []string{".vtt", ".srt"}

// eventBuffer is the channel capacity between fsnotify and the consumer.
const eventBuffer = 100

// FSNotifyWatcher implements driven.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	stopOnce   sync.Once
}

// NewFSNotifyWatcher creates a watcher for files with the given extensions.
// An empty list watches DefaultExtensions.
func NewFSNotifyWatcher(extensions ...string) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
	}, nil
}

// Watch starts monitoring dir and emits events for watched extensions.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan driven.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan driven.FileEvent, eventBuffer)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				fe, ok := w.translate(event)
				if !ok {
					continue
				}
				select {
				case events <- fe:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher: %v", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *FSNotifyWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

// translate maps an fsnotify event onto a file event. Chmod and events for
// other extensions are dropped; a rename is reported as a delete of the
// old name.
func (w *FSNotifyWatcher) translate(event fsnotify.Event) (driven.FileEvent, bool) {
	if !w.isWatchedExtension(event.Name) {
		return driven.FileEvent{}, false
	}

	var op driven.FileOperation
	switch {
	case event.Has(fsnotify.Create):
		op = driven.FileCreated
	case event.Has(fsnotify.Write):
		op = driven.FileModified
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = driven.FileDeleted
	default:
		return driven.FileEvent{}, false
	}

	return driven.FileEvent{Path: event.Name, Operation: op}, true
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
