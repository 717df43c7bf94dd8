package driven

import "context"

// FileOperation is the kind of change observed on a watched file.
type FileOperation int

// Observed file operations.
const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// String returns the operation name.
func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileEvent is a change to a watched transcript file.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileWatcher monitors a directory for transcript files.
type FileWatcher interface {
	// Watch starts monitoring dir. The channel closes when ctx is done
	// or the watcher is stopped.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}
