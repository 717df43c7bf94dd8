package driving

import "context"

// WatchService ingests transcripts dropped into a directory.
type WatchService interface {
	// Run blocks, ingesting created or modified transcript files until ctx is done.
	Run(ctx context.Context, dir string) error
}
