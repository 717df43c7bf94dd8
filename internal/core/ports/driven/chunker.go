package driven

import "github.com/custodia-labs/ragtube/internal/core/domain"

// Chunker cuts a transcript into retrievable windows.
// Output must be deterministic: the same segments always yield the same
// chunks with contiguous zero-based indices.
type Chunker interface {
	// Name returns the processor name for logging.
	Name() string

	// Chunk splits the segments of one source.
	Chunk(sourceID string, segments []domain.Segment) []domain.Chunk
}

// TranscriptParser reads a local transcript file into timed segments.
type TranscriptParser interface {
	// Supports reports whether the file extension is handled.
	Supports(path string) bool

	// ParseFile parses the file at path.
	ParseFile(path string) ([]domain.Segment, error)
}
