package domain

import (
	"fmt"
	"time"
)

// Chunk is a retrievable window of transcript text.
// Chunk identity is the pair (SourceID, Index); indices are contiguous from zero.
type Chunk struct {
	// SourceID links to the Source the chunk was cut from.
	SourceID string

	// Index is the zero-based position of the chunk within its source.
	Index int

	// Text is the chunk content.
	Text string

	// Start is the playback offset of the first segment in the window.
	Start time.Duration

	// Embedding is the vector for Text. Empty until embedded.
	Embedding []float32
}

// ID returns the stable identifier of the chunk.
func (c *Chunk) ID() string {
	return ChunkID(c.SourceID, c.Index)
}

// ChunkID formats the stable identifier for a chunk position.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s#%d", sourceID, index)
}

// StoredChunk is a chunk joined with the metadata of its source, as read
// back from the registry store. It is the unit the vector index is rebuilt from.
type StoredChunk struct {
	Chunk
	Source Source
}
