// Package chunker provides a fixed-size transcript chunking processor.
package chunker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits transcript segments into overlapping windows.
// Sizes are measured in characters (runes), not bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// It fails with domain.ErrConfiguration unless 0 <= overlap < chunk size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, p.chunkSize)
	}
	if p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrConfiguration, p.overlap, p.chunkSize)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window length.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// span records where a segment's text sits in the joined transcript.
type span struct {
	from, to int // rune offsets, to exclusive
	start    time.Duration
}

// Chunk joins the segment texts with single spaces and cuts the result into
// windows of chunk size characters. Each window after the first begins
// overlap characters before the end of the previous one. The final window
// may be shorter; a window no longer than the overlap that reaches the end
// of the text is the last one emitted.
//
// Each chunk carries the start time of the first segment contributing a
// character to it. Runs of whitespace inside a segment collapse to one
// space and empty segments are skipped.
func (p *Processor) Chunk(sourceID string, segments []domain.Segment) []domain.Chunk {
	text, spans := join(segments)
	n := len(text)
	if n == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, n/step+2)

	for start := 0; start < n; {
		end := start + p.chunkSize
		if end > n {
			end = n
		}

		chunks = append(chunks, domain.Chunk{
			SourceID: sourceID,
			Index:    len(chunks),
			Text:     string(text[start:end]),
			Start:    startTime(spans, start),
		})

		if end == n && end-start <= p.overlap {
			break
		}
		start = end - p.overlap
	}

	return chunks
}

func join(segments []domain.Segment) ([]rune, []span) {
	var b strings.Builder
	spans := make([]span, 0, len(segments))
	offset := 0

	for _, seg := range segments {
		t := strings.Join(strings.Fields(seg.Text), " ")
		if t == "" {
			continue
		}
		if offset > 0 {
			b.WriteByte(' ')
			offset++
		}
		l := len([]rune(t))
		spans = append(spans, span{from: offset, to: offset + l, start: seg.Start})
		b.WriteString(t)
		offset += l
	}

	return []rune(b.String()), spans
}

// startTime returns the start of the first segment with a character at or
// after pos. A position on a separator belongs to the following segment.
func startTime(spans []span, pos int) time.Duration {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].to > pos })
	if i == len(spans) {
		return spans[len(spans)-1].start
	}
	return spans[i].start
}
