package subtitle

import (
	"os"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

// Ensure FileParser implements the interface.
var _ driven.TranscriptParser = (*FileParser)(nil)

// FileParser parses .vtt and .srt files from disk.
type FileParser struct{}

// NewFileParser creates a file parser.
func NewFileParser() *FileParser {
	return &FileParser{}
}

// Supports reports whether path has a subtitle extension.
func (p *FileParser) Supports(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// ParseFile opens path and parses it according to its extension.
func (p *FileParser) ParseFile(path string) ([]domain.Segment, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, format)
}
