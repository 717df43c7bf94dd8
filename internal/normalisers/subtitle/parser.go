// Package subtitle parses WebVTT and SubRip transcripts into timed segments.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// Format identifies a subtitle file format.
type Format string

// Supported formats.
const (
	FormatVTT Format = "vtt"
	FormatSRT Format = "srt"
)

// Extensions returns the file extensions handled by this package.
func Extensions() []string {
	return []string{".vtt", ".srt"}
}

// FormatFromPath returns the format implied by a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return FormatVTT, nil
	case ".srt":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("%w: unsupported subtitle file %s", domain.ErrInvalidInput, filepath.Base(path))
	}
}

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	digitOnlyRe = regexp.MustCompile(`^\d+$`)
)

// Parse reads a transcript in the given format.
//
// Both formats share the cue layout: an optional numeric identifier, a
// "start --> end" timing line, then one or more text lines. Inline markup
// tags are stripped and a cue's lines are joined with spaces. Consecutive
// cues with identical text, as produced by rolling auto-captions, are merged.
func Parse(r io.Reader, format Format) ([]domain.Segment, error) {
	if format != FormatVTT && format != FormatSRT {
		return nil, fmt.Errorf("%w: unknown subtitle format %q", domain.ErrInvalidInput, format)
	}

	var (
		segments []domain.Segment
		current  *domain.Segment
		lines    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(lines, " ")
		if current.Text != "" {
			if n := len(segments); n > 0 && segments[n-1].Text == current.Text {
				segments[n-1].Duration = current.Start + current.Duration - segments[n-1].Start
			} else {
				segments = append(segments, *current)
			}
		}
		current, lines = nil, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	header := format == FormatVTT

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		if header {
			// WEBVTT header block ends at the first blank line or cue timing
			if line == "" {
				header = false
				continue
			}
			if !strings.Contains(line, "-->") {
				continue
			}
			header = false
		}

		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseTiming(line)
			if err != nil {
				return nil, err
			}
			current = &domain.Segment{Start: start, Duration: end - start}
		case current == nil:
			// cue identifiers, NOTE and STYLE blocks
		case digitOnlyRe.MatchString(line) && len(lines) == 0:
			// stray sequence number
		default:
			if text := strings.TrimSpace(tagRe.ReplaceAllString(line, "")); text != "" {
				lines = append(lines, text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subtitle: %w", err)
	}
	flush()

	return segments, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// VTT cue settings may follow the end time
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("%w: missing end time in %q", domain.ErrInvalidInput, line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// ParseTimestamp parses HH:MM:SS.mmm, MM:SS.mmm or the SRT comma form.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	fields := strings.Split(s, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, fmt.Errorf("%w: bad timestamp %q", domain.ErrInvalidInput, s)
	}

	minutes := 0
	for _, f := range fields[:len(fields)-1] {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: bad timestamp %q", domain.ErrInvalidInput, s)
		}
		minutes = minutes*60 + v
	}
	secs, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%w: bad timestamp %q", domain.ErrInvalidInput, s)
	}

	total := time.Duration(minutes)*time.Minute + time.Duration(secs*float64(time.Second))
	return total.Round(time.Millisecond), nil
}
