package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Source is a video whose transcript can be ingested.
type Source struct {
	// ID is the 11-character video identifier.
	ID string

	// Title is the video title reported by the provider.
	Title string

	// Uploader is the channel or author name.
	Uploader string

	// URL is the canonical watch URL.
	URL string

	// Duration is the video length, zero when unknown.
	Duration time.Duration
}

// Segment is a timed piece of transcript text.
type Segment struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
}

// Transcript is the result of a successful fetch.
type Transcript struct {
	Source   Source
	Language string
	Segments []Segment
}

// IngestStatus is the outcome recorded for an ingestion attempt.
type IngestStatus string

// Available ingest statuses.
const (
	IngestSuccess IngestStatus = "success"
	IngestFailed  IngestStatus = "failed"
	IngestSkipped IngestStatus = "skipped"
)

// IsValid returns true if the status is recognised.
func (s IngestStatus) IsValid() bool {
	switch s {
	case IngestSuccess, IngestFailed, IngestSkipped:
		return true
	default:
		return false
	}
}

// RegistryEntry is the durable record of an ingestion attempt for one source.
// Only success entries count as processed.
type RegistryEntry struct {
	Source     Source
	Status     IngestStatus
	Language   string
	ChunkCount int
	Message    string
	Timestamp  time.Time
}

// Processed reports whether the entry marks the source as successfully ingested.
func (e *RegistryEntry) Processed() bool {
	return e.Status == IngestSuccess
}

// IngestOutcome is the per-source result returned from an ingestion batch.
type IngestOutcome struct {
	SourceID   string       `json:"source_id"`
	Title      string       `json:"title,omitempty"`
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunk_count"`
	Message    string       `json:"message,omitempty"`
}

var (
	videoIDPattern  = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	videoIDInURLRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:embed/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:shorts/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:v/)([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?:v=)([0-9A-Za-z_-]{11})`),
	}
)

// ExtractVideoID returns the video identifier from a raw id or any of the
// common watch, short-link, embed, shorts and legacy URL forms.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}
	for _, re := range videoIDInURLRes {
		if m := re.FindStringSubmatch(input); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: no video id in %q", ErrInvalidInput, input)
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// TimestampURL returns a URL that starts playback at the given offset.
func TimestampURL(base string, at time.Duration) string {
	if base == "" {
		return ""
	}
	secs := int(at / time.Second)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%ds", base, sep, secs)
}

// FormatTimestamp renders an offset as 45s, 2m05s or 1h02m03s.
func FormatTimestamp(at time.Duration) string {
	total := int(at / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", s)
	case total < 3600:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
}
