package domain

import "time"

// SearchHit is a single chunk returned from a similarity search.
type SearchHit struct {
	SourceID   string        `json:"source_id"`
	ChunkIndex int           `json:"chunk_index"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	URL        string        `json:"url"`
	Content    string        `json:"content"`
	Start      time.Duration `json:"-"`
	Timestamp  string        `json:"timestamp"`
	Score      float64       `json:"score"`
}

// Citation references a passage an answer was grounded on.
type Citation struct {
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	URL        string  `json:"url"`
	Timestamp  string  `json:"timestamp"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// Answer is the result of asking a question.
type Answer struct {
	Question   string     `json:"question"`
	Text       string     `json:"answer"`
	Citations  []Citation `json:"sources"`
	TotalFound int        `json:"total_found"`
}

// SimilarSource aggregates the hits of a query by source.
type SimilarSource struct {
	SourceID     string  `json:"source_id"`
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	URL          string  `json:"url"`
	MaxScore     float64 `json:"max_score"`
	AverageScore float64 `json:"avg_score"`
	ChunkCount   int     `json:"chunk_count"`
}

// SourceSummary is a generated overview of one ingested source.
type SourceSummary struct {
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	URL        string `json:"url"`
	Summary    string `json:"summary"`
	ChunkCount int    `json:"chunk_count"`
}

// IndexHealth describes whether the vector index can serve queries.
type IndexHealth string

// Available index health values.
const (
	IndexOK        IndexHealth = "ok"
	IndexEmpty     IndexHealth = "empty"
	IndexCorrupted IndexHealth = "corrupted"
)

// Status is a point-in-time view of the store and index.
type Status struct {
	Status        IndexHealth `json:"status"`
	SourceCount   int         `json:"source_count"`
	ChunkCount    int         `json:"chunk_count"`
	RegistryCount int         `json:"registry_count"`
	LastUpdated   time.Time   `json:"last_updated"`
}

// RebuildResult reports the index size before and after a rebuild.
type RebuildResult struct {
	Previous int `json:"previous_chunks"`
	Current  int `json:"current_chunks"`
}

// IndexStats is a snapshot of vector index counters.
type IndexStats struct {
	Rows       int
	Sources    int
	Dimensions int
	UpdatedAt  time.Time
	Corrupted  bool
}
