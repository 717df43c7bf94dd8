package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	SourceIDs []string `json:"source_ids" jsonschema:"video ids or watch URLs to ingest"`
	Force     bool     `json:"force,omitempty" jsonschema:"re-ingest videos that were already processed"`
	Async     bool     `json:"async,omitempty" jsonschema:"start a background job and return its id"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	JobID    string          `json:"job_id,omitempty"`
	Done     bool            `json:"done"`
	Outcomes []OutcomeOutput `json:"outcomes"`
}

// OutcomeOutput is the result for one source of an ingestion batch.
type OutcomeOutput struct {
	SourceID   string `json:"source_id"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message,omitempty"`
}

// JobInput is the input schema for the ingest_job tool.
type JobInput struct {
	JobID string `json:"job_id" jsonschema:"id returned by an async ingest"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the video transcripts"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to retrieve (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string        `json:"answer"`
	Citations  []PassageInfo `json:"citations"`
	ChunksUsed int           `json:"chunks_used"`
}

// SearchInput is the input schema for the search_content tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find in the video transcripts"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of passages (default from settings)"`
}

// SearchOutput is the output schema for the search_content tool.
type SearchOutput struct {
	Results []PassageInfo `json:"results"`
	Count   int           `json:"count"`
}

// PassageInfo is one transcript passage with its provenance.
type PassageInfo struct {
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader,omitempty"`
	URL        string  `json:"url"`
	Timestamp  string  `json:"timestamp"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// SimilarInput is the input schema for the similar_sources tool.
type SimilarInput struct {
	Query string `json:"query" jsonschema:"topic to find related videos for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of videos (default 5)"`
}

// SimilarOutput is the output schema for the similar_sources tool.
type SimilarOutput struct {
	Sources []SimilarInfo `json:"sources"`
	Count   int           `json:"count"`
}

// SimilarInfo is one video ranked by its best passage.
type SimilarInfo struct {
	SourceID     string  `json:"source_id"`
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader,omitempty"`
	URL          string  `json:"url"`
	MaxScore     float64 `json:"max_score"`
	AverageScore float64 `json:"avg_score"`
	ChunkCount   int     `json:"chunk_count"`
}

// RebuildInput is the (empty) input schema for the rebuild_index tool.
type RebuildInput struct{}

// RebuildOutput is the output schema for the rebuild_index tool.
type RebuildOutput struct {
	PreviousChunks int `json:"previous_chunks"`
	CurrentChunks  int `json:"current_chunks"`
}

// StatusInput is the (empty) input schema for the get_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the get_status tool.
type StatusOutput struct {
	Status        string `json:"status"`
	SourceCount   int    `json:"source_count"`
	ChunkCount    int    `json:"chunk_count"`
	RegistryCount int    `json:"registry_count"`
	LastUpdated   string `json:"last_updated,omitempty"`
}

const defaultSimilarLimit = 5

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Fetch, chunk and index the transcripts of YouTube videos",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_job",
		Description: "Report the progress of an async ingest job",
	}, s.handleIngestJob)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the ingested video transcripts, with timestamped citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_content",
		Description: "Find transcript passages similar to a query",
	}, s.handleSearchContent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similar_sources",
		Description: "Find videos related to a query, ranked by their best passage",
	}, s.handleSimilarSources)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild_index",
		Description: "Rebuild the vector index from stored chunks without refetching",
	}, s.handleRebuildIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_status",
		Description: "Report index health and source counts",
	}, s.handleGetStatus)
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Async {
		job, err := s.ports.Ingest.IngestAsync(ctx, input.SourceIDs, input.Force)
		if err != nil {
			return nil, IngestOutput{}, err
		}
		return nil, IngestOutput{JobID: job.ID(), Outcomes: []OutcomeOutput{}}, nil
	}

	outcomes, err := s.ports.Ingest.Ingest(ctx, input.SourceIDs, input.Force)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{Done: true, Outcomes: toOutcomes(outcomes)}, nil
}

// handleIngestJob reports an async job; outcomes are included once it is done.
func (s *Server) handleIngestJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	job, ok := s.ports.Ingest.Job(input.JobID)
	if !ok {
		return nil, IngestOutput{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, input.JobID)
	}

	out := IngestOutput{JobID: job.ID(), Done: job.Done(), Outcomes: []OutcomeOutput{}}
	if out.Done {
		outcomes, err := job.Wait(ctx)
		if err != nil {
			return nil, IngestOutput{}, err
		}
		out.Outcomes = toOutcomes(outcomes)
	}
	return nil, out, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Answer.Ask(ctx, input.Question, input.K)
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		Answer:     answer.Text,
		Citations:  make([]PassageInfo, len(answer.Citations)),
		ChunksUsed: answer.TotalFound,
	}
	for i := range answer.Citations {
		c := &answer.Citations[i]
		out.Citations[i] = PassageInfo{
			SourceID:   c.SourceID,
			ChunkIndex: c.ChunkIndex,
			Title:      c.Title,
			Uploader:   c.Uploader,
			URL:        c.URL,
			Timestamp:  c.Timestamp,
			Score:      c.Score,
			Content:    c.Content,
		}
	}
	return nil, out, nil
}

// handleSearchContent handles the search_content tool invocation.
func (s *Server) handleSearchContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.ports.Search.SearchContent(ctx, input.Query, input.K)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{
		Results: make([]PassageInfo, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		out.Results[i] = PassageInfo{
			SourceID:   hits[i].SourceID,
			ChunkIndex: hits[i].ChunkIndex,
			Title:      hits[i].Title,
			Uploader:   hits[i].Uploader,
			URL:        hits[i].URL,
			Timestamp:  hits[i].Timestamp,
			Score:      hits[i].Score,
			Content:    hits[i].Content,
		}
	}
	return nil, out, nil
}

// handleSimilarSources handles the similar_sources tool invocation.
func (s *Server) handleSimilarSources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SimilarOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	sources, err := s.ports.Search.SimilarSources(ctx, input.Query, limit)
	if err != nil {
		return nil, SimilarOutput{}, err
	}

	out := SimilarOutput{
		Sources: make([]SimilarInfo, len(sources)),
		Count:   len(sources),
	}
	for i := range sources {
		out.Sources[i] = SimilarInfo(sources[i])
	}
	return nil, out, nil
}

// handleRebuildIndex handles the rebuild_index tool invocation.
func (s *Server) handleRebuildIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	result, err := s.ports.Index.Rebuild(ctx)
	if errors.Is(err, domain.ErrIndexBusy) {
		return nil, RebuildOutput{}, errors.New("a rebuild is already running, retry shortly")
	}
	if err != nil {
		return nil, RebuildOutput{}, err
	}
	return nil, RebuildOutput{PreviousChunks: result.Previous, CurrentChunks: result.Current}, nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		Status:        string(st.Status),
		SourceCount:   st.SourceCount,
		ChunkCount:    st.ChunkCount,
		RegistryCount: st.RegistryCount,
	}
	if !st.LastUpdated.IsZero() {
		out.LastUpdated = st.LastUpdated.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

func toOutcomes(outcomes []domain.IngestOutcome) []OutcomeOutput {
	out := make([]OutcomeOutput, len(outcomes))
	for i := range outcomes {
		out[i] = OutcomeOutput{
			SourceID:   outcomes[i].SourceID,
			Title:      outcomes[i].Title,
			Status:     string(outcomes[i].Status),
			ChunkCount: outcomes[i].ChunkCount,
			Message:    outcomes[i].Message,
		}
	}
	return out
}
