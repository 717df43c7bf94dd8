package mcp

import (
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ingest fetches and indexes transcripts.
	Ingest driving.IngestService

	// Answer synthesises grounded answers.
	Answer driving.AnswerService

	// Search retrieves passages and related sources.
	Search driving.SearchService

	// Index rebuilds the vector index.
	Index driving.IndexService

	// Status reports index health.
	Status driving.StatusService

	// Source lists ingested sources. Optional; backs the resources.
	Source driving.SourceService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	switch {
	case p.Ingest == nil:
		return ErrMissingIngestService
	case p.Answer == nil:
		return ErrMissingAnswerService
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Index == nil:
		return ErrMissingIndexService
	case p.Status == nil:
		return ErrMissingStatusService
	}
	return nil
}
