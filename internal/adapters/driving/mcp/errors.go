// Package mcp provides an MCP (Model Context Protocol) server adapter for ragtube.
// It lets AI assistants ingest videos and query the transcript index.
package mcp

import "errors"

// Errors returned when a required port is not provided.
var (
	ErrMissingIngestService = errors.New("mcp: ingest service is required")
	ErrMissingAnswerService = errors.New("mcp: answer service is required")
	ErrMissingSearchService = errors.New("mcp: search service is required")
	ErrMissingIndexService  = errors.New("mcp: index service is required")
	ErrMissingStatusService = errors.New("mcp: status service is required")
)
