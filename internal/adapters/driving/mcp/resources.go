package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for ragtube resources.
	uriScheme = "ragtube://"
)

// sourceInfo is the JSON shape of a registry entry in resources.
type sourceInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader,omitempty"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Language   string `json:"language,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing ingested videos.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Every video ingestion attempt with its outcome",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	// Template for a single video.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}",
		Name:        "source",
		Description: "Registry entry of one video",
		MIMEType:    "application/json",
	}, s.handleSourceResource)
}

// handleSourcesResource returns all registry entries.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Source == nil {
		return jsonResource(req.Params.URI, []sourceInfo{})
	}

	entries, err := s.ports.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]sourceInfo, len(entries))
	for i := range entries {
		infos[i] = toSourceInfo(&entries[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleSourceResource returns the entry of one source.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Source == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract sourceId from URI: ragtube://sources/{sourceId}
	sourceID := extractSourceID(req.Params.URI)
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entry, err := s.ports.Source.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting source: %w", err)
	}
	return jsonResource(req.Params.URI, toSourceInfo(entry))
}

func toSourceInfo(e *domain.RegistryEntry) sourceInfo {
	info := sourceInfo{
		ID:         e.Source.ID,
		Title:      e.Source.Title,
		Uploader:   e.Source.Uploader,
		URL:        e.Source.URL,
		Status:     string(e.Status),
		Language:   e.Language,
		ChunkCount: e.ChunkCount,
		Message:    e.Message,
	}
	if !e.Timestamp.IsZero() {
		info.UpdatedAt = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return info
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like ragtube://sources/{sourceId}.
func extractSourceID(uri string) string {
	const prefix = uriScheme + "sources/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
