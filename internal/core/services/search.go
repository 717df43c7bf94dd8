package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService embeds queries and retrieves passages from the vector index.
type SearchService struct {
	embedder *BatchEmbedder
	index    driven.VectorIndex
	defaultK int
	floor    float64
}

// NewSearchService creates a search service using the retrieval settings.
func NewSearchService(embedder *BatchEmbedder, index driven.VectorIndex, rag domain.RAGSettings) *SearchService {
	return &SearchService{
		embedder: embedder,
		index:    index,
		defaultK: rag.RetrievalK,
		floor:    rag.SimilarityThreshold,
	}
}

// SearchContent returns up to k passages scoring at least the similarity
// threshold, best first.
func (s *SearchService) SearchContent(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	hits, err := s.retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchHit, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchHit{
			SourceID:   h.Row.SourceID,
			ChunkIndex: h.Row.ChunkIndex,
			Title:      h.Row.Title,
			Uploader:   h.Row.Uploader,
			URL:        domain.TimestampURL(h.Row.URL, h.Row.Start),
			Content:    h.Row.Text,
			Start:      h.Row.Start,
			Timestamp:  domain.FormatTimestamp(h.Row.Start),
			Score:      h.Score,
		}
	}
	return results, nil
}

// SimilarSources retrieves limit passages and groups them by source. Each
// source reports its best and mean score; sources are ordered by best score.
func (s *SearchService) SimilarSources(ctx context.Context, query string, limit int) ([]domain.SimilarSource, error) {
	if limit <= 0 {
		limit = s.defaultK
	}
	hits, err := s.retrieve(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]*domain.SimilarSource)
	order := make([]string, 0)
	sums := make(map[string]float64)

	for _, h := range hits {
		id := h.Row.SourceID
		agg, ok := bySource[id]
		if !ok {
			agg = &domain.SimilarSource{
				SourceID: id,
				Title:    h.Row.Title,
				Uploader: h.Row.Uploader,
				URL:      h.Row.URL,
				MaxScore: h.Score,
			}
			bySource[id] = agg
			order = append(order, id)
		}
		agg.ChunkCount++
		sums[id] += h.Score
		agg.MaxScore = max(agg.MaxScore, h.Score)
	}

	results := make([]domain.SimilarSource, 0, len(order))
	for _, id := range order {
		agg := bySource[id]
		agg.AverageScore = sums[id] / float64(agg.ChunkCount)
		results = append(results, *agg)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MaxScore > results[j].MaxScore
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// retrieve embeds the query and searches the index. Only an unreadable
// index or a failing embedding provider make retrieval fail.
func (s *SearchService) retrieve(ctx context.Context, query string, k int) ([]driven.VectorHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = s.defaultK
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, k=%d, floor=%.2f", query, k, s.floor)

	if stats := s.index.Stats(); stats.Rows == 0 && !stats.Corrupted {
		logger.Debug("Index empty, skipping query embedding")
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, k, s.floor)
	if err != nil {
		if errors.Is(err, domain.ErrIndexCorrupted) {
			logger.Error("vector index is corrupted; run `ragtube rebuild` to recover")
		}
		return nil, fmt.Errorf("search index: %w", err)
	}

	logger.Debug("Hits: %d", len(hits))
	return hits, nil
}
