package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

const (
	// summaryExcerptChars bounds the transcript text sent for a summary.
	summaryExcerptChars = 4000
	summaryTemperature  = 0.3
)

// AnswerService synthesises answers from retrieved passages.
type AnswerService struct {
	search   *SearchService
	llm      driven.LLMService
	registry driven.RegistryStore
	prompts  driven.PromptStore
	llmCfg   domain.LLMSettings
	persona  domain.Persona
}

// NewAnswerService creates an answer service. llm may be nil, in which case
// Ask still answers empty retrievals but otherwise returns
// domain.ErrLLMUnavailable. A nil prompt store uses the built-in templates.
func NewAnswerService(
	search *SearchService,
	llm driven.LLMService,
	registry driven.RegistryStore,
	prompts driven.PromptStore,
	settings *domain.AppSettings,
) *AnswerService {
	return &AnswerService{
		search:   search,
		llm:      llm,
		registry: registry,
		prompts:  prompts,
		llmCfg:   settings.LLM,
		persona:  settings.Persona,
	}
}

// Ask retrieves up to k passages and asks the model to answer from them.
// When nothing clears the similarity threshold the persona's no-results
// reply is returned without calling the model. Generation failures are
// returned as domain.ErrGenerationProvider and not retried.
func (s *AnswerService) Ask(ctx context.Context, question string, k int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	hits, err := s.search.retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		logger.Debug("No passages above threshold, skipping generation")
		return &domain.Answer{
			Question:  question,
			Text:      s.persona.NoResultsAnswer(),
			Citations: []domain.Citation{},
		}, nil
	}

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	citations := make([]domain.Citation, len(hits))
	for i, h := range hits {
		citations[i] = domain.Citation{
			SourceID:   h.Row.SourceID,
			ChunkIndex: h.Row.ChunkIndex,
			Title:      h.Row.Title,
			Uploader:   h.Row.Uploader,
			URL:        domain.TimestampURL(h.Row.URL, h.Row.Start),
			Timestamp:  domain.FormatTimestamp(h.Row.Start),
			Score:      h.Score,
			Content:    h.Row.Text,
		}
	}
	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Score > citations[j].Score
	})

	system := fmt.Sprintf(s.prompt(driven.PromptAnswerSystem),
		s.persona.Name, s.persona.Personality, s.persona.Tone, s.persona.EndingPhrase)
	user := fmt.Sprintf(s.prompt(driven.PromptAnswerUser), question, formatPassages(citations))

	logger.Section("Answer Generation")
	logger.Debug("Model: %s, passages: %d", s.llm.ModelName(), len(citations))
	stop := logger.Timed("generation")

	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}, driven.ChatOptions{
		MaxTokens:   s.llmCfg.MaxTokens,
		Temperature: s.llmCfg.Temperature,
	})
	stop()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
	}

	return &domain.Answer{
		Question:   question,
		Text:       s.persona.Apply(text),
		Citations:  citations,
		TotalFound: len(citations),
	}, nil
}

// Summarize asks the model for an overview of a stored source.
func (s *AnswerService) Summarize(ctx context.Context, sourceID string) (*domain.SourceSummary, error) {
	entry, err := s.registry.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !entry.Processed() {
		return nil, fmt.Errorf("%w: %s was not ingested successfully", domain.ErrNotFound, sourceID)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	chunks, err := s.registry.Chunks(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	prompt := fmt.Sprintf(s.prompt(driven.PromptSummarise), entry.Source.Title, excerpt(chunks, summaryExcerptChars))
	text, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   max(s.llmCfg.MaxTokens/2, 1),
		Temperature: summaryTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
	}

	return &domain.SourceSummary{
		SourceID:   sourceID,
		Title:      entry.Source.Title,
		Uploader:   entry.Source.Uploader,
		URL:        entry.Source.URL,
		Summary:    strings.TrimSpace(text),
		ChunkCount: len(chunks),
	}, nil
}

func (s *AnswerService) prompt(name string) string {
	if s.prompts != nil {
		p, err := s.prompts.Load(name)
		if err == nil && p != "" {
			return p
		}
		logger.Warn("Prompt %q unavailable, using built-in: %v", name, err)
	}
	return driven.DefaultPrompts()[name]
}

// formatPassages numbers the passages for the user message.
func formatPassages(citations []domain.Citation) string {
	var b strings.Builder
	for i, c := range citations {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, c.Title)
		if c.Uploader != "" {
			fmt.Fprintf(&b, " / %s", c.Uploader)
		}
		fmt.Fprintf(&b, "\nURL: %s\nTime: %s\nScore: %.3f\n%s", c.URL, c.Timestamp, c.Score, c.Content)
	}
	return b.String()
}

// excerpt joins chunk texts, truncated to limit runes.
func excerpt(chunks []domain.Chunk, limit int) string {
	var b strings.Builder
	n := 0
	for _, c := range chunks {
		r := []rune(c.Text)
		if n+len(r) > limit {
			r = r[:limit-n]
		}
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(r))
		n += len(r)
		if n >= limit {
			break
		}
	}
	return b.String()
}
