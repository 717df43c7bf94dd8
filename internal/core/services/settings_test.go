package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embeddingErr   error
	llmErr         error
	embeddingCalls int
	llmCalls       int
}

func (m *mockAIValidator) ValidateEmbedding(*domain.EmbeddingSettings) error {
	m.embeddingCalls++
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(*domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *got)
}

func TestSettingsService_SetTypedValues(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.Set("rag.chunk_size", "500"))
	require.NoError(t, svc.Set("rag.chunk_overlap", " 50 "))
	require.NoError(t, svc.Set("rag.similarity_threshold", "0.25"))
	require.NoError(t, svc.Set("youtube.rate_limit_backoff", "45s"))
	require.NoError(t, svc.Set("youtube.subtitle_languages", "en, de,,fr"))
	require.NoError(t, svc.Set("index.auto_rebuild", "false"))
	require.NoError(t, svc.Set("persona.name", "Mika"))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 500, got.RAG.ChunkSize)
	assert.Equal(t, 50, got.RAG.ChunkOverlap)
	assert.InDelta(t, 0.25, got.RAG.SimilarityThreshold, 1e-9)
	assert.Equal(t, 45*time.Second, got.Fetch.RateLimitBackoff)
	assert.Equal(t, []string{"en", "de", "fr"}, got.Fetch.PreferredLanguages)
	assert.False(t, got.Index.AutoRebuild)
	assert.Equal(t, "Mika", got.Persona.Name)
}

func TestSettingsService_SetRejectsInvalid(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	assert.ErrorIs(t, svc.Set("rag.chunk_overlap", "1000"), domain.ErrConfiguration)
	assert.ErrorIs(t, svc.Set("rag.chunk_size", "abc"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set("llm.timeout", "soon"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set("embedding.provider", "anthropic"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set("no.such.key", "1"), domain.ErrInvalidInput)

	// Nothing invalid was persisted.
	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 200, got.RAG.ChunkOverlap)
}

func TestSettingsService_ProviderSwitchPicksDefaultModel(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, svc.Set("embedding.provider", "Ollama"))
	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, got.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", got.Embedding.Model)

	// An explicit model wins over the provider default.
	require.NoError(t, svc.Set("embedding.model", "mxbai-embed-large"))
	got, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", got.Embedding.Model)
}

func TestSettingsService_ValidatesProviders(t *testing.T) {
	validator := &mockAIValidator{}
	svc := NewSettingsService(memory.NewConfigStore(), validator)

	require.NoError(t, svc.Set("embedding.api_key", "sk-test"))
	require.NoError(t, svc.Set("llm.model", "gpt-4o"))
	require.NoError(t, svc.Set("llm.temperature", "0.5"))
	assert.Equal(t, 1, validator.embeddingCalls)
	assert.Equal(t, 1, validator.llmCalls)

	validator.llmErr = errors.New("connection refused")
	err := svc.Set("llm.base_url", "http://localhost:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Empty(t, got.LLM.BaseURL)
}

func TestSettingsService_Keys(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	keys := svc.Keys()
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "rag.chunk_size")
	assert.Contains(t, keys, "persona.ending_phrase")
	assert.Len(t, keys, len(fields(&domain.AppSettings{})))
}

func TestSettingsService_GetStoredDurations(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("youtube.sleep_interval", 2))
	require.NoError(t, store.Set("llm.timeout", "2m"))
	svc := NewSettingsService(store, nil)

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, got.Fetch.SleepInterval)
	assert.Equal(t, 2*time.Minute, got.LLM.Timeout)

	require.NoError(t, store.Set("llm.timeout", "later"))
	_, err = svc.Get()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
