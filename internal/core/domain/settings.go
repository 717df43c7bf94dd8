package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// RAGSettings holds chunking, retrieval and embedding batch configuration.
type RAGSettings struct {
	// ChunkSize is the window length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive windows.
	// Must be smaller than ChunkSize.
	ChunkOverlap int

	// RetrievalK is the default number of passages retrieved per query.
	RetrievalK int

	// SimilarityThreshold is the minimum cosine score a hit must reach.
	SimilarityThreshold float64

	// EmbedBatchSize is the maximum number of texts per embedding request.
	EmbedBatchSize int

	// EmbedMaxAttempts bounds embedding retries per batch.
	EmbedMaxAttempts int

	// EmbedBackoff is the initial wait between embedding retries.
	EmbedBackoff time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature is kept low so answers stay close to the passages.
	Temperature float64

	// MaxTokens bounds the generated answer length.
	MaxTokens int

	// Timeout bounds a single generation request.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// FetchSettings holds transcript fetching and retry configuration.
type FetchSettings struct {
	// PreferredLanguages are tried first, in order.
	PreferredLanguages []string

	// FallbackLanguages are tried when no preferred language is available.
	FallbackLanguages []string

	// MaxAttempts bounds fetch attempts per source.
	MaxAttempts int

	// RateLimitBackoff is the wait after the provider throttles a request.
	RateLimitBackoff time.Duration

	// SleepInterval and MaxSleep bound the jittered wait after other errors.
	SleepInterval time.Duration
	MaxSleep      time.Duration

	// RequestsPerSecond paces outbound provider requests.
	RequestsPerSecond float64

	// UserAgent overrides the client user agent when set.
	UserAgent string
}

// StorageSettings holds on-disk locations.
type StorageSettings struct {
	// DataDir holds the registry database and the index snapshot.
	DataDir string

	// WatchDir is scanned for dropped .vtt and .srt transcripts.
	WatchDir string
}

// IndexSettings controls vector index recovery.
type IndexSettings struct {
	// AutoRebuild rebuilds the index at startup when it disagrees with the store.
	AutoRebuild bool
}

// GeneralSettings holds process-wide tuning.
type GeneralSettings struct {
	// MaxWorkers bounds concurrent source ingestion.
	MaxWorkers int
}

// AppSettings holds all application settings.
type AppSettings struct {
	RAG       RAGSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Fetch     FetchSettings
	Storage   StorageSettings
	Index     IndexSettings
	General   GeneralSettings
	Persona   Persona
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty; the embedding and LLM providers report
// themselves unconfigured until one is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		RAG: RAGSettings{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			RetrievalK:          5,
			SimilarityThreshold: 0.7,
			EmbedBatchSize:      64,
			EmbedMaxAttempts:    3,
			EmbedBackoff:        time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-ada-002",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   2000,
			Timeout:     30 * time.Second,
		},
		Fetch: FetchSettings{
			PreferredLanguages: []string{"ja", "en"},
			FallbackLanguages:  []string{"ja", "en"},
			MaxAttempts:        3,
			RateLimitBackoff:   30 * time.Second,
			SleepInterval:      2 * time.Second,
			MaxSleep:           5 * time.Second,
			RequestsPerSecond:  1,
		},
		Index: IndexSettings{
			AutoRebuild: true,
		},
		General: GeneralSettings{
			MaxWorkers: 4,
		},
		Persona: DefaultPersona(),
	}
}

// Validate checks the settings for values the pipeline cannot run with.
// All failures wrap ErrConfiguration.
func (s *AppSettings) Validate() error {
	switch {
	case s.RAG.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, s.RAG.ChunkSize)
	case s.RAG.ChunkOverlap < 0 || s.RAG.ChunkOverlap >= s.RAG.ChunkSize:
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			ErrConfiguration, s.RAG.ChunkOverlap, s.RAG.ChunkSize)
	case s.RAG.RetrievalK <= 0:
		return fmt.Errorf("%w: retrieval k must be positive, got %d", ErrConfiguration, s.RAG.RetrievalK)
	case s.RAG.SimilarityThreshold < -1 || s.RAG.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity threshold %.2f outside [-1, 1]",
			ErrConfiguration, s.RAG.SimilarityThreshold)
	case s.RAG.EmbedBatchSize <= 0:
		return fmt.Errorf("%w: embed batch size must be positive", ErrConfiguration)
	case s.RAG.EmbedMaxAttempts <= 0:
		return fmt.Errorf("%w: embed max attempts must be positive", ErrConfiguration)
	case s.Fetch.MaxAttempts <= 0:
		return fmt.Errorf("%w: fetch max attempts must be positive", ErrConfiguration)
	case s.Fetch.MaxSleep < s.Fetch.SleepInterval:
		return fmt.Errorf("%w: fetch max sleep is below sleep interval", ErrConfiguration)
	case s.General.MaxWorkers <= 0:
		return fmt.Errorf("%w: max workers must be positive, got %d", ErrConfiguration, s.General.MaxWorkers)
	case s.LLM.MaxTokens <= 0:
		return fmt.Errorf("%w: llm max tokens must be positive", ErrConfiguration)
	}
	return nil
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-ada-002",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
