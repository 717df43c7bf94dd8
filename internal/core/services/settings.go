package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize        = "rag.chunk_size"
	keyChunkOverlap     = "rag.chunk_overlap"
	keyRetrievalK       = "rag.retrieval_k"
	keyThreshold        = "rag.similarity_threshold"
	keyEmbedBatchSize   = "rag.embed_batch_size"
	keyEmbedMaxAttempts = "rag.embed_max_attempts"
	keyEmbedBackoff     = "rag.embed_backoff"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyLLMMaxTokens     = "llm.max_tokens"
	keyLLMTimeout       = "llm.timeout"
	keyLanguages        = "youtube.subtitle_languages"
	keyFallbackLangs    = "youtube.fallback_languages"
	keyFetchAttempts    = "youtube.max_attempts"
	keyRateLimitBackoff = "youtube.rate_limit_backoff"
	keySleepInterval    = "youtube.sleep_interval"
	keyMaxSleep         = "youtube.max_sleep"
	keyRequestsPerSec   = "youtube.requests_per_second"
	keyUserAgent        = "youtube.user_agent"
	keyMaxWorkers       = "general.max_workers"
	keyDataDir          = "storage.data_dir"
	keyWatchDir         = "storage.watch_dir"
	keyAutoRebuild      = "index.auto_rebuild"
	keyPersonaName      = "persona.name"
	keyPersonality      = "persona.personality"
	keyPersonaTone      = "persona.tone"
	keyGreeting         = "persona.greeting"
	keyEndingPhrase     = "persona.ending_phrase"
	keyEmoji            = "persona.emoji"
	keyNoResults        = "persona.no_results"
)

// SettingsService maps config store keys onto typed application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; when set, provider changes are pinged before saving.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// fields returns a pointer to the settings field behind every key.
func fields(s *domain.AppSettings) map[string]any {
	return map[string]any{
		keyChunkSize:        &s.RAG.ChunkSize,
		keyChunkOverlap:     &s.RAG.ChunkOverlap,
		keyRetrievalK:       &s.RAG.RetrievalK,
		keyThreshold:        &s.RAG.SimilarityThreshold,
		keyEmbedBatchSize:   &s.RAG.EmbedBatchSize,
		keyEmbedMaxAttempts: &s.RAG.EmbedMaxAttempts,
		keyEmbedBackoff:     &s.RAG.EmbedBackoff,
		keyEmbedProvider:    &s.Embedding.Provider,
		keyEmbedModel:       &s.Embedding.Model,
		keyEmbedBaseURL:     &s.Embedding.BaseURL,
		keyEmbedAPIKey:      &s.Embedding.APIKey,
		keyLLMProvider:      &s.LLM.Provider,
		keyLLMModel:         &s.LLM.Model,
		keyLLMBaseURL:       &s.LLM.BaseURL,
		keyLLMAPIKey:        &s.LLM.APIKey,
		keyLLMTemperature:   &s.LLM.Temperature,
		keyLLMMaxTokens:     &s.LLM.MaxTokens,
		keyLLMTimeout:       &s.LLM.Timeout,
		keyLanguages:        &s.Fetch.PreferredLanguages,
		keyFallbackLangs:    &s.Fetch.FallbackLanguages,
		keyFetchAttempts:    &s.Fetch.MaxAttempts,
		keyRateLimitBackoff: &s.Fetch.RateLimitBackoff,
		keySleepInterval:    &s.Fetch.SleepInterval,
		keyMaxSleep:         &s.Fetch.MaxSleep,
		keyRequestsPerSec:   &s.Fetch.RequestsPerSecond,
		keyUserAgent:        &s.Fetch.UserAgent,
		keyMaxWorkers:       &s.General.MaxWorkers,
		keyDataDir:          &s.Storage.DataDir,
		keyWatchDir:         &s.Storage.WatchDir,
		keyAutoRebuild:      &s.Index.AutoRebuild,
		keyPersonaName:      &s.Persona.Name,
		keyPersonality:      &s.Persona.Personality,
		keyPersonaTone:      &s.Persona.Tone,
		keyGreeting:         &s.Persona.Greeting,
		keyEndingPhrase:     &s.Persona.EndingPhrase,
		keyEmoji:            &s.Persona.Emoji,
		keyNoResults:        &s.Persona.NoResults,
	}
}

// Get returns the defaults overlaid with every key present in the store.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for key, ptr := range fields(&settings) {
		if _, ok := s.configStore.Get(key); !ok {
			continue
		}
		if err := s.load(key, ptr); err != nil {
			return nil, err
		}
	}

	s.defaultModels(&settings)
	return &settings, nil
}

// defaultModels gives a provider without a stored model its default one.
func (s *SettingsService) defaultModels(settings *domain.AppSettings) {
	if _, ok := s.configStore.Get(keyEmbedModel); !ok {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if _, ok := s.configStore.Get(keyLLMModel); !ok {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}
}

// Set parses value according to the key's type, validates the resulting
// settings and persists the key.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	ptr, ok := fields(settings)[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	stored, err := parseInto(ptr, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if key == keyEmbedProvider || key == keyLLMProvider {
		s.defaultModels(settings)
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	if s.aiValidator != nil {
		switch {
		case strings.HasPrefix(key, "embedding."):
			if err := s.aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
				return fmt.Errorf("embedding provider check: %w", err)
			}
		case key == keyLLMProvider || key == keyLLMModel || key == keyLLMBaseURL || key == keyLLMAPIKey:
			if err := s.aiValidator.ValidateLLM(&settings.LLM); err != nil {
				return fmt.Errorf("llm provider check: %w", err)
			}
		}
	}

	return s.configStore.Set(key, stored)
}

// Keys returns every known setting key in sorted order.
func (s *SettingsService) Keys() []string {
	var settings domain.AppSettings
	keys := make([]string, 0, 40)
	for k := range fields(&settings) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigPath returns the config file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// load reads key from the store into the field behind ptr.
func (s *SettingsService) load(key string, ptr any) error {
	switch p := ptr.(type) {
	case *int:
		*p = s.configStore.GetInt(key)
	case *float64:
		*p = s.configStore.GetFloat(key)
	case *bool:
		*p = s.configStore.GetBool(key)
	case *string:
		*p = s.configStore.GetString(key)
	case *[]string:
		*p = s.configStore.GetStringSlice(key)
	case *domain.AIProvider:
		provider := domain.AIProvider(s.configStore.GetString(key))
		if !provider.IsValid() {
			return fmt.Errorf("%w: %s: unknown provider %q", domain.ErrConfiguration, key, provider)
		}
		*p = provider
	case *time.Duration:
		d, err := s.configStore.GetDuration(key)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, key, err)
		}
		*p = d
	default:
		return fmt.Errorf("unsupported setting type %T for %s", ptr, key)
	}
	return nil
}

// parseInto parses value into the field behind ptr and returns the value to
// persist.
func parseInto(ptr any, value string) (any, error) {
	value = strings.TrimSpace(value)

	switch p := ptr.(type) {
	case *int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		*p = n
		return n, nil
	case *float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		*p = f
		return f, nil
	case *bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, err
		}
		*p = b
		return b, nil
	case *string:
		*p = value
		return value, nil
	case *[]string:
		var list []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		*p = list
		return list, nil
	case *domain.AIProvider:
		provider := domain.AIProvider(strings.ToLower(value))
		if !provider.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		*p = provider
		return provider.String(), nil
	case *time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		*p = d
		return d.String(), nil
	default:
		return nil, fmt.Errorf("unsupported setting type %T", ptr)
	}
}
