package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeText is embedded to learn a model's vector length.
const probeText = "ragtube"

// ConfigValidator checks provider settings before they are saved.
// Embedding settings are probed with a real embedding so a model whose
// vector length differs from the existing index is rejected.
type ConfigValidator struct {
	timeout   time.Duration
	indexDims func() int
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithIndexDimensions reports the dimensions of the current index; zero
// means the index is empty and any length is accepted.
func WithIndexDimensions(f func() int) ValidatorOption {
	return func(v *ConfigValidator) {
		v.indexDims = f
	}
}

// WithTimeout bounds each provider check.
func WithTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		v.timeout = d
	}
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding embeds a probe text with the configured provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	vec, err := svc.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if v.indexDims != nil {
		if dims := v.indexDims(); dims > 0 && dims != len(vec) {
			return fmt.Errorf("%w: model %s returns %d dimensions but the index holds %d; "+
				"remove the index and re-ingest to switch models",
				domain.ErrDimensionMismatch, config.Model, len(vec), dims)
		}
	}
	return nil
}

// ValidateLLM pings the configured LLM provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}
