package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
)

// NewExpansionClient builds the text client used for prompt expansion from
// server configuration. The result is wrapped in a circuit breaker.
func NewExpansionClient(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)

	switch cfg.Provider {
	case "anthropic":
		client, err = NewAnthropicClient(&AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}, logger)
	case "openai", "":
		client, err = NewClient(&Config{
			Endpoint: cfg.BaseURL,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return NewBreakerClient(client, NewCircuitBreaker(DefaultCircuitBreakerConfig())), nil
}

// NewVisionClient builds the multimodal client used for context extraction.
// Vision always goes through the OpenAI-compatible endpoint.
func NewVisionClient(cfg *config.LLMConfig, logger *zap.Logger) (VisionClient, error) {
	client, err := NewClient(&Config{
		Endpoint:    cfg.BaseURL,
		Model:       cfg.Model,
		VisionModel: cfg.EffectiveVisionModel(),
		APIKey:      cfg.APIKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return client, nil
}
