package imagegen

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
)

// NewProvider builds the configured image provider.
func NewProvider(cfg *config.ImageGenConfig, httpClient *http.Client, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, httpClient, logger)
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Size:    cfg.Size,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Provider)
	}
}
