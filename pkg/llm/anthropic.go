package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient generates text completions with the Anthropic Messages API.
type AnthropicClient struct {
	client   *anthropic.Client
	model    string
	endpoint string
	logger   *zap.Logger
}

// AnthropicConfig holds configuration for creating an Anthropic client.
type AnthropicConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API base (tests, proxies). Empty uses the default.
	BaseURL string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	endpoint := "https://api.anthropic.com/v1"
	if cfg.BaseURL != "" {
		endpoint = strings.TrimSuffix(cfg.BaseURL, "/")
		opts = append(opts, anthropic.WithBaseURL(endpoint))
	}

	return &AnthropicClient{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		model:    cfg.Model,
		endpoint: endpoint,
		logger:   logger.Named("llm.anthropic"),
	}, nil
}

// GenerateResponse sends a single user turn with the system prompt.
// temperature is not forwarded; the model default is used.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    systemMessage,
		MaxTokens: defaultAnthropicMaxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("Anthropic request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		llmErr := ClassifyError(err)
		llmErr.Model = c.model
		llmErr.Endpoint = c.endpoint
		return nil, llmErr
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	c.logger.Info("Anthropic request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          text.String(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (c *AnthropicClient) GetModel() string {
	return c.model
}

func (c *AnthropicClient) GetEndpoint() string {
	return c.endpoint
}
