package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to OpenAI-compatible endpoints (OpenAI itself,
// Gemini's compatibility layer, vLLM, Ollama).
type Client struct {
	client      *openai.Client
	endpoint    string
	model       string
	visionModel string
	logger      *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint    string // Base URL, e.g., "https://api.openai.com/v1"
	Model       string // Model name, e.g., "gpt-4o"
	VisionModel string // Model used by DescribeImage; defaults to Model
	APIKey      string // Optional for local endpoints
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		visionModel: visionModel,
		logger:      logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
	})
}

// DescribeImage sends the image as a base64 data URL alongside the prompt.
func (c *Client) DescribeImage(
	ctx context.Context,
	prompt string,
	systemMessage string,
	image ImageInput,
) (*GenerateResponseResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: prompt,
				},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    image.DataURL(),
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		},
	}

	c.logger.Debug("Vision request",
		zap.String("model", c.visionModel),
		zap.String("mime_type", image.MimeType),
		zap.Int("image_b64_len", len(image.Base64)))

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:    c.visionModel,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (*GenerateResponseResult, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.String("model", req.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, c.parseError(err, req.Model)
	}

	if len(resp.Choices) == 0 {
		return nil, NewErrorWithContext(ErrorTypeEmpty, "no choices in response", false, nil, req.Model, c.endpoint, 0)
	}

	c.logger.Info("LLM request completed",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}

func (c *Client) parseError(err error, model string) error {
	llmErr := ClassifyError(err)
	llmErr.Model = model
	llmErr.Endpoint = c.endpoint
	return llmErr
}
