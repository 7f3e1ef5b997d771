package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/llm"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider generates images with the OpenAI images API. The images
// endpoint takes no reference image, so one is ignored when supplied.
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	size     string
	endpoint string
	logger   *zap.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIConfig holds configuration for the OpenAI images provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Defaults to https://api.openai.com/v1
	Model   string
	Size    string
}

// NewOpenAIProvider creates an OpenAI images provider.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultOpenAIBaseURL
	}
	size := cfg.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		size:     size,
		endpoint: endpoint,
		logger:   logger.Named("imagegen.openai"),
	}, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// GenerateImage requests one base64 image. A revised prompt, when the model
// returns one, becomes the text response.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, ref *ReferenceImage) (*Output, error) {
	if ref != nil {
		p.logger.Debug("Reference image ignored by images API", zap.String("model", p.model))
	}

	req := openai.ImageRequest{
		Prompt: prompt,
		Model:  p.model,
		Size:   p.size,
		N:      1,
	}
	// gpt-image models always return base64 and reject response_format.
	if strings.HasPrefix(p.model, "dall-e") {
		req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := p.client.CreateImage(ctx, req)
	if err != nil {
		llmErr := llm.ClassifyError(err)
		llmErr.Model = p.model
		llmErr.Endpoint = p.endpoint
		p.logger.Error("OpenAI image request failed", zap.Error(llmErr))
		return nil, llmErr
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, llm.NewErrorWithContext(llm.ErrorTypeEmpty, "no image in response", false, ErrNoImage, p.model, p.endpoint, 0)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	return &Output{
		Data:     data,
		MimeType: "image/png",
		Text:     resp.Data[0].RevisedPrompt,
	}, nil
}
