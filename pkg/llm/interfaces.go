// Package llm provides the text and vision model clients used for prompt
// expansion and context extraction.
package llm

import (
	"context"
)

// GenerateResponseResult carries a completion and its token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ImageInput is an inline image passed to a vision model.
type ImageInput struct {
	Base64   string
	MimeType string
}

// DataURL renders the image as a data: URL.
func (i ImageInput) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.Base64
}

// LLMClient generates text completions.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// VisionClient answers a prompt about an inline image.
type VisionClient interface {
	DescribeImage(ctx context.Context, prompt string, systemMessage string, image ImageInput) (*GenerateResponseResult, error)
	GetModel() string
}

var (
	_ LLMClient    = (*Client)(nil)
	_ VisionClient = (*Client)(nil)
	_ LLMClient    = (*AnthropicClient)(nil)
	_ LLMClient    = (*BreakerClient)(nil)
)
