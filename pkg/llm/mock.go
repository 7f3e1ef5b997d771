package llm

import (
	"context"
	"sync"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	mu                    sync.Mutex
	GenerateResponseCalls int
	LastPrompt            string
	LastSystemMessage     string
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.GenerateResponseCalls++
	m.LastPrompt = prompt
	m.LastSystemMessage = systemMessage
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements LLMClient.
func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// MockVisionClient is the VisionClient counterpart of MockLLMClient.
type MockVisionClient struct {
	DescribeImageFunc func(ctx context.Context, prompt string, systemMessage string, image ImageInput) (*GenerateResponseResult, error)
	Model             string

	mu                 sync.Mutex
	DescribeImageCalls int
	LastImage          ImageInput
}

// DescribeImage implements VisionClient.
func (m *MockVisionClient) DescribeImage(ctx context.Context, prompt string, systemMessage string, image ImageInput) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.DescribeImageCalls++
	m.LastImage = image
	m.mu.Unlock()

	if m.DescribeImageFunc != nil {
		return m.DescribeImageFunc(ctx, prompt, systemMessage, image)
	}
	return &GenerateResponseResult{}, nil
}

// GetModel implements VisionClient.
func (m *MockVisionClient) GetModel() string {
	if m.Model == "" {
		return "mock-vision-model"
	}
	return m.Model
}

var (
	_ LLMClient    = (*MockLLMClient)(nil)
	_ VisionClient = (*MockVisionClient)(nil)
)
