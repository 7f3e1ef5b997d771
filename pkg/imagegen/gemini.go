package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ekaya-inc/ekaya-canvas/pkg/llm"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiModalities asks for an image alongside any commentary.
var geminiModalities = []string{"TEXT", "IMAGE"}

// GeminiProvider generates images through the Gemini API with image output enabled.
type GeminiProvider struct {
	client  *genai.Client
	baseURL string
	model   string
	logger  *zap.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // Defaults to https://generativelanguage.googleapis.com
	Model   string
}

// NewGeminiProvider creates a Gemini image provider. httpClient may be nil.
func NewGeminiProvider(cfg GeminiConfig, httpClient *http.Client, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL + "/"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		baseURL: baseURL,
		model:   cfg.Model,
		logger:  logger.Named("imagegen.gemini"),
	}, nil
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// GenerateImage sends the prompt, plus the reference image when given, and
// returns the first inline image part together with any text parts.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string, ref *ReferenceImage) (*Output, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if ref != nil {
		data, err := base64.StdEncoding.DecodeString(ref.Base64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reference image: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, ref.MimeType))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: geminiModalities})
	if err != nil {
		return nil, p.classify(err)
	}

	return p.parseResponse(resp, ref != nil)
}

func (p *GeminiProvider) parseResponse(resp *genai.GenerateContentResponse, usedReference bool) (*Output, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, llm.NewErrorWithContext(llm.ErrorTypeRefused,
			"prompt blocked: "+string(resp.PromptFeedback.BlockReason), false, nil, p.model, p.baseURL, 0)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, llm.NewErrorWithContext(llm.ErrorTypeEmpty, "no candidates in response", false, nil, p.model, p.baseURL, 0)
	}
	candidate := resp.Candidates[0]

	out := &Output{UsedReferenceImage: usedReference}
	var text []string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && out.Data == nil {
				out.Data = part.InlineData.Data
				out.MimeType = part.InlineData.MIMEType
				continue
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				text = append(text, t)
			}
		}
	}
	out.Text = strings.Join(text, "\n")

	if out.Data == nil {
		msg := "no image in response"
		if reason := candidate.FinishReason; reason != "" && reason != genai.FinishReasonStop {
			msg += " (finish reason " + string(reason) + ")"
		}
		if out.Text != "" {
			msg += ": " + out.Text
		}
		return nil, llm.NewErrorWithContext(llm.ErrorTypeEmpty, msg, false, ErrNoImage, p.model, p.baseURL, 0)
	}
	if out.MimeType == "" {
		out.MimeType = "image/png"
	}

	return out, nil
}

// apiStatus returns the HTTP status carried by a Gemini API error, or 0.
func apiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}

func (p *GeminiProvider) classify(err error) error {
	llmErr := llm.ClassifyError(err)
	llmErr.Model = p.model
	llmErr.Endpoint = p.baseURL
	if status := apiStatus(err); status != 0 {
		llmErr.StatusCode = status
	}
	p.logger.Error("Gemini request failed", zap.Error(llmErr))
	return llmErr
}
