package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/llm"
	"github.com/ekaya-inc/ekaya-canvas/pkg/logging"
	"github.com/ekaya-inc/ekaya-canvas/pkg/prompts"
)

// ErrEmptyExpansion is returned when the model answered with nothing usable.
var ErrEmptyExpansion = errors.New("prompt expansion returned no text")

// PromptExpansionService rewrites a terse prompt into a richer one.
type PromptExpansionService interface {
	Expand(ctx context.Context, rawPrompt string) (string, error)
}

type promptExpansionService struct {
	llmClient llm.LLMClient
	timeout   time.Duration
	logger    *zap.Logger
}

var _ PromptExpansionService = (*promptExpansionService)(nil)

// NewPromptExpansionService creates an expansion service. A zero timeout
// leaves the caller's deadline in charge.
func NewPromptExpansionService(llmClient llm.LLMClient, timeout time.Duration, logger *zap.Logger) PromptExpansionService {
	return &promptExpansionService{
		llmClient: llmClient,
		timeout:   timeout,
		logger:    logger.Named("prompt-expansion"),
	}
}

func (s *promptExpansionService) Expand(ctx context.Context, rawPrompt string) (string, error) {
	rawPrompt = strings.TrimSpace(rawPrompt)
	if rawPrompt == "" {
		return "", fmt.Errorf("expand prompt: empty input")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.llmClient.GenerateResponse(ctx,
		prompts.BuildExpansionPrompt(rawPrompt),
		prompts.ExpansionSystemPrompt,
		prompts.ExpansionTemperature)
	if err != nil {
		return "", fmt.Errorf("expand prompt: %w", err)
	}

	expanded := llm.CleanText(result.Content)
	if expanded == "" {
		return "", ErrEmptyExpansion
	}

	s.logger.Debug("Prompt expanded",
		zap.String("model", s.llmClient.GetModel()),
		zap.String("raw_prompt", logging.TruncatePrompt(rawPrompt)),
		zap.Int("expanded_length", len(expanded)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return expanded, nil
}
