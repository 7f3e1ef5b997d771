package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-canvas/pkg/llm"
	"github.com/ekaya-inc/ekaya-canvas/pkg/logging"
	"github.com/ekaya-inc/ekaya-canvas/pkg/metrics"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/prompts"
	"github.com/ekaya-inc/ekaya-canvas/pkg/retry"
)

// ContextExtractionService derives an unsaved context from a reference image.
type ContextExtractionService interface {
	Extract(ctx context.Context, imageBase64, mimeType string) (*models.ExtractedContext, error)
}

type contextExtractionService struct {
	vision  llm.VisionClient
	timeout time.Duration
	retry   *retry.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

var _ ContextExtractionService = (*contextExtractionService)(nil)

// NewContextExtractionService creates an extraction service. m may be nil.
func NewContextExtractionService(vision llm.VisionClient, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) ContextExtractionService {
	return &contextExtractionService{
		vision:  vision,
		timeout: timeout,
		retry:   retry.DefaultConfig(),
		metrics: m,
		logger:  logger.Named("context-extraction"),
	}
}

// extractionResponse is the raw model answer. Fields stay raw so that
// numbers, booleans and comma-joined lists can be coerced instead of
// failing the whole decode.
type extractionResponse struct {
	Name           json.RawMessage            `json:"name"`
	StructuredData map[string]json.RawMessage `json:"structuredData"`
	AIPromptBlock  json.RawMessage            `json:"aiPromptBlock"`
	Tags           json.RawMessage            `json:"tags"`
}

// Extract asks the vision model for a style context. Any provider, parse or
// validation failure is reported as ErrExtractionFailed.
func (s *contextExtractionService) Extract(ctx context.Context, imageBase64, mimeType string) (*models.ExtractedContext, error) {
	if err := models.ValidateImageUpload(mimeType, models.Base64DecodedSize(imageBase64)); err != nil {
		return nil, err
	}
	mimeType = models.BaseImageType(mimeType)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	extracted, err := s.extract(ctx, imageBase64, mimeType)
	if err != nil {
		s.metrics.ObserveExtraction(metrics.OutcomeFailed)
		s.logger.Error("Context extraction failed",
			zap.String("model", s.vision.GetModel()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrExtractionFailed, err)
	}

	s.metrics.ObserveExtraction(metrics.OutcomeSuccess)
	s.logger.Info("Context extracted",
		zap.String("model", s.vision.GetModel()),
		zap.String("name", extracted.Name),
		zap.Duration("elapsed", time.Since(start)))
	return extracted, nil
}

func (s *contextExtractionService) extract(ctx context.Context, imageBase64, mimeType string) (*models.ExtractedContext, error) {
	image := llm.ImageInput{Base64: imageBase64, MimeType: mimeType}
	attempt := 0
	result, err := retry.DoWithResult(ctx, s.retry, func() (*llm.GenerateResponseResult, error) {
		attempt++
		return s.vision.DescribeImage(ctx, prompts.BuildExtractionPrompt(), prompts.ExtractionSystemPrompt, image)
	}, func(err error, wait time.Duration) {
		s.logger.Warn("Vision call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.String("error", logging.SanitizeError(err)))
	})
	if err != nil {
		return nil, err
	}

	raw, err := llm.ParseJSONResponse[extractionResponse](result.Content)
	if err != nil {
		return nil, err
	}

	extracted := &models.ExtractedContext{
		Name:           jsonutil.FlexibleStringValue(raw.Name),
		StructuredData: structuredDataFromRaw(raw.StructuredData),
		AIPromptBlock:  jsonutil.FlexibleStringValue(raw.AIPromptBlock),
		Tags:           jsonutil.FlexibleStringSlice(raw.Tags),
	}
	if err := extracted.Validate(); err != nil {
		return nil, fmt.Errorf("model output rejected: %w", err)
	}
	return extracted, nil
}

// structuredDataFromRaw coerces known facets to their expected shapes and
// keeps unknown keys as decoded JSON. Missing facets stay missing so that
// validation reports them.
func structuredDataFromRaw(raw map[string]json.RawMessage) models.StructuredData {
	if raw == nil {
		return nil
	}

	known := make(map[string]bool, len(models.StructuredDataFacets))
	for _, facet := range models.StructuredDataFacets {
		known[facet] = true
	}

	data := make(models.StructuredData, len(raw))
	for key, value := range raw {
		if string(value) == "null" {
			continue
		}
		switch {
		case key == models.FacetColorPalette:
			if palette := jsonutil.FlexibleStringSlice(value); palette != nil {
				data[key] = palette
			}
		case known[key]:
			data[key] = jsonutil.FlexibleStringValue(value)
		default:
			var v any
			if err := json.Unmarshal(value, &v); err == nil {
				data[key] = v
			}
		}
	}
	return data
}
