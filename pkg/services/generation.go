package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/cache"
	"github.com/ekaya-inc/ekaya-canvas/pkg/imagegen"
	"github.com/ekaya-inc/ekaya-canvas/pkg/logging"
	"github.com/ekaya-inc/ekaya-canvas/pkg/metrics"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/repositories"
)

// additionalContextLabel separates the prompt from a context's facets.
const additionalContextLabel = "\n\nAdditional context:\n"

// auditWriteTimeout bounds the best-effort writes that follow generation.
const auditWriteTimeout = 10 * time.Second

// GenerateRequest is one parsed generation request.
type GenerateRequest struct {
	UserID         string
	Prompt         string
	SmartExpansion bool
	// ContextID is the raw value from the form; it may be malformed.
	ContextID      string
	Image          *models.UploadedImage
}

// GenerateResult is returned to the caller on success. ImageID is nil when
// the audit row could not be written.
type GenerateResult struct {
	ImageURL         string     `json:"imageUrl"`
	PublicID         string     `json:"publicId"`
	ImageID          *uuid.UUID `json:"imageId"`
	Prompt           string     `json:"prompt"`
	ProcessingTimeMs int        `json:"processingTimeMs"`
}

// GenerationConfig holds orchestrator settings.
type GenerationConfig struct {
	StorageFolder string
	Timeout       time.Duration
}

// GenerationService runs the generation pipeline for one request.
type GenerationService interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

type generationService struct {
	contextRepo  repositories.ContextRepository
	imageRepo    repositories.ImageRepository
	expander     PromptExpansionService
	generator    imagegen.Generator
	exploreCache cache.ExploreCache
	metrics      *metrics.Metrics
	cfg          GenerationConfig
	logger       *zap.Logger
}

var _ GenerationService = (*generationService)(nil)

// NewGenerationService wires the orchestrator. expander may be nil, in which
// case smart expansion always falls back to the raw prompt. exploreCache
// and m may be nil.
func NewGenerationService(
	contextRepo repositories.ContextRepository,
	imageRepo repositories.ImageRepository,
	expander PromptExpansionService,
	generator imagegen.Generator,
	exploreCache cache.ExploreCache,
	m *metrics.Metrics,
	cfg GenerationConfig,
	logger *zap.Logger,
) GenerationService {
	if exploreCache == nil {
		exploreCache = cache.NopExploreCache{}
	}
	return &generationService{
		contextRepo:  contextRepo,
		imageRepo:    imageRepo,
		expander:     expander,
		generator:    generator,
		exploreCache: exploreCache,
		metrics:      m,
		cfg:          cfg,
		logger:       logger.Named("generation"),
	}
}

// Generate validates the request, resolves the optional context, expands and
// composes the prompt, then calls the generator. Every attempt that reaches
// the generator writes exactly one image row. Requests rejected earlier write
// nothing.
func (s *generationService) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	rawPrompt := strings.TrimSpace(req.Prompt)

	if rawPrompt == "" && req.Image == nil {
		return nil, apperrors.NewValidationError("prompt", "a prompt or a reference image is required")
	}
	if req.Image != nil {
		if err := req.Image.Validate(); err != nil {
			return nil, err
		}
	}

	selected := s.resolveContext(ctx, req.UserID, req.ContextID)

	promptPart := rawPrompt
	if req.SmartExpansion && rawPrompt != "" {
		promptPart = s.expand(ctx, rawPrompt)
	}

	finalPrompt := composePrompt(promptPart, selected)
	if finalPrompt == "" {
		return nil, apperrors.NewValidationError("prompt", "could not build a valid prompt")
	}

	genReq := imagegen.Request{
		Prompt:        finalPrompt,
		StorageFolder: s.cfg.StorageFolder,
	}
	if req.Image != nil {
		genReq.ReferenceImage = &imagegen.ReferenceImage{
			Base64:   base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType: models.BaseImageType(req.Image.MimeType),
		}
	}

	genCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, genErr := s.generator.Generate(genCtx, genReq)
	elapsed := time.Since(start)
	elapsedMs := int(elapsed.Milliseconds())

	contextID := any(nil)
	if req.ContextID != "" {
		contextID = req.ContextID
	}

	if genErr != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			genErr = fmt.Errorf("timed out after %s: %w", s.cfg.Timeout, genErr)
		}
		message := logging.SanitizeError(genErr)

		s.metrics.ObserveGeneration(metrics.OutcomeFailed, s.generator.Model(), elapsed)
		s.logger.Error("Image generation failed",
			zap.String("user_id", req.UserID),
			zap.String("model", s.generator.Model()),
			zap.Int("processing_time_ms", elapsedMs),
			zap.String("error", message))

		s.recordAttempt(ctx, &models.Image{
			UserID:           req.UserID,
			OriginalURL:      "",
			Prompt:           finalPrompt,
			ModelUsed:        s.generator.Model(),
			Status:           models.ImageStatusFailed,
			ProcessingTimeMs: &elapsedMs,
			Metadata: map[string]any{
				models.MetaError:          message,
				models.MetaSmartExpansion: req.SmartExpansion,
				models.MetaContextID:      contextID,
			},
		})
		return nil, fmt.Errorf("%w: %s", apperrors.ErrGenerationFailed, message)
	}

	s.metrics.ObserveGeneration(metrics.OutcomeCompleted, s.generator.Model(), elapsed)

	img := &models.Image{
		UserID:           req.UserID,
		OriginalURL:      result.SecureURL,
		Prompt:           finalPrompt,
		ModelUsed:        s.generator.Model(),
		Status:           models.ImageStatusCompleted,
		ProcessingTimeMs: &elapsedMs,
		Metadata: map[string]any{
			models.MetaProviderAssetID:      result.PublicID,
			models.MetaProviderTextResponse: result.TextResponse,
			models.MetaUsedReferenceImage:   result.UsedReferenceImage,
			models.MetaSmartExpansion:       req.SmartExpansion,
			models.MetaRawPrompt:            rawPrompt,
			models.MetaContextID:            contextID,
		},
	}

	var imageID *uuid.UUID
	if s.recordAttempt(ctx, img) {
		id := img.ID
		imageID = &id
		s.afterCompleted(ctx, req.UserID, selected)
	}

	s.logger.Info("Image generated",
		zap.String("user_id", req.UserID),
		zap.String("public_id", result.PublicID),
		zap.Bool("smart_expansion", req.SmartExpansion),
		zap.Bool("used_context", selected != nil),
		zap.Bool("used_reference_image", result.UsedReferenceImage),
		zap.Int("processing_time_ms", elapsedMs))

	return &GenerateResult{
		ImageURL:         result.SecureURL,
		PublicID:         result.PublicID,
		ImageID:          imageID,
		Prompt:           finalPrompt,
		ProcessingTimeMs: elapsedMs,
	}, nil
}

// resolveContext looks up the selected context for its owner. Anything other
// than a hit is logged and treated as no context.
func (s *generationService) resolveContext(ctx context.Context, userID, rawID string) *models.Context {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("Ignoring malformed context id",
			zap.String("user_id", userID),
			zap.String("context_id", rawID))
		return nil
	}

	c, err := s.contextRepo.GetByID(ctx, userID, id)
	if err != nil {
		s.logger.Warn("Generating without context",
			zap.String("user_id", userID),
			zap.String("context_id", rawID),
			zap.Error(err))
		return nil
	}
	return c
}

// expand returns the expanded prompt, or rawPrompt when expansion fails.
func (s *generationService) expand(ctx context.Context, rawPrompt string) string {
	if s.expander == nil {
		s.metrics.ObserveExpansion(metrics.OutcomeFallback)
		return rawPrompt
	}

	expanded, err := s.expander.Expand(ctx, rawPrompt)
	if err != nil {
		s.metrics.ObserveExpansion(metrics.OutcomeFallback)
		s.logger.Warn("Prompt expansion failed, using raw prompt",
			zap.String("prompt", logging.TruncatePrompt(rawPrompt)),
			zap.String("error", logging.SanitizeError(err)))
		return rawPrompt
	}

	s.metrics.ObserveExpansion(metrics.OutcomeExpanded)
	return expanded
}

// composePrompt appends the context's facets under a fixed label.
func composePrompt(prompt string, selected *models.Context) string {
	if selected == nil {
		return strings.TrimSpace(prompt)
	}
	extra := selected.StructuredData.PromptText()
	if extra == "" {
		return strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(prompt + additionalContextLabel + extra)
}

// recordAttempt writes the audit row. The write is detached from request
// cancellation; failure is logged and reported as false.
func (s *generationService) recordAttempt(ctx context.Context, img *models.Image) bool {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.imageRepo.Create(writeCtx, img); err != nil {
		s.logger.Error("Failed to record generation attempt",
			zap.String("user_id", img.UserID),
			zap.String("status", string(img.Status)),
			zap.Error(err))
		return false
	}
	return true
}

// afterCompleted runs the secondary effects of a stored completed image.
func (s *generationService) afterCompleted(ctx context.Context, userID string, selected *models.Context) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if selected != nil {
		if err := s.contextRepo.IncrementUsage(writeCtx, userID, selected.ID); err != nil {
			s.logger.Warn("Failed to increment context usage",
				zap.String("context_id", selected.ID.String()),
				zap.Error(err))
		}
	}
	s.exploreCache.Invalidate(writeCtx)
}
