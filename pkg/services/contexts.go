package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/repositories"
)

// ContextPage is one page of a user's saved contexts.
type ContextPage = models.Page[*models.Context, models.PageMeta]

// ContextService defines the interface for saved-context operations.
// Every method is scoped to userID; other users' contexts are never visible.
type ContextService interface {
	List(ctx context.Context, userID string, q models.ContextListQuery) (*ContextPage, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error)
	Save(ctx context.Context, userID string, in *models.ContextInput) (*models.Context, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type contextService struct {
	contextRepo repositories.ContextRepository
	logger      *zap.Logger
}

var _ ContextService = (*contextService)(nil)

// NewContextService creates a new context service with dependencies.
func NewContextService(contextRepo repositories.ContextRepository, logger *zap.Logger) ContextService {
	return &contextService{
		contextRepo: contextRepo,
		logger:      logger.Named("contexts"),
	}
}

// List returns one page of contexts and its pagination metadata.
func (s *contextService) List(ctx context.Context, userID string, q models.ContextListQuery) (*ContextPage, error) {
	items, total, err := s.contextRepo.List(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Context{}
	}
	return &ContextPage{
		Items:      items,
		Pagination: models.NewPageMeta(q.Page, q.Limit, total),
	}, nil
}

func (s *contextService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error) {
	return s.contextRepo.GetByID(ctx, userID, id)
}

// Save validates a complete payload and stores it with a zero usage count.
func (s *contextService) Save(ctx context.Context, userID string, in *models.ContextInput) (*models.Context, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c := &models.Context{
		UserID:         userID,
		Name:           in.Name,
		StructuredData: in.StructuredData,
		AIPromptBlock:  in.AIPromptBlock,
		Tags:           in.Tags,
		Model:          in.Model,
		AspectRatio:    in.AspectRatio,
		UsageCount:     0,
	}
	if err := s.contextRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Context saved",
		zap.String("user_id", userID),
		zap.String("context_id", c.ID.String()),
		zap.Int("tags", len(c.Tags)))
	return c, nil
}

// Update applies the supplied fields only. Storage failures other than
// not-found are reported as ErrUpdateFailed.
func (s *contextService) Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.contextRepo.Update(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpdateFailed, err)
	}
	return updated, nil
}

func (s *contextService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.contextRepo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("Context deleted",
		zap.String("user_id", userID),
		zap.String("context_id", id.String()))
	return nil
}
