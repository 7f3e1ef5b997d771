package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/cache"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/repositories"
	"github.com/ekaya-inc/ekaya-canvas/pkg/storage"
)

// Explore page size bounds.
const (
	DefaultExploreLimit = 20
	MaxExploreLimit     = 50
)

// ImagePage is one page of a user's own generation history.
type ImagePage = models.Page[*models.Image, models.PageMeta]

// ImageService defines the interface for reading and deleting generation records.
type ImageService interface {
	Explore(ctx context.Context, q models.ExploreQuery) (*models.ExplorePage, error)
	List(ctx context.Context, userID string, q models.ImageListQuery) (*ImagePage, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type imageService struct {
	imageRepo    repositories.ImageRepository
	assetStore   storage.AssetStore
	exploreCache cache.ExploreCache
	logger       *zap.Logger
}

var _ ImageService = (*imageService)(nil)

// NewImageService creates a new image service. exploreCache may be nil.
func NewImageService(
	imageRepo repositories.ImageRepository,
	assetStore storage.AssetStore,
	exploreCache cache.ExploreCache,
	logger *zap.Logger,
) ImageService {
	if exploreCache == nil {
		exploreCache = cache.NopExploreCache{}
	}
	return &imageService{
		imageRepo:    imageRepo,
		assetStore:   assetStore,
		exploreCache: exploreCache,
		logger:       logger.Named("images"),
	}
}

// ClampExploreLimit applies the explore page size rules. Zero means "not
// supplied" and yields the default.
func ClampExploreLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultExploreLimit
	case limit < 1:
		return 1
	case limit > MaxExploreLimit:
		return MaxExploreLimit
	default:
		return limit
	}
}

// Explore returns completed images older than the cursor, newest first. One
// extra row is fetched to decide whether another page exists.
func (s *imageService) Explore(ctx context.Context, q models.ExploreQuery) (*models.ExplorePage, error) {
	q.Limit = ClampExploreLimit(q.Limit)

	cached, version, ok := s.exploreCache.Get(ctx, q)
	if ok {
		return cached, nil
	}

	rows, err := s.imageRepo.ListPublic(ctx, q.Cursor, q.Search, q.Limit+1)
	if err != nil {
		return nil, err
	}

	hasNext := len(rows) > q.Limit
	if hasNext {
		rows = rows[:q.Limit]
	}
	if rows == nil {
		rows = []*models.ExploreImage{}
	}

	var nextCursor *string
	if hasNext && len(rows) > 0 {
		c := rows[len(rows)-1].CreatedAt.UTC().Format(time.RFC3339Nano)
		nextCursor = &c
	}

	page := &models.ExplorePage{
		Items: rows,
		Pagination: models.CursorMeta{
			Limit:       q.Limit,
			HasNextPage: hasNext,
			NextCursor:  nextCursor,
		},
	}
	s.exploreCache.Set(ctx, q, version, page)
	return page, nil
}

// List returns the user's own records in every status.
func (s *imageService) List(ctx context.Context, userID string, q models.ImageListQuery) (*ImagePage, error) {
	items, total, err := s.imageRepo.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Image{}
	}
	return &ImagePage{
		Items:      items,
		Pagination: models.NewPageMeta(q.Page, q.Limit, total),
	}, nil
}

func (s *imageService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error) {
	return s.imageRepo.GetByID(ctx, userID, id)
}

// Delete removes the hosted asset, then the record. The asset removal is
// best-effort: a failure is logged and the record is deleted anyway.
func (s *imageService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	img, err := s.imageRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if publicID := img.ProviderAssetID(); publicID != "" && s.assetStore != nil {
		if err := s.assetStore.Destroy(ctx, publicID); err != nil {
			s.logger.Warn("Failed to destroy hosted asset, deleting record anyway",
				zap.String("image_id", id.String()),
				zap.String("public_id", publicID),
				zap.Error(err))
		}
	}

	if err := s.imageRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	if img.Status == models.ImageStatusCompleted {
		s.exploreCache.Invalidate(ctx)
	}

	s.logger.Info("Image deleted",
		zap.String("user_id", userID),
		zap.String("image_id", id.String()))
	return nil
}
