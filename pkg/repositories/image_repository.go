package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

// ImageRepository defines data access for generation records.
type ImageRepository interface {
	Create(ctx context.Context, img *models.Image) error
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error)
	ListByUser(ctx context.Context, userID string, q models.ImageListQuery) ([]*models.Image, int, error)
	// ListPublic returns up to n completed images older than cursor (if set),
	// newest first, joined with the creator's public profile.
	ListPublic(ctx context.Context, cursor *time.Time, search string, n int) ([]*models.ExploreImage, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type imageRepository struct {
	db Querier
}

// NewImageRepository creates a PostgreSQL-backed ImageRepository.
func NewImageRepository(db Querier) ImageRepository {
	return &imageRepository{db: db}
}

const imageColumns = `id, user_id, original_url, transformed_url, prompt, model_used,
		status, processing_time_ms, metadata, created_at`

// Create inserts a single generation record.
func (r *imageRepository) Create(ctx context.Context, img *models.Image) error {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	if img.Status == "" {
		img.Status = models.ImageStatusProcessing
	}
	img.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	metadata := img.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal image metadata: %w", err)
	}

	query := `
		INSERT INTO images (id, user_id, original_url, transformed_url, prompt, model_used,
		                    status, processing_time_ms, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		img.ID,
		img.UserID,
		img.OriginalURL,
		img.TransformedURL,
		img.Prompt,
		img.ModelUsed,
		string(img.Status),
		img.ProcessingTimeMs,
		data,
		img.CreatedAt,
	)
	if err != nil {
		return apperrors.WrapDatabase("create image", err)
	}
	return nil
}

// GetByID returns the image if it exists and belongs to userID.
func (r *imageRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error) {
	query := `SELECT ` + imageColumns + `
		FROM images
		WHERE id = $1 AND user_id = $2`

	return scanImage(r.db.QueryRow(ctx, query, id, userID))
}

// ListByUser pages through the user's own records, all statuses, newest first.
func (r *imageRepository) ListByUser(ctx context.Context, userID string, q models.ImageListQuery) ([]*models.Image, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperrors.WrapDatabase("count images", err)
	}
	if total == 0 {
		return []*models.Image{}, 0, nil
	}

	query := `SELECT ` + imageColumns + `
		FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, apperrors.WrapDatabase("list images", err)
	}
	defer rows.Close()

	images := make([]*models.Image, 0, q.Limit)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.WrapDatabase("list images", err)
	}
	return images, total, nil
}

// ListPublic backs the explore feed. Only COMPLETED rows are ever returned.
func (r *imageRepository) ListPublic(ctx context.Context, cursor *time.Time, search string, n int) ([]*models.ExploreImage, error) {
	var args argList
	where := []string{"i.status = " + args.add(string(models.ImageStatusCompleted))}
	if cursor != nil {
		where = append(where, "i.created_at < "+args.add(*cursor))
	}
	if search != "" {
		where = append(where, "i.prompt ILIKE "+args.add(containsPattern(search)))
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.original_url, i.transformed_url, i.prompt, i.model_used,
		       i.processing_time_ms, i.created_at, u.id, u.name, u.image
		FROM images i
		JOIN users u ON u.id = i.user_id
		WHERE %s
		ORDER BY i.created_at DESC
		LIMIT %s`,
		strings.Join(where, " AND "), args.add(n))

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, apperrors.WrapDatabase("list public images", err)
	}
	defer rows.Close()

	items := make([]*models.ExploreImage, 0, n)
	for rows.Next() {
		var item models.ExploreImage
		if err := rows.Scan(
			&item.ID,
			&item.OriginalURL,
			&item.TransformedURL,
			&item.Prompt,
			&item.ModelUsed,
			&item.ProcessingTimeMs,
			&item.CreatedAt,
			&item.User.ID,
			&item.User.Name,
			&item.User.Image,
		); err != nil {
			return nil, apperrors.WrapDatabase("scan public image", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabase("list public images", err)
	}
	return items, nil
}

// Delete removes the record. ErrNotFound when absent or not owned.
func (r *imageRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperrors.WrapDatabase("delete image", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	var status string
	var data []byte

	err := row.Scan(
		&img.ID,
		&img.UserID,
		&img.OriginalURL,
		&img.TransformedURL,
		&img.Prompt,
		&img.ModelUsed,
		&status,
		&img.ProcessingTimeMs,
		&data,
		&img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.WrapDatabase("scan image", err)
	}

	img.Status = models.ImageStatus(status)
	if err := json.Unmarshal(data, &img.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image metadata: %w", err)
	}
	return &img, nil
}
