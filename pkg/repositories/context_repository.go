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

// ContextRepository defines data access for saved contexts. Every read and
// write is scoped to the owning user; a row owned by someone else behaves as
// if it did not exist.
type ContextRepository interface {
	List(ctx context.Context, userID string, q models.ContextListQuery) ([]*models.Context, int, error)
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error)
	Create(ctx context.Context, c *models.Context) error
	Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	IncrementUsage(ctx context.Context, userID string, id uuid.UUID) error
}

type contextRepository struct {
	db Querier
}

// NewContextRepository creates a PostgreSQL-backed ContextRepository.
func NewContextRepository(db Querier) ContextRepository {
	return &contextRepository{db: db}
}

const contextColumns = `id, user_id, name, structured_data, ai_prompt_block, tags,
		model, aspect_ratio, usage_count, created_at`

var contextSortColumns = map[models.ContextSortField]string{
	models.ContextSortCreatedAt:  "created_at",
	models.ContextSortName:       "name",
	models.ContextSortUsageCount: "usage_count",
}

// List returns one page of the user's contexts plus the total match count.
// The row query is skipped when nothing matches.
func (r *contextRepository) List(ctx context.Context, userID string, q models.ContextListQuery) ([]*models.Context, int, error) {
	var args argList
	where := []string{"user_id = " + args.add(userID)}

	if q.Search != "" {
		p := args.add(containsPattern(q.Search))
		where = append(where, fmt.Sprintf("(name ILIKE %s OR array_to_string(tags, ' ') ILIKE %s)", p, p))
	}
	if len(q.Tags) > 0 {
		where = append(where, "tags && "+args.add(q.Tags)+"::text[]")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM contexts WHERE "+whereSQL, args.values...).Scan(&total); err != nil {
		return nil, 0, apperrors.WrapDatabase("count contexts", err)
	}
	if total == 0 {
		return []*models.Context{}, 0, nil
	}

	column, ok := contextSortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if q.SortOrder == models.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contexts
		WHERE %s
		ORDER BY %s %s
		LIMIT %s OFFSET %s`,
		contextColumns, whereSQL, column, direction, args.add(q.Limit), args.add(q.Offset()))

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, 0, apperrors.WrapDatabase("list contexts", err)
	}
	defer rows.Close()

	contexts := make([]*models.Context, 0, q.Limit)
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, 0, err
		}
		contexts = append(contexts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.WrapDatabase("list contexts", err)
	}

	return contexts, total, nil
}

// GetByID returns the context if it exists and belongs to userID.
func (r *contextRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error) {
	query := `SELECT ` + contextColumns + `
		FROM contexts
		WHERE id = $1 AND user_id = $2`

	c, err := scanContext(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new context with usage_count 0.
func (r *contextRepository) Create(ctx context.Context, c *models.Context) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.UsageCount = 0
	c.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if c.Tags == nil {
		c.Tags = []string{}
	}

	data, err := json.Marshal(c.StructuredData)
	if err != nil {
		return fmt.Errorf("failed to marshal structured data: %w", err)
	}

	query := `
		INSERT INTO contexts (id, user_id, name, structured_data, ai_prompt_block, tags,
		                      model, aspect_ratio, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)`

	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		data,
		c.AIPromptBlock,
		c.Tags,
		c.Model,
		c.AspectRatio,
		c.CreatedAt,
	)
	if err != nil {
		return apperrors.WrapDatabase("create context", err)
	}
	return nil
}

// Update applies only the supplied fields and returns the updated row.
func (r *contextRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error) {
	var args argList
	var sets []string

	if patch.Name != nil {
		sets = append(sets, "name = "+args.add(*patch.Name))
	}
	if patch.StructuredData != nil {
		data, err := json.Marshal(patch.StructuredData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal structured data: %w", err)
		}
		sets = append(sets, "structured_data = "+args.add(data))
	}
	if patch.AIPromptBlock != nil {
		sets = append(sets, "ai_prompt_block = "+args.add(*patch.AIPromptBlock))
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = "+args.add(patch.Tags))
	}
	if patch.Model != nil {
		sets = append(sets, "model = "+args.add(*patch.Model))
	}
	if patch.AspectRatio != nil {
		sets = append(sets, "aspect_ratio = "+args.add(*patch.AspectRatio))
	}
	if len(sets) == 0 {
		return nil, apperrors.NewValidationError("", "no fields to update")
	}

	query := fmt.Sprintf(`
		UPDATE contexts
		SET %s
		WHERE id = %s AND user_id = %s
		RETURNING %s`,
		strings.Join(sets, ", "), args.add(id), args.add(userID), contextColumns)

	return scanContext(r.db.QueryRow(ctx, query, args.values...))
}

// Delete removes the context. ErrNotFound when absent or not owned.
func (r *contextRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contexts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperrors.WrapDatabase("delete context", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps usage_count by one.
func (r *contextRepository) IncrementUsage(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contexts SET usage_count = usage_count + 1 WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return apperrors.WrapDatabase("increment context usage", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanContext(row pgx.Row) (*models.Context, error) {
	var c models.Context
	var data []byte

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&data,
		&c.AIPromptBlock,
		&c.Tags,
		&c.Model,
		&c.AspectRatio,
		&c.UsageCount,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.WrapDatabase("scan context", err)
	}

	if err := json.Unmarshal(data, &c.StructuredData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal structured data: %w", err)
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}
