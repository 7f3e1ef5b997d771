package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

// UserRepository mirrors session users into the users table.
type UserRepository interface {
	// Upsert inserts the user or refreshes its profile fields.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type userRepository struct {
	db Querier
}

// NewUserRepository creates a PostgreSQL-backed UserRepository.
func NewUserRepository(db Querier) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, name, email, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    image = EXCLUDED.image,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, user.ID, user.Name, user.Email, user.Image, now).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return apperrors.WrapDatabase("upsert user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, image, created_at, updated_at
		FROM users
		WHERE id = $1`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.WrapDatabase("get user", err)
	}
	return &u, nil
}
