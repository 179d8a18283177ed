package repository

import (
	"context"
	"errors"

	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.UserProfile) (*model.UserProfile, error)
	FindByID(ctx context.Context, id int) (*model.UserProfile, error)
}

type UserRepositoryImpl struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &UserRepositoryImpl{
		db: db,
	}
}

// Upsert keeps the profile in sync with the identity provider's claims.
func (r *UserRepositoryImpl) Upsert(ctx context.Context, user *model.UserProfile) (*model.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (id, email, full_name, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, is_admin = EXCLUDED.is_admin
		RETURNING id, email, full_name, is_admin, created_at
	`

	var saved model.UserProfile
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FullName, user.IsAdmin,
	).Scan(
		&saved.ID,
		&saved.Email,
		&saved.FullName,
		&saved.IsAdmin,
		&saved.CreatedAt,
	)
	if err != nil {
		return nil, classify("users.Upsert", err)
	}

	return &saved, nil
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id int) (*model.UserProfile, error) {
	query := `
		SELECT id, email, full_name, is_admin, created_at
		FROM user_profiles
		WHERE id = $1
	`

	var user model.UserProfile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, classify("users.FindByID", err)
	}

	return &user, nil
}
