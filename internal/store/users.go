package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/safar/bookswap/internal/database"
	"github.com/safar/bookswap/internal/models"
)

const userColumns = `id, username, full_name, city, latitude, longitude, created_at, updated_at`

type UserRepository struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

func NewUserRepository(db *sqlx.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{DB: db, Timeout: timeout}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	user := &models.User{}
	err := r.DB.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// Upsert creates the profile for u.ID or overwrites its editable fields.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	saved := &models.User{}
	err := r.DB.GetContext(ctx, saved,
		`INSERT INTO users (id, username, full_name, city, latitude, longitude, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET username = EXCLUDED.username,
		     full_name = EXCLUDED.full_name,
		     city = EXCLUDED.city,
		     latitude = EXCLUDED.latitude,
		     longitude = EXCLUDED.longitude,
		     updated_at = NOW()
		 RETURNING `+userColumns,
		u.ID, u.Username, u.FullName, u.City, u.Latitude, u.Longitude)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return saved, nil
}
