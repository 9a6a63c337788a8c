package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/models"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

type NotificationRepository struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

func NewNotificationRepository(db *sqlx.DB, timeout time.Duration) *NotificationRepository {
	return &NotificationRepository{DB: db, Timeout: timeout}
}

// Insert appends n to its recipient's inbox.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	err := r.DB.QueryRowxContext(ctx,
		`INSERT INTO notifications (id, user_id, title, body, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE SET id = notifications.id
		 RETURNING created_at`,
		n.ID, n.UserID, n.Title, n.Body,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// ListForUser pages through userID's notifications newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID, cursor string, limit int) (*CursorPage, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}

	decoded, err := DecodeCursor(cursor)
	if err != nil {
		return nil, apperr.Validation("invalid cursor")
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	query := `
		SELECT id, user_id, title, body, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	args := []any{userID, limit + 1}

	if decoded != nil {
		query = `
			SELECT id, user_id, title, body, created_at
			FROM notifications
			WHERE user_id = $1
			  AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4`
		args = []any{userID, decoded.CreatedAt, decoded.ID, limit + 1}
	}

	notifications := []models.Notification{}
	if err := r.DB.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	hasMore := len(notifications) > limit
	if hasMore {
		notifications = notifications[:limit]
	}

	var nextCursor string
	if hasMore && len(notifications) > 0 {
		last := notifications[len(notifications)-1]
		nextCursor = EncodeCursor(NotificationCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      notifications,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
