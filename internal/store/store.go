package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repositories groups the postgres-backed repositories sharing one connection pool.
type Repositories struct {
	Listings      *ListingRepository
	Purchases     *PurchaseRepository
	Notifications *NotificationRepository
	Users         *UserRepository
}

func NewRepositories(db *sqlx.DB, queryTimeout time.Duration) *Repositories {
	return &Repositories{
		Listings:      NewListingRepository(db, queryTimeout),
		Purchases:     NewPurchaseRepository(db, queryTimeout),
		Notifications: NewNotificationRepository(db, queryTimeout),
		Users:         NewUserRepository(db, queryTimeout),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// validID reports whether id can be a primary key of a uuid table.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
