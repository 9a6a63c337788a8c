package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/safar/bookswap/internal/database"
	"github.com/safar/bookswap/internal/models"
)

const purchaseColumns = `id, listing_id, buyer_id, seller_id, status, created_at, updated_at`

// RequestGuard inspects the locked listing and rejects the request by returning an error.
type RequestGuard func(listing *models.Listing) error

// TransitionFunc decides the next status of a locked request given its locked listing.
type TransitionFunc func(req *models.PurchaseRequest, listing *models.Listing) (models.PurchaseStatus, error)

type PurchaseRepository struct {
	DB      *sqlx.DB
	Timeout time.Duration
	TxOpts  database.TxOptions
}

func NewPurchaseRepository(db *sqlx.DB, timeout time.Duration) *PurchaseRepository {
	return &PurchaseRepository{
		DB:      db,
		Timeout: timeout,
		TxOpts:  database.DefaultTxOptions(),
	}
}

// Create locks the listing, runs guard against it and inserts a PENDING request
// from buyerID to the listing owner, all in one transaction.
func (r *PurchaseRepository) Create(ctx context.Context, listingID, buyerID string, guard RequestGuard) (*models.PurchaseRequest, *models.Listing, error) {
	if !validID(listingID) {
		return nil, nil, database.ErrListingNotFound
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	var req *models.PurchaseRequest
	var listing *models.Listing

	err := database.WithRetry(ctx, r.DB, r.TxOpts, func(tx *sqlx.Tx) error {
		l, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}

		if err := guard(l); err != nil {
			return err
		}

		created := &models.PurchaseRequest{}
		err = tx.GetContext(ctx, created,
			`INSERT INTO purchase_requests (id, listing_id, buyer_id, seller_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING `+purchaseColumns,
			uuid.NewString(), l.ID, buyerID, l.OwnerID, string(models.PurchasePending))
		if err != nil {
			return fmt.Errorf("insert purchase request: %w", err)
		}

		req, listing = created, l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return req, listing, nil
}

// Transition locks the request and its listing, asks decide for the next status and applies it.
// The update only succeeds while the request is still PENDING. Confirming marks the listing sold.
func (r *PurchaseRepository) Transition(ctx context.Context, id string, decide TransitionFunc) (*models.PurchaseRequest, *models.Listing, error) {
	if !validID(id) {
		return nil, nil, database.ErrPurchaseNotFound
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	var req *models.PurchaseRequest
	var listing *models.Listing

	err := database.WithRetry(ctx, r.DB, r.TxOpts, func(tx *sqlx.Tx) error {
		current := &models.PurchaseRequest{}
		err := tx.GetContext(ctx, current,
			`SELECT `+purchaseColumns+` FROM purchase_requests WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrPurchaseNotFound
			}
			return fmt.Errorf("lock purchase request: %w", err)
		}

		l, err := lockListing(ctx, tx, current.ListingID)
		if err != nil {
			return err
		}

		next, err := decide(current, l)
		if err != nil {
			return err
		}

		updated := &models.PurchaseRequest{}
		err = tx.GetContext(ctx, updated,
			`UPDATE purchase_requests
			 SET status = $1, updated_at = NOW()
			 WHERE id = $2
			   AND status = $3
			 RETURNING `+purchaseColumns,
			string(next), id, string(models.PurchasePending))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrStatusConflict
			}
			return fmt.Errorf("update purchase request: %w", err)
		}

		if next == models.PurchaseConfirmed {
			if err := markListingSold(ctx, tx, l.ID); err != nil {
				return err
			}
			l.Status = models.ListingSold
		}

		req, listing = updated, l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return req, listing, nil
}

// ListForUser returns every request where userID is the buyer or the seller, newest first.
func (r *PurchaseRepository) ListForUser(ctx context.Context, userID string) ([]models.PurchaseRequest, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	requests := []models.PurchaseRequest{}
	err := r.DB.SelectContext(ctx, &requests,
		`SELECT `+purchaseColumns+`
		 FROM purchase_requests
		 WHERE buyer_id = $1 OR seller_id = $1
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}

	return requests, nil
}
