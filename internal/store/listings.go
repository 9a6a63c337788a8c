package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/safar/bookswap/internal/database"
	"github.com/safar/bookswap/internal/models"
	"github.com/safar/bookswap/internal/search"
)

const (
	tableListings = "listings"
	colID         = "id"
	colStatus     = "status"
	colTitle      = "title"
	colCity       = "city"
	colType       = "type"
	colCondition  = "condition"
	colPrice      = "price"
	colCreatedAt  = "created_at"
)

var listingColumnNames = []string{
	"id", "owner_id", "title", "author", "isbn", "description", "condition", "type", "price",
	"city", "latitude", "longitude", "image_urls", "status", "created_at", "updated_at",
}

var (
	listingColumns       = strings.Join(listingColumnNames, ", ")
	listingSelectColumns = toAny(listingColumnNames)
)

func toAny(names []string) []any {
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out
}

type ListingRepository struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

func NewListingRepository(db *sqlx.DB, timeout time.Duration) *ListingRepository {
	return &ListingRepository{DB: db, Timeout: timeout}
}

// Create inserts l as an available listing, assigning its id and timestamps.
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	l.ID = uuid.NewString()
	l.Status = models.ListingAvailable
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}

	query := `
		INSERT INTO listings (id, owner_id, title, author, isbn, description, condition, type, price,
		                      city, latitude, longitude, image_urls, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.DB.QueryRowxContext(ctx, query,
		l.ID, l.OwnerID, l.Title, l.Author, l.ISBN, l.Description, string(l.Condition), string(l.Type), l.Price,
		l.City, l.Latitude, l.Longitude, l.ImageURLs, string(l.Status),
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}

	return nil
}

func (r *ListingRepository) Get(ctx context.Context, id string) (*models.Listing, error) {
	if !validID(id) {
		return nil, database.ErrListingNotFound
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	listing := &models.Listing{}
	err := r.DB.GetContext(ctx, listing, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return normalizeListing(listing), nil
}

// Search fetches one page of listings matching spec, newest first.
func (r *ListingRepository) Search(ctx context.Context, spec search.QuerySpec) ([]models.Listing, error) {
	query, args, err := BuildSearchSQL(spec)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	listings := []models.Listing{}
	if err := r.DB.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	for i := range listings {
		normalizeListing(&listings[i])
	}

	return listings, nil
}

// BuildSearchSQL renders spec as a prepared postgres statement.
func BuildSearchSQL(spec search.QuerySpec) (string, []any, error) {
	where := []goqu.Expression{goqu.C(colStatus).Eq(string(spec.Status))}

	if spec.TitleLike != "" {
		where = append(where, goqu.C(colTitle).ILike(spec.TitleLike))
	}
	if spec.City != "" {
		where = append(where, goqu.C(colCity).Eq(spec.City))
	}
	if spec.Type != "" {
		where = append(where, goqu.C(colType).Eq(string(spec.Type)))
	}
	if spec.Condition != "" {
		where = append(where, goqu.C(colCondition).Eq(string(spec.Condition)))
	}
	if spec.MinPrice != nil {
		where = append(where, goqu.C(colPrice).Gte(spec.MinPrice.String()))
	}
	if spec.MaxPrice != nil {
		where = append(where, goqu.C(colPrice).Lte(spec.MaxPrice.String()))
	}

	ds := goqu.Dialect("postgres").
		From(tableListings).
		Select(listingSelectColumns...).
		Where(goqu.And(where...)).
		Order(goqu.C(colCreatedAt).Desc(), goqu.C(colID).Desc()).
		Limit(uint(spec.Limit)).
		Offset(uint(spec.Offset)).
		Prepared(true)

	return ds.ToSQL()
}

func lockListing(ctx context.Context, tx *sqlx.Tx, id string) (*models.Listing, error) {
	listing := &models.Listing{}
	err := tx.GetContext(ctx, listing, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrListingNotFound
		}
		return nil, fmt.Errorf("lock listing: %w", err)
	}
	return normalizeListing(listing), nil
}

func markListingSold(ctx context.Context, tx *sqlx.Tx, id string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE listings
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2
		   AND status = $3`,
		string(models.ListingSold), id, string(models.ListingAvailable))
	if err != nil {
		return fmt.Errorf("mark listing sold: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrStatusConflict
	}

	return nil
}

func normalizeListing(l *models.Listing) *models.Listing {
	if l.ImageURLs == nil {
		l.ImageURLs = []string{}
	}
	return l
}
