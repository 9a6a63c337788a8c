// Package httpapi exposes the marketplace over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/bookswap/internal/catalog"
	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/identity"
	"github.com/safar/bookswap/internal/models"
	"github.com/safar/bookswap/internal/search"
	"github.com/safar/bookswap/internal/storage"
	"github.com/safar/bookswap/internal/store"
)

type Catalog interface {
	Create(ctx context.Context, ownerID string, in catalog.NewListing) (*models.Listing, error)
	Search(ctx context.Context, c search.Criteria) (*catalog.Page, error)
	Get(ctx context.Context, id string, ref *geo.Point) (*search.Ranked, error)
}

type Purchases interface {
	Request(ctx context.Context, listingID, buyerID string) (*models.PurchaseRequest, error)
	Confirm(ctx context.Context, requestID, actor string) (*models.PurchaseRequest, error)
	Cancel(ctx context.Context, requestID, actor string) (*models.PurchaseRequest, error)
	ListForUser(ctx context.Context, userID string) ([]models.PurchaseRequest, error)
}

type Notifications interface {
	ListForUser(ctx context.Context, userID, cursor string, limit int) (*store.CursorPage, error)
}

type Profiles interface {
	Profile(ctx context.Context, userID string) (*models.User, error)
	Update(ctx context.Context, userID string, in identity.ProfileInput) (*models.User, error)
}

type Images interface {
	Open(ctx context.Context, id string) (*storage.Object, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	Catalog       Catalog
	Purchases     Purchases
	Notifications Notifications
	Profiles      Profiles
	Images        Images
	Verifier      identity.Verifier
	Logger        *slog.Logger
	MaxFileSize   int64
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	books := &BookHandler{Catalog: deps.Catalog, Purchases: deps.Purchases, MaxFileSize: deps.MaxFileSize, Logger: logger}
	purchases := &PurchaseHandler{Purchases: deps.Purchases, Logger: logger}
	inbox := &NotificationHandler{Notifications: deps.Notifications, Logger: logger}
	profiles := &ProfileHandler{Profiles: deps.Profiles, Logger: logger}
	images := &ImageHandler{Images: deps.Images, Logger: logger}

	r.GET("/health", func(c *gin.Context) {
		respondJSON(c, http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/books", books.Search)
	r.GET("/books/:id", books.Get)
	r.GET("/images/:id", images.Get)

	auth := r.Group("/")
	auth.Use(RequireAuth(deps.Verifier))
	{
		auth.POST("/books/protected", books.Create)
		auth.POST("/books/:id/buy", books.Buy)

		auth.GET("/purchases", purchases.List)
		auth.POST("/purchases/:id/confirm", purchases.Confirm)
		auth.POST("/purchases/:id/cancel", purchases.Cancel)

		auth.GET("/notifications", inbox.List)

		auth.GET("/me", profiles.Get)
		auth.PUT("/me", profiles.Update)
	}

	return r
}
