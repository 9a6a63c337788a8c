// Package catalog creates listings and answers search and detail queries with
// optional distance ranking.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/models"
	"github.com/safar/bookswap/internal/search"
)

var maxPrice = decimal.RequireFromString("99999999.99")

type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	Get(ctx context.Context, id string) (*models.Listing, error)
	Search(ctx context.Context, spec search.QuerySpec) ([]models.Listing, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type CityResolver interface {
	ResolveCity(ctx context.Context, name string) *geo.Point
}

// Image is one uploaded file attached to a new listing.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewListing is the raw form input for a listing. Everything is text as submitted.
type NewListing struct {
	Title       string
	Author      string
	ISBN        string
	Description string
	Price       string
	Condition   string
	Type        string
	City        string
	Latitude    string
	Longitude   string
	Images      []Image
}

// Page is one page of search results.
type Page struct {
	Page    int             `json:"page"`
	Size    int             `json:"size"`
	Results []search.Ranked `json:"results"`
}

type Service struct {
	listings ListingStore
	objects  ObjectStore
	resolver CityResolver
	logger   *slog.Logger
}

func NewService(listings ListingStore, objects ObjectStore, resolver CityResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{listings: listings, objects: objects, resolver: resolver, logger: logger}
}

// Create validates in, uploads its images and stores an available listing owned by ownerID.
// Unknown condition and type values fall back to good and sell. Images that fail to
// upload are skipped. Coordinates come from the form when both are valid, otherwise
// from the city; an unresolvable city leaves them empty.
func (s *Service) Create(ctx context.Context, ownerID string, in NewListing) (*models.Listing, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	city := strings.TrimSpace(in.City)
	if title == "" || author == "" {
		return nil, apperr.Validation("title and author are required")
	}

	listing := &models.Listing{
		OwnerID:     ownerID,
		Title:       title,
		Author:      author,
		ISBN:        optional(in.ISBN),
		Description: optional(in.Description),
		Condition:   models.ParseCondition(in.Condition),
		Type:        models.ParseOfferType(in.Type),
		City:        city,
	}

	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if listing.Type == models.OfferDonate {
		price = decimal.Zero
	}
	listing.Price = price

	if p := search.ParsePoint(in.Latitude, in.Longitude); p != nil {
		listing.Latitude, listing.Longitude = &p.Lat, &p.Lon
	} else if p := s.resolver.ResolveCity(ctx, city); p != nil {
		listing.Latitude, listing.Longitude = &p.Lat, &p.Lon
	}

	listing.ImageURLs = s.uploadImages(ctx, in.Images)

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.logger.Info("listing created", "listing_id", listing.ID, "owner_id", ownerID, "images", len(listing.ImageURLs))
	return listing, nil
}

func (s *Service) uploadImages(ctx context.Context, images []Image) []string {
	urls := []string{}
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}

		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}

		url, err := s.objects.Put(ctx, ObjectKey(img.Filename), img.Data, contentType)
		if err != nil {
			s.logger.Warn("image upload failed", "filename", img.Filename, "error", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// Search returns one page of available listings matching c, ranked by distance from
// c.Near when it is set. A radius search without coordinates but with a city is
// measured from the city's resolved location.
func (s *Service) Search(ctx context.Context, c search.Criteria) (*Page, error) {
	c = c.Normalized()

	if c.Near == nil && c.RadiusKm != nil && c.City != "" {
		c.Near = s.resolver.ResolveCity(ctx, c.City)
	}

	listings, err := s.listings.Search(ctx, search.BuildQuery(c))
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	return &Page{
		Page:    c.Page,
		Size:    c.Size,
		Results: search.Rank(listings, c.Near, c.RadiusKm),
	}, nil
}

// Get returns the listing with id and its distance from ref when both are known.
func (s *Service) Get(ctx context.Context, id string, ref *geo.Point) (*search.Ranked, error) {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	ranked := &search.Ranked{Listing: *listing}
	if ref != nil {
		ranked.DistanceKm = search.DistanceFrom(*ref, listing)
	}
	return ranked, nil
}

// ObjectKey names the stored object for an uploaded file, keeping its extension.
func ObjectKey(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "jpg"
	}
	return "books/" + uuid.NewString() + "." + ext
}

func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.Validation("price must be a number")
	}
	if price.IsNegative() {
		return decimal.Zero, apperr.Validation("price must not be negative")
	}

	price = price.Round(2)
	if price.GreaterThan(maxPrice) {
		return decimal.Zero, apperr.Validation("price is too large")
	}
	return price, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
