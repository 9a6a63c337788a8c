package purchase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/safar/bookswap/internal/models"
	"github.com/safar/bookswap/internal/store"
)

const (
	TitleRequested = "Purchase Request"
	TitleConfirmed = "Purchase Confirmed"
	TitleCancelled = "Purchase Cancelled"

	bodyConfirmed = "Seller confirmed your purchase request."
	bodyCancelled = "The purchase request was cancelled."
)

// Repository persists purchase requests. Create and Transition run their callbacks
// against rows locked for the duration of one transaction.
type Repository interface {
	Create(ctx context.Context, listingID, buyerID string, guard store.RequestGuard) (*models.PurchaseRequest, *models.Listing, error)
	Transition(ctx context.Context, id string, decide store.TransitionFunc) (*models.PurchaseRequest, *models.Listing, error)
	ListForUser(ctx context.Context, userID string) ([]models.PurchaseRequest, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, body string)
}

type Profiles interface {
	Profile(ctx context.Context, userID string) (*models.User, error)
}

type Service struct {
	repo     Repository
	notifier Notifier
	profiles Profiles
	logger   *slog.Logger
}

func NewService(repo Repository, notifier Notifier, profiles Profiles, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, profiles: profiles, logger: logger}
}

// Request opens a PENDING request from buyerID on listingID and tells the seller.
func (s *Service) Request(ctx context.Context, listingID, buyerID string) (*models.PurchaseRequest, error) {
	req, listing, err := s.repo.Create(ctx, listingID, buyerID, func(l *models.Listing) error {
		return CanRequest(l, buyerID)
	})
	if err != nil {
		return nil, fmt.Errorf("request purchase: %w", err)
	}

	s.logger.Info("purchase requested", "request_id", req.ID, "listing_id", listing.ID, "buyer_id", buyerID)

	body := fmt.Sprintf(`%s requested to buy "%s"`, s.displayName(ctx, buyerID), listing.Title)
	s.notifier.Notify(ctx, req.SellerID, TitleRequested, body)

	return req, nil
}

// Confirm lets the seller accept a PENDING request; the listing becomes sold.
func (s *Service) Confirm(ctx context.Context, requestID, actor string) (*models.PurchaseRequest, error) {
	req, err := s.transition(ctx, requestID, actor, Confirm)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, req.BuyerID, TitleConfirmed, bodyConfirmed)
	return req, nil
}

// Cancel lets either party withdraw a PENDING request.
func (s *Service) Cancel(ctx context.Context, requestID, actor string) (*models.PurchaseRequest, error) {
	req, err := s.transition(ctx, requestID, actor, Cancel)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, counterparty(req, actor), TitleCancelled, bodyCancelled)
	return req, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.PurchaseRequest, error) {
	requests, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return requests, nil
}

func (s *Service) transition(ctx context.Context, requestID, actor string, event Event) (*models.PurchaseRequest, error) {
	req, _, err := s.repo.Transition(ctx, requestID, func(current *models.PurchaseRequest, listing *models.Listing) (models.PurchaseStatus, error) {
		return Decide(current, listing, actor, event)
	})
	if err != nil {
		return nil, fmt.Errorf("%s purchase: %w", event, err)
	}

	s.logger.Info("purchase transitioned", "request_id", req.ID, "status", req.Status, "actor", actor)
	return req, nil
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	if s.profiles == nil {
		return "Someone"
	}
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil || profile.Username == "" {
		return "Someone"
	}
	return profile.Username
}
