// Package purchase implements the purchase request lifecycle.
//
// A request starts PENDING and ends either CONFIRMED by the seller or CANCELLED by
// either party. The rules live in pure functions (CanRequest, Decide); Service applies
// them against locked rows and emits notifications after the state change commits.
package purchase

import (
	"fmt"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/models"
)

type Event string

const (
	Confirm Event = "confirm"
	Cancel  Event = "cancel"
)

// CanRequest reports whether buyerID may open a purchase request on listing.
func CanRequest(listing *models.Listing, buyerID string) error {
	if listing.Status != models.ListingAvailable {
		return fmt.Errorf("%w: listing is %s", apperr.ErrListingUnavailable, listing.Status)
	}
	if listing.OwnerID == buyerID {
		return apperr.ErrSelfPurchaseForbidden
	}
	return nil
}

// Decide returns the status req moves to when actor applies event.
// listing is the request's listing as currently stored.
func Decide(req *models.PurchaseRequest, listing *models.Listing, actor string, event Event) (models.PurchaseStatus, error) {
	switch event {
	case Confirm:
		if actor != req.SellerID {
			return "", fmt.Errorf("%w: only the seller can confirm", apperr.ErrForbidden)
		}
	case Cancel:
		if actor != req.SellerID && actor != req.BuyerID {
			return "", fmt.Errorf("%w: only the buyer or the seller can cancel", apperr.ErrForbidden)
		}
	default:
		return "", fmt.Errorf("%w: unknown event %q", apperr.ErrInvalidTransition, event)
	}

	if req.Status != models.PurchasePending {
		return "", fmt.Errorf("%w: cannot %s a %s request", apperr.ErrInvalidTransition, event, req.Status)
	}

	if event == Cancel {
		return models.PurchaseCancelled, nil
	}

	if listing != nil && listing.Status != models.ListingAvailable {
		return "", fmt.Errorf("%w: listing is %s", apperr.ErrListingUnavailable, listing.Status)
	}
	return models.PurchaseConfirmed, nil
}

// counterparty returns the participant of req who is not actor.
func counterparty(req *models.PurchaseRequest, actor string) string {
	if actor == req.BuyerID {
		return req.SellerID
	}
	return req.BuyerID
}
