package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

type OfferType string

const (
	OfferSell   OfferType = "sell"
	OfferDonate OfferType = "donate"
	OfferRent   OfferType = "rent"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseConfirmed PurchaseStatus = "CONFIRMED"
	PurchaseCancelled PurchaseStatus = "CANCELLED"
)

type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FullName  string    `db:"full_name" json:"full_name"`
	City      string    `db:"city" json:"city"`
	Latitude  *float64  `db:"latitude" json:"latitude"`
	Longitude *float64  `db:"longitude" json:"longitude"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Listing struct {
	ID          string          `db:"id" json:"id"`
	OwnerID     string          `db:"owner_id" json:"owner_id"`
	Title       string          `db:"title" json:"title"`
	Author      string          `db:"author" json:"author"`
	ISBN        *string         `db:"isbn" json:"isbn"`
	Description *string         `db:"description" json:"description"`
	Condition   Condition       `db:"condition" json:"condition"`
	Type        OfferType       `db:"type" json:"type"`
	Price       decimal.Decimal `db:"price" json:"price"`
	City        string          `db:"city" json:"city"`
	Latitude    *float64        `db:"latitude" json:"latitude"`
	Longitude   *float64        `db:"longitude" json:"longitude"`
	ImageURLs   pq.StringArray  `db:"image_urls" json:"image_urls"`
	Status      ListingStatus   `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// HasLocation reports whether both coordinates were resolved.
func (l *Listing) HasLocation() bool {
	return l.Latitude != nil && l.Longitude != nil
}

type PurchaseRequest struct {
	ID        string         `db:"id" json:"id"`
	ListingID string         `db:"listing_id" json:"listing_id"`
	BuyerID   string         `db:"buyer_id" json:"buyer_id"`
	SellerID  string         `db:"seller_id" json:"seller_id"`
	Status    PurchaseStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParseCondition normalises s; anything unrecognised becomes ConditionGood.
func ParseCondition(s string) Condition {
	c, ok := LookupCondition(s)
	if !ok {
		return ConditionGood
	}
	return c
}

// LookupCondition reports whether s names a known condition.
func LookupCondition(s string) (Condition, bool) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(s))); c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return c, true
	}
	return "", false
}

// ParseOfferType normalises s; anything unrecognised becomes OfferSell.
func ParseOfferType(s string) OfferType {
	t, ok := LookupOfferType(s)
	if !ok {
		return OfferSell
	}
	return t
}

// LookupOfferType reports whether s names a known offer type.
func LookupOfferType(s string) (OfferType, bool) {
	switch t := OfferType(strings.ToLower(strings.TrimSpace(s))); t {
	case OfferSell, OfferDonate, OfferRent:
		return t, true
	}
	return "", false
}
