package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/models"
)

type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, u *models.User) (*models.User, error)
}

type CityResolver interface {
	ResolveCity(ctx context.Context, name string) *geo.Point
}

// ProfileInput holds the editable fields of a profile.
type ProfileInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	City     string `json:"city"`
}

type Profiles struct {
	users    UserStore
	resolver CityResolver
}

func NewProfiles(users UserStore, resolver CityResolver) *Profiles {
	return &Profiles{users: users, resolver: resolver}
}

func (p *Profiles) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := p.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// Update saves userID's profile, creating it on first use. The city is geocoded;
// an unresolvable city leaves the coordinates empty.
func (p *Profiles) Update(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	u := &models.User{
		ID:       userID,
		Username: strings.TrimSpace(in.Username),
		FullName: strings.TrimSpace(in.FullName),
		City:     strings.TrimSpace(in.City),
	}
	if u.Username == "" {
		return nil, apperr.Validation("username is required")
	}

	if p.resolver != nil {
		if point := p.resolver.ResolveCity(ctx, u.City); point != nil {
			u.Latitude, u.Longitude = &point.Lat, &point.Lon
		}
	}

	saved, err := p.users.Upsert(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return saved, nil
}
