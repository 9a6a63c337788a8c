package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/safar/bookswap/internal/geo"
)

// ErrNoResult is returned when the geocoder knows no place by the given name.
var ErrNoResult = errors.New("geocode: no result")

// Lookup turns a place name into coordinates.
type Lookup interface {
	Lookup(ctx context.Context, name string) (geo.Point, error)
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewNominatim(baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    &http.Client{},
	}
}

// Nominatim returns coordinates as strings.
type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Lookup(ctx context.Context, name string) (geo.Point, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", name)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("geocode %q: unexpected status %d", name, resp.StatusCode)
	}

	var places []place
	if err := jsoniter.ConfigFastest.NewDecoder(resp.Body).Decode(&places); err != nil {
		return geo.Point{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return geo.Point{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}

	return geo.Point{Lat: lat, Lon: lon}, nil
}
