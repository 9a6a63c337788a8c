package search

import (
	"sort"

	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/models"
)

// Ranked is a listing with its distance from the reference point, when known.
type Ranked struct {
	models.Listing
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Rank post-processes one fetched page. Without a reference point the page is returned
// in persistence order. With one, listings get a distance (nil when they have no
// coordinates), are filtered by radiusKm if given, and are stably sorted by ascending
// distance with unknown distances last.
//
// Ranking never changes which page was fetched, so a radius filter can leave fewer
// than Size results on a page.
func Rank(listings []models.Listing, ref *geo.Point, radiusKm *float64) []Ranked {
	out := make([]Ranked, 0, len(listings))

	if ref == nil {
		for _, l := range listings {
			out = append(out, Ranked{Listing: l})
		}
		return out
	}

	for _, l := range listings {
		r := Ranked{Listing: l, DistanceKm: DistanceFrom(*ref, &l)}
		if radiusKm != nil && (r.DistanceKm == nil || *r.DistanceKm > *radiusKm) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DistanceKm, out[j].DistanceKm
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})

	return out
}

// DistanceFrom returns the distance from ref to l, or nil if l has no coordinates.
func DistanceFrom(ref geo.Point, l *models.Listing) *float64 {
	if !l.HasLocation() {
		return nil
	}
	d := geo.Distance(ref, geo.Point{Lat: *l.Latitude, Lon: *l.Longitude})
	return &d
}
