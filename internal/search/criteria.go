// Package search turns listing search requests into store queries and ranks the
// fetched page by distance from an optional reference point.
package search

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/models"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100

	// MaxPage keeps (page-1)*size within int.
	MaxPage = math.MaxInt / MaxSize
)

// Criteria is a parsed search request. Zero values mean "no constraint".
type Criteria struct {
	Q         string
	City      string
	Type      models.OfferType
	Condition models.Condition
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal

	Near     *geo.Point
	RadiusKm *float64

	Page int
	Size int
}

// ParseCriteria reads a search request from query parameters. Parsing is lenient:
// malformed numbers and unknown enum values are dropped rather than rejected, so an
// unrecognised type or condition widens the search to every value instead of matching nothing.
func ParseCriteria(values url.Values) Criteria {
	c := Criteria{
		Q:    strings.TrimSpace(values.Get("q")),
		City: strings.TrimSpace(values.Get("city")),
	}

	if t, ok := models.LookupOfferType(values.Get("type")); ok {
		c.Type = t
	}
	if cond, ok := models.LookupCondition(values.Get("condition")); ok {
		c.Condition = cond
	}

	c.MinPrice = parseDecimal(values.Get("minPrice"))
	c.MaxPrice = parseDecimal(values.Get("maxPrice"))

	c.Near = ParsePoint(values.Get("lat"), values.Get("lng"))
	if r, ok := parseFloat(values.Get("radiusKm")); ok && r >= 0 {
		c.RadiusKm = &r
	}

	c.Page, _ = strconv.Atoi(values.Get("page"))
	c.Size, _ = strconv.Atoi(values.Get("size"))

	return c.Normalized()
}

// ParsePoint returns a point when both coordinates parse, nil otherwise.
func ParsePoint(lat, lng string) *geo.Point {
	la, ok := parseFloat(lat)
	if !ok {
		return nil
	}
	lo, ok := parseFloat(lng)
	if !ok {
		return nil
	}
	return &geo.Point{Lat: la, Lon: lo}
}

// Normalized applies pagination defaults and bounds.
func (c Criteria) Normalized() Criteria {
	if c.Page < 1 {
		c.Page = DefaultPage
	}
	if c.Page > MaxPage {
		c.Page = MaxPage
	}
	if c.Size < 1 {
		c.Size = DefaultSize
	}
	if c.Size > MaxSize {
		c.Size = MaxSize
	}
	return c
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
