package search

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/bookswap/internal/models"
)

// QuerySpec is the set of predicates and the pagination window for one page of listings.
// Results are ordered newest first.
type QuerySpec struct {
	Status    models.ListingStatus
	TitleLike string
	City      string
	Type      models.OfferType
	Condition models.Condition
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Limit     int
	Offset    int
}

// BuildQuery translates criteria into a QuerySpec. Only available listings are eligible.
func BuildQuery(c Criteria) QuerySpec {
	c = c.Normalized()

	spec := QuerySpec{
		Status:    models.ListingAvailable,
		City:      c.City,
		Type:      c.Type,
		Condition: c.Condition,
		MinPrice:  c.MinPrice,
		MaxPrice:  c.MaxPrice,
		Limit:     c.Size,
		Offset:    (c.Page - 1) * c.Size,
	}
	if c.Q != "" {
		spec.TitleLike = "%" + escapeLike(c.Q) + "%"
	}

	return spec
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes q match literally inside a LIKE pattern.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
