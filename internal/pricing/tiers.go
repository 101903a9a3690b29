package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
)

// ResolveTier returns the range whose quantity interval contains qty.
// Well-formed ladders have at most one such range; if stored ranges
// overlap, the last match in stored order wins. Quantities below 1 are
// clamped to 1 before matching. Returns nil when no range matches.
func ResolveTier(qty int, ranges []models.PriceRange) *models.PriceRange {
	if qty < 1 {
		qty = 1
	}
	var matched *models.PriceRange
	for i := range ranges {
		r := ranges[i]
		if qty >= r.MinQty && (r.MaxQty == nil || qty <= *r.MaxQty) {
			matched = &r
		}
	}
	return matched
}

// ResolveUnitPrice maps a quantity to an effective unit price. A matched
// range wins; a non-empty ladder with no match falls back to the first
// range's price; an empty ladder falls back to listPrice. Malformed
// (negative) prices also fall back to listPrice so the result is always
// non-negative.
func ResolveUnitPrice(qty int, ranges []models.PriceRange, listPrice decimal.Decimal) decimal.Decimal {
	price := listPrice
	if tier := ResolveTier(qty, ranges); tier != nil {
		price = tier.UnitPrice
	} else if len(ranges) > 0 {
		price = ranges[0].UnitPrice
	}
	if price.IsNegative() {
		price = listPrice
	}
	if price.IsNegative() {
		price = decimal.Zero
	}
	return price
}
