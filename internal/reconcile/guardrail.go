package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/enums"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Bounds holds the configured price corridor for one product. Max and
// MaxChangePercent are optional: a zero Max falls back to Recommended
// scaled by the tolerance, a zero MaxChangePercent falls back to the
// service default.
type Bounds struct {
	Min              decimal.Decimal
	Recommended      decimal.Decimal
	Max              decimal.Decimal
	MaxChangePercent decimal.Decimal
}

// Assessment is the outcome of classifying one live price against its
// bounds.
type Assessment struct {
	Status              enums.PriceStatus
	SuggestedPrice      decimal.Decimal
	PriceChangeTooLarge bool
}

// EffectiveMax resolves the upper bound: the explicit max when set,
// otherwise the recommended price scaled by tolerancePercent.
func EffectiveMax(bounds Bounds, tolerancePercent decimal.Decimal) decimal.Decimal {
	if bounds.Max.IsPositive() {
		return bounds.Max
	}
	return bounds.Recommended.
		Mul(one.Add(tolerancePercent.Div(hundred))).
		Round(2)
}

// Assess classifies the current price and computes the guarded suggestion.
// The correction always aims at the recommended price; when the move from
// the current price would exceed maxChangePercent, the suggestion is
// clamped to the largest allowed step in the target's direction, capped by
// the bound on that side. Large single-step moves trip marketplace
// quarantine rules, so oversized corrections walk toward the target across
// runs.
func Assess(current decimal.Decimal, bounds Bounds, tolerancePercent, defaultMaxChangePercent decimal.Decimal) Assessment {
	// Profiles without any configured bound have nothing to reconcile
	// against.
	if !bounds.Min.IsPositive() && !bounds.Recommended.IsPositive() {
		return Assessment{Status: enums.PriceStatusOK, SuggestedPrice: current.Round(2)}
	}
	// A missing recommended price corrects toward the minimum instead.
	recommended := bounds.Recommended
	if !recommended.IsPositive() {
		recommended = bounds.Min
	}

	maxPrice := EffectiveMax(Bounds{Min: bounds.Min, Recommended: recommended, Max: bounds.Max}, tolerancePercent)
	maxChange := bounds.MaxChangePercent
	if !maxChange.IsPositive() {
		maxChange = defaultMaxChangePercent
	}

	status := enums.PriceStatusOK
	target := current
	switch {
	case current.LessThan(bounds.Min):
		status = enums.PriceStatusBelowMin
		target = recommended
	case current.LessThan(recommended):
		status = enums.PriceStatusBelowRecommended
		target = recommended
	case maxPrice.IsPositive() && current.GreaterThan(maxPrice):
		status = enums.PriceStatusAboveMax
		target = recommended
	}

	suggested := target
	tooLarge := false
	if current.IsPositive() && !target.Equal(current) {
		changePercent := target.Sub(current).Abs().
			Div(current).
			Mul(hundred)
		if changePercent.GreaterThan(maxChange) {
			tooLarge = true
			step := current.Mul(maxChange.Div(hundred))
			// Only the bound that shrinks the move may apply here; the
			// opposite bound would widen the step past the cap again.
			if target.GreaterThan(current) {
				suggested = current.Add(step)
				if maxPrice.IsPositive() && suggested.GreaterThan(maxPrice) {
					suggested = maxPrice
				}
			} else {
				suggested = current.Sub(step)
				if bounds.Min.IsPositive() && suggested.LessThan(bounds.Min) {
					suggested = bounds.Min
				}
			}
		}
	}

	return Assessment{
		Status:              status,
		SuggestedPrice:      suggested.Round(2),
		PriceChangeTooLarge: tooLarge,
	}
}
