package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
)

// ResolveGradation returns the discount percent for an order subtotal:
// the active rule with the largest amount not exceeding the subtotal.
// Rules sharing an amount resolve to the first one in input order.
// Returns zero percent and nil when no rule qualifies.
func ResolveGradation(subtotal decimal.Decimal, rules []models.GradationRule) (decimal.Decimal, *models.GradationRule) {
	var applied *models.GradationRule
	for i := range rules {
		rule := rules[i]
		if !rule.Active {
			continue
		}
		if rule.Amount.GreaterThan(subtotal) {
			continue
		}
		if applied == nil || rule.Amount.GreaterThan(applied.Amount) {
			matched := rule
			applied = &matched
		}
	}
	if applied == nil {
		return decimal.Zero, nil
	}
	return applied.DiscountPercent, applied
}

// NextGradation returns the active rule with the smallest amount
// strictly greater than the subtotal, or nil when the top tier is
// already reached. Used for upsell messaging only.
func NextGradation(subtotal decimal.Decimal, rules []models.GradationRule) *models.GradationRule {
	var next *models.GradationRule
	for i := range rules {
		rule := rules[i]
		if !rule.Active {
			continue
		}
		if !rule.Amount.GreaterThan(subtotal) {
			continue
		}
		if next == nil || rule.Amount.LessThan(next.Amount) {
			matched := rule
			next = &matched
		}
	}
	return next
}
