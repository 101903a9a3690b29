package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// CartLine is the pricing view of one cart row: the product's list
// price, the quantity requested and the ladder of quantity brackets.
type CartLine struct {
	ProductID     uuid.UUID
	UnitListPrice decimal.Decimal
	Quantity      int
	PriceRanges   []models.PriceRange
}

// OrderMinimums carries the independently configured minimum order values.
type OrderMinimums struct {
	Retail    decimal.Decimal
	Wholesale decimal.Decimal
}

// GradationProgress describes an upsell target: the next threshold, its
// percent and how much subtotal is still missing to reach it.
type GradationProgress struct {
	Amount          decimal.Decimal `json:"amount"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Remaining       decimal.Decimal `json:"remaining"`
}

// OrderPricingSnapshot is the derived pricing state of a cart. It is
// recomputed from current profiles on every read and never persisted.
type OrderPricingSnapshot struct {
	PerLineEffectivePrice map[uuid.UUID]decimal.Decimal `json:"perLineEffectivePrice"`
	SubtotalAtListPrice   decimal.Decimal               `json:"subtotalAtListPrice"`
	SubtotalEffective     decimal.Decimal               `json:"subtotalEffective"`
	Savings               decimal.Decimal               `json:"savings"`
	GradationPercent      decimal.Decimal               `json:"gradationPercent"`
	OrderType             enums.OrderType               `json:"orderType"`
	MinimumRequired       decimal.Decimal               `json:"minimumRequired"`
	MinimumMet            bool                          `json:"minimumMet"`
	ProgressToMinimum     decimal.Decimal               `json:"progressToMinimum"`
	NextGradation         *GradationProgress            `json:"nextGradation,omitempty"`
}

// ComputeOrderPricing composes the tier and gradation resolvers across
// the whole cart. The gradation discount gates on the subtotal computed
// at list price, so progress toward the next threshold is not eroded by
// already-tiered lines; the two discounts compound on the effective
// total.
func ComputeOrderPricing(lines []CartLine, rules []models.GradationRule, minimums OrderMinimums) OrderPricingSnapshot {
	perLine := make(map[uuid.UUID]decimal.Decimal, len(lines))
	subtotalAtList := decimal.Zero
	tieredSubtotal := decimal.Zero

	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		listPrice := line.UnitListPrice
		if listPrice.IsNegative() {
			listPrice = decimal.Zero
		}

		unitPrice := ResolveUnitPrice(qty, line.PriceRanges, listPrice)
		perLine[line.ProductID] = unitPrice

		qtyDec := decimal.NewFromInt(int64(qty))
		subtotalAtList = subtotalAtList.Add(listPrice.Mul(qtyDec))
		tieredSubtotal = tieredSubtotal.Add(unitPrice.Mul(qtyDec))
	}

	percent, applied := ResolveGradation(subtotalAtList, rules)
	multiplier := oneHundred.Sub(percent).Div(oneHundred)
	subtotalEffective := tieredSubtotal.Mul(multiplier)
	if subtotalEffective.IsNegative() {
		subtotalEffective = decimal.Zero
	}

	savings := subtotalAtList.Sub(subtotalEffective)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	if savings.GreaterThan(subtotalAtList) {
		savings = subtotalAtList
	}

	orderType := enums.OrderTypeRetail
	if applied != nil && applied.Amount.GreaterThanOrEqual(minimums.Wholesale) && minimums.Wholesale.IsPositive() {
		orderType = enums.OrderTypeWholesale
	}

	minimumRequired := minimums.Retail
	if orderType == enums.OrderTypeWholesale {
		minimumRequired = minimums.Wholesale
	}

	progress := minimumRequired.Sub(subtotalAtList)
	if progress.IsNegative() {
		progress = decimal.Zero
	}

	snapshot := OrderPricingSnapshot{
		PerLineEffectivePrice: perLine,
		SubtotalAtListPrice:   subtotalAtList,
		SubtotalEffective:     subtotalEffective,
		Savings:               savings,
		GradationPercent:      percent,
		OrderType:             orderType,
		MinimumRequired:       minimumRequired,
		MinimumMet:            subtotalAtList.GreaterThanOrEqual(minimumRequired),
		ProgressToMinimum:     progress,
	}

	if next := NextGradation(subtotalAtList, rules); next != nil {
		snapshot.NextGradation = &GradationProgress{
			Amount:          next.Amount,
			DiscountPercent: next.DiscountPercent,
			Remaining:       next.Amount.Sub(subtotalAtList),
		}
	}

	return snapshot
}
