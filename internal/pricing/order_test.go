package pricing

import (
	"testing"

	"github.com/google/uuid"

	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
)

func TestComputeOrderPricing_CompoundsTiersAndGradation(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	lines := []CartLine{
		{
			ProductID:     productID,
			UnitListPrice: dec("100"),
			Quantity:      100,
			PriceRanges: []models.PriceRange{
				{MinQty: 1, MaxQty: intPtr(9), UnitPrice: dec("100")},
				{MinQty: 10, MaxQty: nil, UnitPrice: dec("90")},
			},
		},
	}

	snapshot := ComputeOrderPricing(lines, rules(), OrderMinimums{
		Retail:    dec("0"),
		Wholesale: dec("5000"),
	})

	// List subtotal 100×100 = 10000 crosses the 10% threshold; tiered
	// subtotal 90×100 = 9000 is further reduced by the gradation.
	if !snapshot.SubtotalAtListPrice.Equal(dec("10000")) {
		t.Fatalf("subtotal at list = %s, want 10000", snapshot.SubtotalAtListPrice)
	}
	if !snapshot.GradationPercent.Equal(dec("10")) {
		t.Fatalf("gradation percent = %s, want 10", snapshot.GradationPercent)
	}
	if !snapshot.SubtotalEffective.Equal(dec("8100")) {
		t.Fatalf("effective subtotal = %s, want 8100", snapshot.SubtotalEffective)
	}
	if !snapshot.Savings.Equal(dec("1900")) {
		t.Fatalf("savings = %s, want 1900", snapshot.Savings)
	}
	if got := snapshot.PerLineEffectivePrice[productID]; !got.Equal(dec("90")) {
		t.Fatalf("per-line price = %s, want 90", got)
	}
	if snapshot.OrderType != enums.OrderTypeWholesale {
		t.Fatalf("order type = %s, want wholesale", snapshot.OrderType)
	}
}

func TestComputeOrderPricing_GradationGatesOnListSubtotal(t *testing.T) {
	t.Parallel()

	// Tiered price pulls the paying subtotal below the 5000 threshold,
	// but the gradation still applies because list subtotal crosses it.
	lines := []CartLine{
		{
			ProductID:     uuid.New(),
			UnitListPrice: dec("100"),
			Quantity:      50,
			PriceRanges: []models.PriceRange{
				{MinQty: 10, MaxQty: nil, UnitPrice: dec("80")},
			},
		},
	}

	snapshot := ComputeOrderPricing(lines, rules(), OrderMinimums{Wholesale: dec("5000")})

	if !snapshot.SubtotalAtListPrice.Equal(dec("5000")) {
		t.Fatalf("subtotal at list = %s, want 5000", snapshot.SubtotalAtListPrice)
	}
	if !snapshot.GradationPercent.Equal(dec("5")) {
		t.Fatalf("gradation percent = %s, want 5", snapshot.GradationPercent)
	}
	if !snapshot.SubtotalEffective.Equal(dec("3800")) {
		t.Fatalf("effective subtotal = %s, want 3800", snapshot.SubtotalEffective)
	}
}

func TestComputeOrderPricing_RetailClassificationAndMinimum(t *testing.T) {
	t.Parallel()

	lines := []CartLine{
		{ProductID: uuid.New(), UnitListPrice: dec("150"), Quantity: 4},
	}

	snapshot := ComputeOrderPricing(lines, rules(), OrderMinimums{
		Retail:    dec("1000"),
		Wholesale: dec("5000"),
	})

	if snapshot.OrderType != enums.OrderTypeRetail {
		t.Fatalf("order type = %s, want retail", snapshot.OrderType)
	}
	if !snapshot.MinimumRequired.Equal(dec("1000")) {
		t.Fatalf("minimum required = %s, want 1000", snapshot.MinimumRequired)
	}
	if snapshot.MinimumMet {
		t.Fatal("subtotal 600 should not meet the retail minimum of 1000")
	}
	if !snapshot.ProgressToMinimum.Equal(dec("400")) {
		t.Fatalf("progress to minimum = %s, want 400", snapshot.ProgressToMinimum)
	}
}

func TestComputeOrderPricing_NextGradationRemaining(t *testing.T) {
	t.Parallel()

	lines := []CartLine{
		{ProductID: uuid.New(), UnitListPrice: dec("700"), Quantity: 10},
	}

	snapshot := ComputeOrderPricing(lines, rules(), OrderMinimums{Wholesale: dec("5000")})

	if snapshot.NextGradation == nil {
		t.Fatal("expected a next gradation target")
	}
	if !snapshot.NextGradation.Amount.Equal(dec("10000")) {
		t.Fatalf("next amount = %s, want 10000", snapshot.NextGradation.Amount)
	}
	if !snapshot.NextGradation.Remaining.Equal(dec("3000")) {
		t.Fatalf("remaining = %s, want 3000", snapshot.NextGradation.Remaining)
	}
}

func TestComputeOrderPricing_DefensiveInputs(t *testing.T) {
	t.Parallel()

	lines := []CartLine{
		{ProductID: uuid.New(), UnitListPrice: dec("-10"), Quantity: -5},
		{ProductID: uuid.New(), UnitListPrice: dec("50"), Quantity: 0},
	}

	snapshot := ComputeOrderPricing(lines, nil, OrderMinimums{})

	if snapshot.SubtotalAtListPrice.IsNegative() || snapshot.SubtotalEffective.IsNegative() {
		t.Fatalf("subtotals must be non-negative: list=%s effective=%s",
			snapshot.SubtotalAtListPrice, snapshot.SubtotalEffective)
	}
	// Negative list price floors to zero; zero quantity clamps to one.
	if !snapshot.SubtotalAtListPrice.Equal(dec("50")) {
		t.Fatalf("subtotal at list = %s, want 50", snapshot.SubtotalAtListPrice)
	}
	if snapshot.Savings.GreaterThan(snapshot.SubtotalAtListPrice) {
		t.Fatalf("savings %s exceeds list subtotal %s", snapshot.Savings, snapshot.SubtotalAtListPrice)
	}
}

func TestComputeOrderPricing_EmptyCart(t *testing.T) {
	t.Parallel()

	snapshot := ComputeOrderPricing(nil, rules(), OrderMinimums{Retail: dec("1000")})

	if !snapshot.SubtotalAtListPrice.IsZero() || !snapshot.SubtotalEffective.IsZero() {
		t.Fatalf("empty cart should price to zero, got list=%s effective=%s",
			snapshot.SubtotalAtListPrice, snapshot.SubtotalEffective)
	}
	if snapshot.MinimumMet {
		t.Fatal("empty cart cannot meet a positive minimum")
	}
}
