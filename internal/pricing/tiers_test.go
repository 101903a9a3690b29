package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
)

func intPtr(v int) *int { return &v }

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ladder() []models.PriceRange {
	return []models.PriceRange{
		{MinQty: 1, MaxQty: intPtr(9), UnitPrice: dec("100")},
		{MinQty: 10, MaxQty: nil, UnitPrice: dec("90")},
	}
}

func TestResolveUnitPrice_BracketSelection(t *testing.T) {
	t.Parallel()

	if got := ResolveUnitPrice(5, ladder(), dec("120")); !got.Equal(dec("100")) {
		t.Fatalf("q=5: expected 100, got %s", got)
	}
	if got := ResolveUnitPrice(15, ladder(), dec("120")); !got.Equal(dec("90")) {
		t.Fatalf("q=15: expected 90, got %s", got)
	}
}

func TestResolveUnitPrice_ClampsQuantity(t *testing.T) {
	t.Parallel()

	if got := ResolveUnitPrice(0, ladder(), dec("120")); !got.Equal(dec("100")) {
		t.Fatalf("q=0 should clamp to 1, got %s", got)
	}
	if got := ResolveUnitPrice(-3, ladder(), dec("120")); !got.Equal(dec("100")) {
		t.Fatalf("q=-3 should clamp to 1, got %s", got)
	}
}

func TestResolveUnitPrice_Fallbacks(t *testing.T) {
	t.Parallel()

	if got := ResolveUnitPrice(5, nil, dec("120")); !got.Equal(dec("120")) {
		t.Fatalf("empty ladder should fall back to list price, got %s", got)
	}

	// No bracket contains q=5; the first bracket's price applies.
	gapped := []models.PriceRange{
		{MinQty: 10, MaxQty: intPtr(19), UnitPrice: dec("80")},
		{MinQty: 20, MaxQty: nil, UnitPrice: dec("70")},
	}
	if got := ResolveUnitPrice(5, gapped, dec("120")); !got.Equal(dec("80")) {
		t.Fatalf("unmatched quantity should use first bracket price, got %s", got)
	}
}

func TestResolveUnitPrice_MalformedPrice(t *testing.T) {
	t.Parallel()

	broken := []models.PriceRange{
		{MinQty: 1, MaxQty: nil, UnitPrice: dec("-5")},
	}
	if got := ResolveUnitPrice(3, broken, dec("120")); !got.Equal(dec("120")) {
		t.Fatalf("negative bracket price should fall back to list, got %s", got)
	}
	if got := ResolveUnitPrice(3, broken, dec("-1")); !got.Equal(decimal.Zero) {
		t.Fatalf("pricing must never go negative, got %s", got)
	}
}

func TestResolveTier_LastMatchWinsOnOverlap(t *testing.T) {
	t.Parallel()

	overlapping := []models.PriceRange{
		{MinQty: 1, MaxQty: intPtr(20), UnitPrice: dec("100")},
		{MinQty: 10, MaxQty: nil, UnitPrice: dec("90")},
	}
	tier := ResolveTier(15, overlapping)
	if tier == nil || !tier.UnitPrice.Equal(dec("90")) {
		t.Fatalf("overlap should resolve to the last matching bracket, got %+v", tier)
	}
}
