package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
)

func rules() []models.GradationRule {
	return []models.GradationRule{
		{Amount: dec("5000"), DiscountPercent: dec("5"), Active: true},
		{Amount: dec("10000"), DiscountPercent: dec("10"), Active: true},
	}
}

func TestResolveGradation_Thresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		subtotal string
		percent  string
	}{
		{"3000", "0"},
		{"5000", "5"},
		{"7000", "5"},
		{"10000", "10"},
		{"12000", "10"},
	}
	for _, tc := range cases {
		percent, _ := ResolveGradation(dec(tc.subtotal), rules())
		if !percent.Equal(dec(tc.percent)) {
			t.Errorf("S=%s: expected %s%%, got %s%%", tc.subtotal, tc.percent, percent)
		}
	}
}

func TestResolveGradation_TieBreaksFirstInOrder(t *testing.T) {
	t.Parallel()

	tied := []models.GradationRule{
		{Amount: dec("5000"), DiscountPercent: dec("5"), Active: true, Position: 0},
		{Amount: dec("5000"), DiscountPercent: dec("7"), Active: true, Position: 1},
	}
	percent, applied := ResolveGradation(dec("6000"), tied)
	if applied == nil || !percent.Equal(dec("5")) {
		t.Fatalf("tied amounts should resolve to first rule, got %s", percent)
	}
}

func TestResolveGradation_SkipsInactive(t *testing.T) {
	t.Parallel()

	mixed := []models.GradationRule{
		{Amount: dec("5000"), DiscountPercent: dec("5"), Active: false},
		{Amount: dec("3000"), DiscountPercent: dec("3"), Active: true},
	}
	percent, applied := ResolveGradation(dec("6000"), mixed)
	if applied == nil || !percent.Equal(dec("3")) {
		t.Fatalf("inactive rules must be skipped, got %s", percent)
	}
}

func TestResolveGradation_Monotonic(t *testing.T) {
	t.Parallel()

	prev := decimal.Zero
	for s := int64(0); s <= 15000; s += 500 {
		percent, _ := ResolveGradation(decimal.NewFromInt(s), rules())
		if percent.LessThan(prev) {
			t.Fatalf("discount decreased from %s to %s at S=%d", prev, percent, s)
		}
		prev = percent
	}
}

func TestNextGradation(t *testing.T) {
	t.Parallel()

	next := NextGradation(dec("3000"), rules())
	if next == nil || !next.Amount.Equal(dec("5000")) {
		t.Fatalf("expected next threshold 5000, got %+v", next)
	}

	next = NextGradation(dec("7000"), rules())
	if next == nil || !next.Amount.Equal(dec("10000")) {
		t.Fatalf("expected next threshold 10000, got %+v", next)
	}

	if next := NextGradation(dec("12000"), rules()); next != nil {
		t.Fatalf("top tier reached, expected no next gradation, got %+v", next)
	}
}
