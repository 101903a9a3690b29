package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velesmarket/backend/pkg/db/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Setting{}, &models.GradationRule{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(conn)
}

func TestRepository_SetValueUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.GetValue(ctx, KeyMinRetailOrder); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := repo.SetValue(ctx, KeyMinRetailOrder, "1500"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetValue(ctx, KeyMinRetailOrder, "2000"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	value, ok, err := repo.GetValue(ctx, KeyMinRetailOrder)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != "2000" {
		t.Fatalf("expected upserted value 2000, got %q", value)
	}
}

func TestRepository_ReplaceGradationRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	initial := []models.GradationRule{
		{Amount: decimal.NewFromInt(5000), DiscountPercent: decimal.NewFromInt(5), Active: true},
		{Amount: decimal.NewFromInt(10000), DiscountPercent: decimal.NewFromInt(10), Active: true},
	}
	if err := repo.ReplaceGradationRules(ctx, initial); err != nil {
		t.Fatalf("replace: %v", err)
	}

	replacement := []models.GradationRule{
		{Amount: decimal.NewFromInt(3000), DiscountPercent: decimal.NewFromInt(3), Active: true},
	}
	if err := repo.ReplaceGradationRules(ctx, replacement); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	rules, err := repo.ListGradationRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule after replacement, got %d", len(rules))
	}
	if !rules[0].Amount.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected rule amount %s", rules[0].Amount)
	}
}

func TestRepository_ListGradationRulesKeepsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ladder := []models.GradationRule{
		{Amount: decimal.NewFromInt(10000), DiscountPercent: decimal.NewFromInt(10), Active: true},
		{Amount: decimal.NewFromInt(5000), DiscountPercent: decimal.NewFromInt(5), Active: true},
	}
	if err := repo.ReplaceGradationRules(ctx, ladder); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rules, err := repo.ListGradationRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if !rules[0].Amount.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("stored order must be preserved, got first amount %s", rules[0].Amount)
	}
}
