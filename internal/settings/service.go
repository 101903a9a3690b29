package settings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/internal/pricing"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/db/models"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
)

// Setting keys understood by the typed accessors.
const (
	KeyMinRetailOrder    = "min_retail_order"
	KeyMinWholesaleOrder = "min_wholesale_order"
)

// Service exposes tenant pricing settings.
type Service interface {
	OrderMinimums(ctx context.Context) (pricing.OrderMinimums, error)
	SetOrderMinimums(ctx context.Context, minimums pricing.OrderMinimums) error
	GradationRules(ctx context.Context) ([]models.GradationRule, error)
	ReplaceGradationRules(ctx context.Context, rules []models.GradationRule) error
}

type service struct {
	repo     *Repository
	defaults config.PricingConfig
}

// NewService constructs the settings service.
func NewService(repo *Repository, defaults config.PricingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo, defaults: defaults}, nil
}

// OrderMinimums returns the configured retail/wholesale minimums,
// falling back to the process defaults when no override row exists.
func (s *service) OrderMinimums(ctx context.Context) (pricing.OrderMinimums, error) {
	retail, err := s.decimalValue(ctx, KeyMinRetailOrder, s.defaults.DefaultMinRetailOrder)
	if err != nil {
		return pricing.OrderMinimums{}, err
	}
	wholesale, err := s.decimalValue(ctx, KeyMinWholesaleOrder, s.defaults.DefaultMinWholesaleOrder)
	if err != nil {
		return pricing.OrderMinimums{}, err
	}
	return pricing.OrderMinimums{Retail: retail, Wholesale: wholesale}, nil
}

// SetOrderMinimums stores both minimum order values.
func (s *service) SetOrderMinimums(ctx context.Context, minimums pricing.OrderMinimums) error {
	if minimums.Retail.IsNegative() || minimums.Wholesale.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum order values cannot be negative")
	}
	if err := s.repo.SetValue(ctx, KeyMinRetailOrder, minimums.Retail.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store retail minimum")
	}
	if err := s.repo.SetValue(ctx, KeyMinWholesaleOrder, minimums.Wholesale.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store wholesale minimum")
	}
	return nil
}

// GradationRules returns the tenant's gradation ladder in stored order.
func (s *service) GradationRules(ctx context.Context) ([]models.GradationRule, error) {
	rules, err := s.repo.ListGradationRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list gradation rules")
	}
	return rules, nil
}

// ReplaceGradationRules validates and swaps the gradation ladder.
func (s *service) ReplaceGradationRules(ctx context.Context, rules []models.GradationRule) error {
	for _, rule := range rules {
		if rule.Amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "gradation amount cannot be negative")
		}
		if rule.DiscountPercent.IsNegative() || rule.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "gradation percent must be between 0 and 100")
		}
	}
	if err := s.repo.ReplaceGradationRules(ctx, rules); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace gradation rules")
	}
	return nil
}

func (s *service) decimalValue(ctx context.Context, key, fallback string) (decimal.Decimal, error) {
	raw, ok, err := s.repo.GetValue(ctx, key)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read setting "+key)
	}
	if !ok {
		raw = fallback
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed setting "+key)
	}
	return value, nil
}
