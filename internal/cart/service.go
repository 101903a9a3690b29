package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velesmarket/backend/internal/pricing"
	"github.com/velesmarket/backend/pkg/db/models"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
)

// Service exposes session cart management. Every mutation returns the
// freshly recomputed pricing snapshot; nothing is recomputed in the
// background.
type Service interface {
	AddLine(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*pricing.OrderPricingSnapshot, error)
	SetQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*pricing.OrderPricingSnapshot, error)
	RemoveLine(ctx context.Context, sessionID string, productID uuid.UUID) (*pricing.OrderPricingSnapshot, error)
	ClearSession(ctx context.Context, sessionID string) error
	Quote(ctx context.Context, sessionID string) (*pricing.OrderPricingSnapshot, error)
	QuoteLines(ctx context.Context, lines []QuoteLineInput) (*pricing.OrderPricingSnapshot, error)
}

// QuoteLineInput is one product/quantity pair for a stateless quote.
type QuoteLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type pricingSettings interface {
	OrderMinimums(ctx context.Context) (pricing.OrderMinimums, error)
	GradationRules(ctx context.Context) ([]models.GradationRule, error)
}

type service struct {
	repo     *Repository
	products profileLoader
	settings pricingSettings
}

// NewService constructs the cart service.
func NewService(repo *Repository, products profileLoader, settings pricingSettings) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if settings == nil {
		return nil, fmt.Errorf("pricing settings required")
	}
	return &service{repo: repo, products: products, settings: settings}, nil
}

// AddLine adds quantity to the session line (summing with an existing
// line) and returns the recomputed snapshot.
func (s *service) AddLine(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*pricing.OrderPricingSnapshot, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindLine(ctx, sessionID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart line")
	}
	if existing != nil {
		quantity += existing.Quantity
	}

	line := &models.CartLine{SessionID: sessionID, ProductID: productID, Quantity: quantity}
	if err := s.repo.UpsertLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart line")
	}
	return s.Quote(ctx, sessionID)
}

// SetQuantity overwrites the line quantity; a quantity below one
// removes the line.
func (s *service) SetQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*pricing.OrderPricingSnapshot, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return s.RemoveLine(ctx, sessionID, productID)
	}
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, err
	}

	line := &models.CartLine{SessionID: sessionID, ProductID: productID, Quantity: quantity}
	if err := s.repo.UpsertLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart line")
	}
	return s.Quote(ctx, sessionID)
}

// RemoveLine drops the product from the cart.
func (s *service) RemoveLine(ctx context.Context, sessionID string, productID uuid.UUID) (*pricing.OrderPricingSnapshot, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, sessionID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart line")
	}
	return s.Quote(ctx, sessionID)
}

// ClearSession empties the cart.
func (s *service) ClearSession(ctx context.Context, sessionID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	if err := s.repo.ClearSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

// Quote recomputes the pricing snapshot for the stored session lines.
func (s *service) Quote(ctx context.Context, sessionID string) (*pricing.OrderPricingSnapshot, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	stored, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart lines")
	}

	inputs := make([]QuoteLineInput, 0, len(stored))
	for _, line := range stored {
		inputs = append(inputs, QuoteLineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return s.QuoteLines(ctx, inputs)
}

// QuoteLines prices an explicit set of lines without touching stored
// state. Lines whose product no longer exists are skipped rather than
// failing the whole quote.
func (s *service) QuoteLines(ctx context.Context, lines []QuoteLineInput) (*pricing.OrderPricingSnapshot, error) {
	priceLines := make([]pricing.CartLine, 0, len(lines))
	for _, input := range lines {
		product, err := s.products.FindByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		priceLines = append(priceLines, pricing.CartLine{
			ProductID:     product.ID,
			UnitListPrice: product.ListPrice,
			Quantity:      input.Quantity,
			PriceRanges:   product.PriceRanges,
		})
	}

	rules, err := s.settings.GradationRules(ctx)
	if err != nil {
		return nil, err
	}
	minimums, err := s.settings.OrderMinimums(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := pricing.ComputeOrderPricing(priceLines, rules, minimums)
	return &snapshot, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
