package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velesmarket/backend/pkg/db"
	"github.com/velesmarket/backend/pkg/db/models"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/pagination"
)

// Service exposes product price-profile management.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, params pagination.Params) (*ProductPage, error)
	SetAutoPrice(ctx context.Context, productID uuid.UUID, enabled bool) error
}

// PriceRangeInput defines one quantity bracket of the ladder.
type PriceRangeInput struct {
	MinQty    int
	MaxQty    *int
	UnitPrice decimal.Decimal
}

// CreateProductInput holds the validated payload to create a profile.
type CreateProductInput struct {
	Name             string
	SKU              string
	NmID             *int64
	OzonProductID    *int64
	ListPrice        decimal.Decimal
	MinPrice         *decimal.Decimal
	RecommendedPrice *decimal.Decimal
	MaxPrice         *decimal.Decimal
	AutoPriceEnabled bool
	MaxChangePercent *decimal.Decimal
	PriceRanges      []PriceRangeInput
}

// UpdateProductInput holds optional mutation values for a profile.
type UpdateProductInput struct {
	Name             *string
	SKU              *string
	NmID             *int64
	OzonProductID    *int64
	ListPrice        *decimal.Decimal
	MinPrice         *decimal.Decimal
	RecommendedPrice *decimal.Decimal
	MaxPrice         *decimal.Decimal
	AutoPriceEnabled *bool
	MaxChangePercent *decimal.Decimal
	PriceRanges      *[]PriceRangeInput
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// CreateProduct creates the profile with its price ranges.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			Name:             strings.TrimSpace(input.Name),
			SKU:              strings.TrimSpace(input.SKU),
			NmID:             input.NmID,
			OzonProductID:    input.OzonProductID,
			ListPrice:        input.ListPrice,
			MinPrice:         input.MinPrice,
			RecommendedPrice: input.RecommendedPrice,
			MaxPrice:         input.MaxPrice,
			AutoPriceEnabled: input.AutoPriceEnabled,
			MaxChangePercent: input.MaxChangePercent,
		}
		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "idx_products_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID

		if err := txRepo.ReplacePriceRanges(ctx, created.ID, rangesFromInput(input.PriceRanges)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert price ranges")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, createdID)
}

// UpdateProduct applies the provided mutations.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}

		applyUpdate(product, input)
		if product.ListPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "list price cannot be negative")
		}

		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "idx_products_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.PriceRanges != nil {
			if err := validateRanges(*input.PriceRanges); err != nil {
				return err
			}
			if err := txRepo.ReplacePriceRanges(ctx, productID, rangesFromInput(*input.PriceRanges)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace price ranges")
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes the profile and its ladder.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// GetProduct loads one profile.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return toDTO(product), nil
}

// ListProducts returns one page of profiles in creation order.
func (s *service) ListProducts(ctx context.Context, params pagination.Params) (*ProductPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	products, err := s.repo.ListProducts(ctx, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	page := &ProductPage{Items: make([]ProductDTO, 0, len(products))}
	if len(products) > limit {
		last := products[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		products = products[:limit]
	}
	for i := range products {
		page.Items = append(page.Items, *toDTO(&products[i]))
	}
	return page, nil
}

// SetAutoPrice toggles automatic correction for the product.
func (s *service) SetAutoPrice(ctx context.Context, productID uuid.UUID, enabled bool) error {
	if err := s.repo.SetAutoPrice(ctx, productID, enabled); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: toggle auto price")
	}
	return nil
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.ListPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "list price cannot be negative")
	}
	return validateRanges(input.PriceRanges)
}

func validateRanges(ranges []PriceRangeInput) error {
	for _, r := range ranges {
		if r.MinQty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "range min quantity must be at least 1")
		}
		if r.MaxQty != nil && *r.MaxQty < r.MinQty {
			return pkgerrors.New(pkgerrors.CodeValidation, "range max quantity below min quantity")
		}
		if r.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "range price cannot be negative")
		}
	}
	return nil
}

func rangesFromInput(inputs []PriceRangeInput) []models.PriceRange {
	ranges := make([]models.PriceRange, 0, len(inputs))
	for _, in := range inputs {
		ranges = append(ranges, models.PriceRange{
			MinQty:    in.MinQty,
			MaxQty:    in.MaxQty,
			UnitPrice: in.UnitPrice,
		})
	}
	return ranges
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.NmID != nil {
		product.NmID = input.NmID
	}
	if input.OzonProductID != nil {
		product.OzonProductID = input.OzonProductID
	}
	if input.ListPrice != nil {
		product.ListPrice = *input.ListPrice
	}
	if input.MinPrice != nil {
		product.MinPrice = input.MinPrice
	}
	if input.RecommendedPrice != nil {
		product.RecommendedPrice = input.RecommendedPrice
	}
	if input.MaxPrice != nil {
		product.MaxPrice = input.MaxPrice
	}
	if input.AutoPriceEnabled != nil {
		product.AutoPriceEnabled = *input.AutoPriceEnabled
	}
	if input.MaxChangePercent != nil {
		product.MaxChangePercent = input.MaxChangePercent
	}
}

