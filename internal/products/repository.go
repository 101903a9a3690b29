package product

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
	"github.com/velesmarket/backend/pkg/pagination"
)

// ProductRepository defines persistence operations for price profiles.
type ProductRepository interface {
	CreateProduct(context.Context, *models.Product) (*models.Product, error)
	UpdateProduct(context.Context, *models.Product) (*models.Product, error)
	DeleteProduct(context.Context, uuid.UUID) error
	FindByID(context.Context, uuid.UUID) (*models.Product, error)
	FindBySKU(context.Context, string) (*models.Product, error)
	ListProducts(context.Context, int, *pagination.Cursor) ([]models.Product, error)
	ListLinked(context.Context, enums.MarketplaceType) ([]models.Product, error)
	ReplacePriceRanges(context.Context, uuid.UUID, []models.PriceRange) error
	SetAutoPrice(context.Context, uuid.UUID, bool) error
	RecordMarketPrice(context.Context, uuid.UUID, decimal.Decimal, time.Time) error
}

// Repository is the GORM-backed ProductRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateProduct inserts a product profile.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct saves the provided product profile.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("PriceRanges").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the product and its price ranges.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.PriceRange{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindByID loads a product with its price ranges.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("PriceRanges", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads a product by its SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("PriceRanges", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("sku = ?", sku).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns one page of products with their price ranges,
// keyed by creation time and id for a stable cursor.
func (r *Repository) ListProducts(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("PriceRanges", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at ASC").
		Order("id ASC")
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListLinked returns products carrying an external id for the given
// marketplace, in stable creation order.
func (r *Repository) ListLinked(ctx context.Context, marketplace enums.MarketplaceType) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	switch marketplace {
	case enums.MarketplaceWildberries:
		query = query.Where("nm_id IS NOT NULL")
	case enums.MarketplaceOzon:
		query = query.Where("ozon_product_id IS NOT NULL")
	default:
		return nil, errors.New("unknown marketplace: " + string(marketplace))
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ReplacePriceRanges atomically replaces the product's bracket ladder.
func (r *Repository) ReplacePriceRanges(ctx context.Context, productID uuid.UUID, ranges []models.PriceRange) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.PriceRange{}).Error; err != nil {
		return err
	}
	if len(ranges) == 0 {
		return nil
	}
	for i := range ranges {
		if ranges[i].ID == uuid.Nil {
			ranges[i].ID = uuid.New()
		}
		ranges[i].ProductID = productID
		ranges[i].Position = i
	}
	return tx.Create(&ranges).Error
}

// SetAutoPrice toggles automatic price correction for the product.
func (r *Repository) SetAutoPrice(ctx context.Context, id uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("auto_price_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordMarketPrice stores the last observed marketplace price.
func (r *Repository) RecordMarketPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_market_price":    price,
			"last_price_update_at": at,
		}).Error
}
