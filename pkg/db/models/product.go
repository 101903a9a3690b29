package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the pricing profile for a catalog item, including its
// marketplace linkage and the reconciliation bookkeeping columns.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name              string           `gorm:"column:name;not null"`
	SKU               string           `gorm:"column:sku;not null;uniqueIndex"`
	NmID              *int64           `gorm:"column:nm_id;index"`
	OzonProductID     *int64           `gorm:"column:ozon_product_id;index"`
	ListPrice         decimal.Decimal  `gorm:"column:list_price;type:numeric(12,2);not null"`
	MinPrice          *decimal.Decimal `gorm:"column:min_price;type:numeric(12,2)"`
	RecommendedPrice  *decimal.Decimal `gorm:"column:recommended_price;type:numeric(12,2)"`
	MaxPrice          *decimal.Decimal `gorm:"column:max_price;type:numeric(12,2)"`
	AutoPriceEnabled  bool             `gorm:"column:auto_price_enabled;not null;default:false"`
	MaxChangePercent  *decimal.Decimal `gorm:"column:max_change_percent;type:numeric(5,2)"`
	LastMarketPrice   *decimal.Decimal `gorm:"column:last_market_price;type:numeric(12,2)"`
	LastPriceUpdateAt *time.Time       `gorm:"column:last_price_update_at"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	PriceRanges []PriceRange `gorm:"foreignKey:ProductID"`
}
