package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceRange is one quantity bracket of a product's wholesale ladder.
// Position preserves the order brackets were configured in; resolution
// walks brackets in that order.
type PriceRange struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	MinQty    int             `gorm:"column:min_qty;not null"`
	MaxQty    *int            `gorm:"column:max_qty"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
