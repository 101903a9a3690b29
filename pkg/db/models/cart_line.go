package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one product/quantity pair in a session cart. Prices are
// never stored here; the quote is recomputed from current profiles on
// every read.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SessionID string    `gorm:"column:session_id;not null;index:idx_cart_lines_session_product,unique,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_cart_lines_session_product,unique,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
