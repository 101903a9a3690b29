package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GradationRule grants a percentage discount once the order subtotal
// reaches Amount.
type GradationRule struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	Position        int             `gorm:"column:position;not null;default:0"`
	Active          bool            `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
