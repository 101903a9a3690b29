package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velesmarket/backend/pkg/enums"
)

// MarketplaceCredential holds one capability-scoped API token for an
// account. A single account may carry separate tokens for statistics,
// reviews and prices.
type MarketplaceCredential struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	AccountID  uuid.UUID        `gorm:"column:account_id;type:uuid;not null;index:idx_marketplace_credentials_key,unique,priority:1"`
	Capability enums.Capability `gorm:"column:capability;not null;index:idx_marketplace_credentials_key,unique,priority:2"`
	Token      string           `gorm:"column:token;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
