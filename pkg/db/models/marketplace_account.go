package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velesmarket/backend/pkg/enums"
)

// MarketplaceAccount is a seller account on one marketplace. Accounts
// are addressed by (marketplace, account_name); credentials hang off the
// account per capability.
type MarketplaceAccount struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Marketplace         enums.MarketplaceType `gorm:"column:marketplace;not null;index:idx_marketplace_accounts_key,unique,priority:1"`
	AccountName         string                `gorm:"column:account_name;not null;index:idx_marketplace_accounts_key,unique,priority:2"`
	ClientID            string                `gorm:"column:client_id"`
	IsActive            bool                  `gorm:"column:is_active;not null;default:true"`
	SyncIntervalMinutes int                   `gorm:"column:sync_interval_minutes;not null;default:60"`
	LastSyncAt          *time.Time            `gorm:"column:last_sync_at"`
	LastSyncStatus      *enums.SyncStatus     `gorm:"column:last_sync_status"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Credentials []MarketplaceCredential `gorm:"foreignKey:AccountID"`
}
