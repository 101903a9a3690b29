package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
)

// Repository persists marketplace accounts and their capability-scoped
// credentials.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateAccount inserts the account with its credentials.
func (r *Repository) CreateAccount(ctx context.Context, account *models.MarketplaceAccount) (*models.MarketplaceAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	for i := range account.Credentials {
		if account.Credentials[i].ID == uuid.Nil {
			account.Credentials[i].ID = uuid.New()
		}
		account.Credentials[i].AccountID = account.ID
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount saves account fields without touching credentials.
func (r *Repository) UpdateAccount(ctx context.Context, account *models.MarketplaceAccount) (*models.MarketplaceAccount, error) {
	if err := r.db.WithContext(ctx).Omit("Credentials").Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account and its credentials.
func (r *Repository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.MarketplaceCredential{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.MarketplaceAccount{}).Error
	})
}

// FindByKey loads one account by its (marketplace, account_name) key with
// credentials preloaded.
func (r *Repository) FindByKey(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*models.MarketplaceAccount, error) {
	var account models.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Preload("Credentials").
		Where("marketplace = ? AND account_name = ?", marketplace, accountName).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID loads one account by id with credentials preloaded.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MarketplaceAccount, error) {
	var account models.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Preload("Credentials").
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns accounts for one marketplace, or all accounts when
// marketplace is empty. Ordered for stable listings.
func (r *Repository) ListAccounts(ctx context.Context, marketplace enums.MarketplaceType) ([]models.MarketplaceAccount, error) {
	query := r.db.WithContext(ctx).
		Preload("Credentials").
		Order("marketplace ASC, account_name ASC")
	if marketplace != "" {
		query = query.Where("marketplace = ?", marketplace)
	}
	var accounts []models.MarketplaceAccount
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListActiveWithCapability returns active accounts that hold a credential
// for the given capability.
func (r *Repository) ListActiveWithCapability(ctx context.Context, capability enums.Capability) ([]models.MarketplaceAccount, error) {
	var accounts []models.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Preload("Credentials").
		Joins("JOIN marketplace_credentials ON marketplace_credentials.account_id = marketplace_accounts.id").
		Where("marketplace_accounts.is_active = ? AND marketplace_credentials.capability = ?", true, capability).
		Order("marketplace_accounts.marketplace ASC, marketplace_accounts.account_name ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpsertCredential stores the token for one capability of an account,
// replacing any previous token for that capability.
func (r *Repository) UpsertCredential(ctx context.Context, accountID uuid.UUID, capability enums.Capability, token string) error {
	credential := models.MarketplaceCredential{
		ID:         uuid.New(),
		AccountID:  accountID,
		Capability: capability,
		Token:      token,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "capability"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
		}).
		Create(&credential).Error
}

// DeleteCredential removes one capability token from an account.
func (r *Repository) DeleteCredential(ctx context.Context, accountID uuid.UUID, capability enums.Capability) error {
	return r.db.WithContext(ctx).
		Where("account_id = ? AND capability = ?", accountID, capability).
		Delete(&models.MarketplaceCredential{}).Error
}

// MarkSync records the outcome of the latest sweep for an account.
func (r *Repository) MarkSync(ctx context.Context, id uuid.UUID, at time.Time, status enums.SyncStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.MarketplaceAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_sync_at":     at,
			"last_sync_status": status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
