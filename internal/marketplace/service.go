package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velesmarket/backend/pkg/db"
	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
)

// Service exposes account-registry management plus credential checks.
type Service interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (*AccountDTO, error)
	UpdateAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string, input UpdateAccountInput) (*AccountDTO, error)
	DeleteAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) error
	GetAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*AccountDTO, error)
	ListAccounts(ctx context.Context, marketplace enums.MarketplaceType) ([]AccountDTO, error)
	ActiveAccountsWithCapability(ctx context.Context, capability enums.Capability) ([]Account, error)
	SetCredential(ctx context.Context, marketplace enums.MarketplaceType, accountName string, capability enums.Capability, token string) error
	RemoveCredential(ctx context.Context, marketplace enums.MarketplaceType, accountName string, capability enums.Capability) error
	TestConnection(ctx context.Context, marketplace enums.MarketplaceType, accountName string) error
	ResolveAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (Account, error)
	MarkSync(ctx context.Context, accountID uuid.UUID, at time.Time, status enums.SyncStatus) error
}

// CreateAccountInput holds the validated payload to register an account.
type CreateAccountInput struct {
	Marketplace         enums.MarketplaceType
	AccountName         string
	ClientID            string
	IsActive            bool
	SyncIntervalMinutes int
	Credentials         map[enums.Capability]string
}

// UpdateAccountInput holds optional mutation values for an account.
type UpdateAccountInput struct {
	ClientID            *string
	IsActive            *bool
	SyncIntervalMinutes *int
}

// AccountDTO is the API-facing account view. Tokens never leave the
// service; only the capabilities they unlock do.
type AccountDTO struct {
	ID                  uuid.UUID         `json:"id"`
	Marketplace         string            `json:"marketplace"`
	AccountName         string            `json:"accountName"`
	ClientID            string            `json:"clientId,omitempty"`
	IsActive            bool              `json:"isActive"`
	SyncIntervalMinutes int               `json:"syncIntervalMinutes"`
	Capabilities        []string          `json:"capabilities"`
	LastSyncAt          *time.Time        `json:"lastSyncAt,omitempty"`
	LastSyncStatus      *enums.SyncStatus `json:"lastSyncStatus,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	clients  ClientSet
}

// NewService constructs the registry service.
func NewService(repo *Repository, dbClient *db.Client, clients ClientSet) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("marketplace repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if clients == nil {
		return nil, fmt.Errorf("price client set required")
	}
	return &service{repo: repo, dbClient: dbClient, clients: clients}, nil
}

// CreateAccount registers the account with its capability tokens.
func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*AccountDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	account := &models.MarketplaceAccount{
		Marketplace:         input.Marketplace,
		AccountName:         strings.TrimSpace(input.AccountName),
		ClientID:            strings.TrimSpace(input.ClientID),
		IsActive:            input.IsActive,
		SyncIntervalMinutes: input.SyncIntervalMinutes,
	}
	if account.SyncIntervalMinutes <= 0 {
		account.SyncIntervalMinutes = 60
	}
	for _, capability := range sortedCapabilities(input.Credentials) {
		account.Credentials = append(account.Credentials, models.MarketplaceCredential{
			Capability: capability,
			Token:      input.Credentials[capability],
		})
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateAccount(ctx, account); err != nil {
			if db.IsUniqueViolation(err, "idx_marketplace_accounts_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "account already exists for this marketplace")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert marketplace account")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetAccount(ctx, input.Marketplace, account.AccountName)
}

// UpdateAccount applies the provided mutations.
func (s *service) UpdateAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string, input UpdateAccountInput) (*AccountDTO, error) {
	account, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return nil, err
	}

	if input.ClientID != nil {
		account.ClientID = strings.TrimSpace(*input.ClientID)
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if input.SyncIntervalMinutes != nil {
		if *input.SyncIntervalMinutes <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sync interval must be positive")
		}
		account.SyncIntervalMinutes = *input.SyncIntervalMinutes
	}

	if _, err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update marketplace account")
	}
	return s.GetAccount(ctx, marketplace, accountName)
}

// DeleteAccount removes the account and all its credentials.
func (s *service) DeleteAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) error {
	account, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, account.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete marketplace account")
	}
	return nil
}

// GetAccount returns one account by its natural key.
func (s *service) GetAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*AccountDTO, error) {
	account, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return nil, err
	}
	dto := toDTO(account)
	return &dto, nil
}

// ListAccounts returns accounts for a marketplace, or all when empty.
func (s *service) ListAccounts(ctx context.Context, marketplace enums.MarketplaceType) ([]AccountDTO, error) {
	if marketplace != "" && !marketplace.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid marketplace type %q", marketplace))
	}
	accounts, err := s.repo.ListAccounts(ctx, marketplace)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list marketplace accounts")
	}
	dtos := make([]AccountDTO, 0, len(accounts))
	for i := range accounts {
		dtos = append(dtos, toDTO(&accounts[i]))
	}
	return dtos, nil
}

// ActiveAccountsWithCapability returns runtime accounts that are active and
// carry a token for the capability, ready to hand to a price client.
func (s *service) ActiveAccountsWithCapability(ctx context.Context, capability enums.Capability) ([]Account, error) {
	if !capability.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid capability %q", capability))
	}
	stored, err := s.repo.ListActiveWithCapability(ctx, capability)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list active accounts")
	}
	accounts := make([]Account, 0, len(stored))
	for i := range stored {
		accounts = append(accounts, AccountFromModel(&stored[i]))
	}
	return accounts, nil
}

// SetCredential stores or replaces one capability token.
func (s *service) SetCredential(ctx context.Context, marketplace enums.MarketplaceType, accountName string, capability enums.Capability, token string) error {
	if !capability.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid capability %q", capability))
	}
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token must not be empty")
	}
	account, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertCredential(ctx, account.ID, capability, strings.TrimSpace(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert credential")
	}
	return nil
}

// RemoveCredential drops one capability token from the account.
func (s *service) RemoveCredential(ctx context.Context, marketplace enums.MarketplaceType, accountName string, capability enums.Capability) error {
	account, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCredential(ctx, account.ID, capability); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete credential")
	}
	return nil
}

// TestConnection exercises the account credentials against the marketplace.
func (s *service) TestConnection(ctx context.Context, marketplace enums.MarketplaceType, accountName string) error {
	account, err := s.ResolveAccount(ctx, marketplace, accountName)
	if err != nil {
		return err
	}
	client, err := s.clients.ClientFor(marketplace)
	if err != nil {
		return err
	}
	return client.TestConnection(ctx, account)
}

// ResolveAccount loads the runtime account for client calls.
func (s *service) ResolveAccount(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (Account, error) {
	stored, err := s.findStored(ctx, marketplace, accountName)
	if err != nil {
		return Account{}, err
	}
	return AccountFromModel(stored), nil
}

// MarkSync records the outcome of the latest sweep.
func (s *service) MarkSync(ctx context.Context, accountID uuid.UUID, at time.Time, status enums.SyncStatus) error {
	if err := s.repo.MarkSync(ctx, accountID, at, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark sync")
	}
	return nil
}

func (s *service) findStored(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*models.MarketplaceAccount, error) {
	if !marketplace.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid marketplace type %q", marketplace))
	}
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name must not be empty")
	}
	account, err := s.repo.FindByKey(ctx, marketplace, accountName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find marketplace account")
	}
	return account, nil
}

func validateCreate(input CreateAccountInput) error {
	if !input.Marketplace.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid marketplace type %q", input.Marketplace))
	}
	if strings.TrimSpace(input.AccountName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account name must not be empty")
	}
	if input.SyncIntervalMinutes < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sync interval must be positive")
	}
	for capability, token := range input.Credentials {
		if !capability.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid capability %q", capability))
		}
		if strings.TrimSpace(token) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("token for capability %q must not be empty", capability))
		}
	}
	return nil
}

func toDTO(account *models.MarketplaceAccount) AccountDTO {
	capabilities := make([]string, 0, len(account.Credentials))
	for _, credential := range account.Credentials {
		capabilities = append(capabilities, credential.Capability.String())
	}
	sort.Strings(capabilities)
	return AccountDTO{
		ID:                  account.ID,
		Marketplace:         account.Marketplace.String(),
		AccountName:         account.AccountName,
		ClientID:            account.ClientID,
		IsActive:            account.IsActive,
		SyncIntervalMinutes: account.SyncIntervalMinutes,
		Capabilities:        capabilities,
		LastSyncAt:          account.LastSyncAt,
		LastSyncStatus:      account.LastSyncStatus,
		CreatedAt:           account.CreatedAt,
		UpdatedAt:           account.UpdatedAt,
	}
}

func sortedCapabilities(credentials map[enums.Capability]string) []enums.Capability {
	capabilities := make([]enums.Capability, 0, len(credentials))
	for capability := range credentials {
		capabilities = append(capabilities, capability)
	}
	sort.Slice(capabilities, func(i, j int) bool { return capabilities[i] < capabilities[j] })
	return capabilities
}
