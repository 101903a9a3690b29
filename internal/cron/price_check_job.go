package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/internal/reconcile"
	"github.com/velesmarket/backend/pkg/enums"
	"github.com/velesmarket/backend/pkg/logger"
)

type accountRegistry interface {
	ActiveAccountsWithCapability(ctx context.Context, capability enums.Capability) ([]marketplace.Account, error)
	MarkSync(ctx context.Context, accountID uuid.UUID, at time.Time, status enums.SyncStatus) error
}

type priceChecker interface {
	CheckPrices(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (*reconcile.CheckReport, error)
}

// PriceCheckJobParams configures the scheduled price sweep.
type PriceCheckJobParams struct {
	Logger    *logger.Logger
	Accounts  accountRegistry
	Reconcile priceChecker
}

// NewPriceCheckJob constructs the recurring price reconciliation job.
func NewPriceCheckJob(params PriceCheckJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account registry required")
	}
	if params.Reconcile == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	return &priceCheckJob{
		logg:      params.Logger,
		accounts:  params.Accounts,
		reconcile: params.Reconcile,
		now:       time.Now,
	}, nil
}

type priceCheckJob struct {
	logg      *logger.Logger
	accounts  accountRegistry
	reconcile priceChecker
	now       func() time.Time
}

func (j *priceCheckJob) Name() string { return "price-check" }

// Run sweeps every active account holding a prices credential. Accounts
// synced more recently than their own interval are skipped, so a short
// cron cadence does not hammer slow-interval accounts. One account's
// failure never stops the sweep.
func (j *priceCheckJob) Run(ctx context.Context) error {
	accounts, err := j.accounts.ActiveAccountsWithCapability(ctx, enums.CapabilityPrices)
	if err != nil {
		return fmt.Errorf("list active accounts: %w", err)
	}

	var errs error
	for _, account := range accounts {
		accountCtx := j.logg.WithAccount(ctx, account.Marketplace.String(), account.AccountName)

		if !j.due(account) {
			j.logg.Info(accountCtx, "account not due for price check; skipping")
			continue
		}

		report, checkErr := j.reconcile.CheckPrices(accountCtx, account.Marketplace, account.AccountName)
		status := enums.SyncStatusSuccess
		if checkErr != nil {
			status = enums.SyncStatusError
			errs = multierr.Append(errs, fmt.Errorf("account %s/%s: %w", account.Marketplace, account.AccountName, checkErr))
			j.logg.Error(accountCtx, "price check failed", checkErr)
		} else if len(report.Errors) > 0 {
			status = enums.SyncStatusError
			j.logg.Warn(j.logg.WithField(accountCtx, "errors", len(report.Errors)), "price check finished with errors")
		}

		if markErr := j.accounts.MarkSync(ctx, account.ID, j.now().UTC(), status); markErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark sync %s/%s: %w", account.Marketplace, account.AccountName, markErr))
		}
	}
	return errs
}

// due reports whether the account's own sync interval has elapsed.
func (j *priceCheckJob) due(account marketplace.Account) bool {
	if account.LastSyncAt == nil {
		return true
	}
	interval := time.Duration(account.SyncIntervalMinutes) * time.Minute
	if interval <= 0 {
		return true
	}
	return j.now().Sub(*account.LastSyncAt) >= interval
}
