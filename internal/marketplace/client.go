package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
)

const transientRetryDelay = 200 * time.Millisecond

// Account is the runtime view of a marketplace account handed to price
// clients: identity plus the capability->token map, no GORM baggage.
type Account struct {
	ID                  uuid.UUID
	Marketplace         enums.MarketplaceType
	AccountName         string
	ClientID            string
	SyncIntervalMinutes int
	LastSyncAt          *time.Time
	Tokens              map[enums.Capability]string
}

// AccountFromModel flattens a stored account and its credentials into the
// runtime shape.
func AccountFromModel(stored *models.MarketplaceAccount) Account {
	account := Account{
		ID:                  stored.ID,
		Marketplace:         stored.Marketplace,
		AccountName:         stored.AccountName,
		ClientID:            stored.ClientID,
		SyncIntervalMinutes: stored.SyncIntervalMinutes,
		LastSyncAt:          stored.LastSyncAt,
		Tokens:              make(map[enums.Capability]string, len(stored.Credentials)),
	}
	for _, credential := range stored.Credentials {
		account.Tokens[credential.Capability] = credential.Token
	}
	return account
}

// Token returns the credential for one capability. A missing entry is a
// capability error, not an auth error: the account exists and other keys
// may work, this specific scope was never configured.
func (a Account) Token(capability enums.Capability) (string, error) {
	token, ok := a.Tokens[capability]
	if !ok || strings.TrimSpace(token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeCapability,
			fmt.Sprintf("account %s/%s has no %s credential", a.Marketplace, a.AccountName, capability))
	}
	return token, nil
}

// HasCapability reports whether the account carries a non-empty token for
// the capability.
func (a Account) HasCapability(capability enums.Capability) bool {
	_, err := a.Token(capability)
	return err == nil
}

// PriceQuote is the marketplace-neutral view of one listed price.
type PriceQuote struct {
	ExternalID      int64           `json:"externalId"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	EffectivePrice  decimal.Decimal `json:"effectivePrice"`
}

// PriceClient is the uniform contract every marketplace adapter satisfies.
// Wire formats differ per marketplace; classification of failures does not:
// bad key -> CodeUnauthorized, under-scoped key -> CodeCapability, unlisted
// product -> CodeNotFound, network/5xx -> CodeDependency (retryable).
type PriceClient interface {
	// FetchCurrentPrice returns the live quote for one external product id,
	// or a CodeNotFound error when the product is not listed.
	FetchCurrentPrice(ctx context.Context, account Account, externalID int64) (*PriceQuote, error)
	// FetchCurrentPrices returns quotes keyed by external id. Ids absent
	// from the result are not listed on the marketplace; that is a normal
	// outcome, not an error.
	FetchCurrentPrices(ctx context.Context, account Account, externalIDs []int64) (map[int64]PriceQuote, error)
	// PushPrice sets the effective price of one listing. Repeating a push
	// with the same price is harmless.
	PushPrice(ctx context.Context, account Account, externalID int64, newPrice decimal.Decimal) error
	// TestConnection verifies the account credentials against a cheap
	// read-only endpoint.
	TestConnection(ctx context.Context, account Account) error
}

// ClientSet dispatches to the adapter registered for a marketplace type.
type ClientSet map[enums.MarketplaceType]PriceClient

// ClientFor returns the adapter for the marketplace, or a validation error
// for unknown types.
func (s ClientSet) ClientFor(marketplace enums.MarketplaceType) (PriceClient, error) {
	client, ok := s[marketplace]
	if !ok || client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("no price client registered for marketplace %q", marketplace))
	}
	return client, nil
}

// WithTransientRetry runs fn, repeating it once after a short pause when it
// fails with a retryable code. Anything beyond that single retry is the
// caller's decision.
func WithTransientRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(transientRetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// ClassifyStatus maps a marketplace HTTP status to a coded error. The body
// snippet is scanned for the scope marker some marketplaces bury inside a
// generic 401.
func ClassifyStatus(marketplace enums.MarketplaceType, op string, status int, body string) error {
	switch {
	case status == 401:
		if isScopeDenied(body) {
			return pkgerrors.New(pkgerrors.CodeCapability,
				fmt.Sprintf("%s %s: key lacks the required scope", marketplace, op))
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized,
			fmt.Sprintf("%s %s: key invalid", marketplace, op))
	case status == 403:
		return pkgerrors.New(pkgerrors.CodeCapability,
			fmt.Sprintf("%s %s: key lacks the required scope", marketplace, op))
	case status == 404:
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("%s %s: not found", marketplace, op))
	case status == 429 || status >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("%s %s: status %d", marketplace, op, status))
	case status >= 400:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s %s: status %d: %s", marketplace, op, status, truncateBody(body)))
	default:
		return nil
	}
}

// WrapTransport marks a transport-level failure (dial, TLS, timeout) as a
// retryable dependency error.
func WrapTransport(marketplace enums.MarketplaceType, op string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
		fmt.Sprintf("%s %s failed", marketplace, op))
}

func isScopeDenied(body string) bool {
	return strings.Contains(strings.ToLower(body), "token scope not allowed")
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		return body[:200]
	}
	return body
}
