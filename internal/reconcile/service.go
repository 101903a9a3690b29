package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
	"github.com/velesmarket/backend/pkg/metrics"
	"github.com/velesmarket/backend/pkg/redis"
)

// The fetch phase splits linked products into chunks this size; chunks run
// concurrently up to the configured limit.
const fetchChunkSize = 1000

// PriceCheckResult is one product's classification within a run.
type PriceCheckResult struct {
	ProductID           uuid.UUID         `json:"productId"`
	SKU                 string            `json:"sku"`
	Name                string            `json:"name"`
	ExternalID          int64             `json:"externalId"`
	CurrentPrice        decimal.Decimal   `json:"currentPrice"`
	BasePrice           decimal.Decimal   `json:"basePrice"`
	DiscountPercent     decimal.Decimal   `json:"discountPercent"`
	MinPrice            decimal.Decimal   `json:"minPrice"`
	RecommendedPrice    decimal.Decimal   `json:"recommendedPrice"`
	MaxPrice            decimal.Decimal   `json:"maxPrice"`
	Status              enums.PriceStatus `json:"status"`
	NeedsUpdate         bool              `json:"needsUpdate"`
	SuggestedPrice      decimal.Decimal   `json:"suggestedPrice"`
	PriceChangeTooLarge bool              `json:"priceChangeTooLarge"`
	LastPrice           decimal.Decimal   `json:"lastPrice"`
	MaxChangePercent    decimal.Decimal   `json:"maxChangePercent"`
	AutoPriceEnabled    bool              `json:"autoPriceEnabled"`
}

// CheckReport is the full outcome of one reconciliation run.
type CheckReport struct {
	Marketplace string             `json:"marketplace"`
	AccountName string             `json:"accountName"`
	CheckedAt   time.Time          `json:"checkedAt"`
	Checked     int                `json:"checked"`
	NeedsUpdate int                `json:"needsUpdate"`
	Results     []PriceCheckResult `json:"results"`
	Errors      []string           `json:"errors"`
}

// PriceUpdate is one requested push in a batch apply.
type PriceUpdate struct {
	ExternalID int64           `json:"externalId"`
	NewPrice   decimal.Decimal `json:"newPrice"`
}

// FailedUpdate records one rejected push with its reason.
type FailedUpdate struct {
	ExternalID int64  `json:"externalId"`
	Reason     string `json:"reason"`
}

// UpdateReport accounts for a batch apply item by item.
type UpdateReport struct {
	Marketplace string         `json:"marketplace"`
	AccountName string         `json:"accountName"`
	Succeeded   int            `json:"succeeded"`
	Failed      []FailedUpdate `json:"failed"`
}

// Service runs price reconciliation against one marketplace account.
type Service interface {
	CheckPrices(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (*CheckReport, error)
	LatestReport(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (*CheckReport, error)
	UpdatePrices(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string, updates []PriceUpdate) (*UpdateReport, error)
}

type accountResolver interface {
	ResolveAccount(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (marketplace.Account, error)
}

type productStore interface {
	ListLinked(ctx context.Context, marketplaceType enums.MarketplaceType) ([]models.Product, error)
	RecordMarketPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error
}

type service struct {
	accounts    accountResolver
	products    productStore
	clients     marketplace.ClientSet
	cache       redis.ReportCache
	metrics     *metrics.ReconcileMetrics
	logger      *logger.Logger
	cfg         config.ReconcileConfig
	callTimeout time.Duration
	now         func() time.Time
}

// NewService constructs the reconciliation service. cache and metrics may
// be nil; reporting then skips the cache and instrumentation.
func NewService(
	accounts accountResolver,
	products productStore,
	clients marketplace.ClientSet,
	cache redis.ReportCache,
	reconcileMetrics *metrics.ReconcileMetrics,
	logg *logger.Logger,
	cfg config.ReconcileConfig,
	callTimeout time.Duration,
) (Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account resolver required")
	}
	if products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if clients == nil {
		return nil, fmt.Errorf("price client set required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &service{
		accounts:    accounts,
		products:    products,
		clients:     clients,
		cache:       cache,
		metrics:     reconcileMetrics,
		logger:      logg,
		cfg:         cfg,
		callTimeout: callTimeout,
		now:         time.Now,
	}, nil
}

// CheckPrices fetches live prices for every linked product of the account
// and classifies each against its configured bounds. The report is always
// complete: per-chunk fetch failures land in Errors, not in a short-
// circuit.
func (s *service) CheckPrices(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (*CheckReport, error) {
	started := s.now()

	account, err := s.accounts.ResolveAccount(ctx, marketplaceType, accountName)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.ClientFor(marketplaceType)
	if err != nil {
		return nil, err
	}
	linked, err := s.products.ListLinked(ctx, marketplaceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list linked products")
	}

	report := &CheckReport{
		Marketplace: marketplaceType.String(),
		AccountName: account.AccountName,
		CheckedAt:   started.UTC(),
		Results:     []PriceCheckResult{},
		Errors:      []string{},
	}

	quotes, unfetched, fetchErrors := s.fetchQuotes(ctx, client, account, linked, marketplaceType)
	report.Errors = append(report.Errors, fetchErrors...)

	defaultMaxChange := decimal.NewFromFloat(s.cfg.MaxChangePercent)
	tolerance := decimal.NewFromFloat(s.cfg.AboveMaxTolerance)

	for i := range linked {
		product := &linked[i]
		externalID, ok := externalIDFor(product, marketplaceType)
		if !ok {
			continue
		}
		// A failed fetch chunk is a transport problem, not an unlisted
		// product; those ids stay out of the report body.
		if unfetched[externalID] {
			continue
		}
		result := s.classify(product, externalID, quotes, tolerance, defaultMaxChange)
		report.Results = append(report.Results, result)
		if result.NeedsUpdate {
			report.NeedsUpdate++
		}
		if result.Status.IsAnomalous() && s.metrics != nil {
			s.metrics.IncAnomaly(report.Marketplace, result.Status.String())
		}
	}
	report.Checked = len(report.Results)

	if s.metrics != nil {
		s.metrics.AddChecked(report.Marketplace, report.Checked)
		s.metrics.ObserveRun(report.Marketplace, s.now().Sub(started))
	}
	s.cacheReport(ctx, report)

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"marketplace":  report.Marketplace,
		"account":      report.AccountName,
		"checked":      report.Checked,
		"needs_update": report.NeedsUpdate,
		"errors":       len(report.Errors),
	}), "price check finished")
	return report, nil
}

// LatestReport returns the cached report from the most recent run.
func (s *service) LatestReport(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string) (*CheckReport, error) {
	if s.cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report cache not configured")
	}
	raw, err := s.cache.Get(ctx, s.cache.PriceReportKey(marketplaceType.String(), accountName))
	if errors.Is(err, goredis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cached report for this account")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report cache unavailable")
	}
	var report CheckReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached report")
	}
	return &report, nil
}

// UpdatePrices pushes the requested prices one by one. A failed item is
// recorded and skipped; the batch never aborts. Successful pushes write
// the new price back onto the product profile.
func (s *service) UpdatePrices(ctx context.Context, marketplaceType enums.MarketplaceType, accountName string, updates []PriceUpdate) (*UpdateReport, error) {
	account, err := s.accounts.ResolveAccount(ctx, marketplaceType, accountName)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.ClientFor(marketplaceType)
	if err != nil {
		return nil, err
	}
	linked, err := s.products.ListLinked(ctx, marketplaceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list linked products")
	}
	productByExternalID := make(map[int64]uuid.UUID, len(linked))
	for i := range linked {
		if externalID, ok := externalIDFor(&linked[i], marketplaceType); ok {
			productByExternalID[externalID] = linked[i].ID
		}
	}

	report := &UpdateReport{
		Marketplace: marketplaceType.String(),
		AccountName: account.AccountName,
		Failed:      []FailedUpdate{},
	}
	for _, update := range updates {
		if !update.NewPrice.IsPositive() {
			report.Failed = append(report.Failed, FailedUpdate{
				ExternalID: update.ExternalID,
				Reason:     "price must be positive",
			})
			s.incPush(report.Marketplace, "rejected")
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		err := client.PushPrice(pushCtx, account, update.ExternalID, update.NewPrice)
		cancel()
		if err != nil {
			report.Failed = append(report.Failed, FailedUpdate{
				ExternalID: update.ExternalID,
				Reason:     err.Error(),
			})
			s.incPush(report.Marketplace, "error")
			continue
		}
		report.Succeeded++
		s.incPush(report.Marketplace, "ok")

		if productID, ok := productByExternalID[update.ExternalID]; ok {
			if err := s.products.RecordMarketPrice(ctx, productID, update.NewPrice, s.now().UTC()); err != nil {
				s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
					"product_id":  productID,
					"external_id": update.ExternalID,
				}), "record market price failed")
			}
		}
	}
	return report, nil
}

// fetchQuotes loads live quotes in chunks with bounded concurrency. Each
// chunk writes only its own slot, so the merge after Wait needs no lock.
func (s *service) fetchQuotes(
	ctx context.Context,
	client marketplace.PriceClient,
	account marketplace.Account,
	linked []models.Product,
	marketplaceType enums.MarketplaceType,
) (map[int64]marketplace.PriceQuote, map[int64]bool, []string) {
	externalIDs := make([]int64, 0, len(linked))
	for i := range linked {
		if externalID, ok := externalIDFor(&linked[i], marketplaceType); ok {
			externalIDs = append(externalIDs, externalID)
		}
	}
	if len(externalIDs) == 0 {
		return map[int64]marketplace.PriceQuote{}, nil, nil
	}

	var chunks [][]int64
	for start := 0; start < len(externalIDs); start += fetchChunkSize {
		end := start + fetchChunkSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		chunks = append(chunks, externalIDs[start:end])
	}

	chunkQuotes := make([]map[int64]marketplace.PriceQuote, len(chunks))
	chunkErrors := make([]error, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.FetchConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, s.callTimeout)
			defer cancel()
			quotes, err := client.FetchCurrentPrices(fetchCtx, account, chunk)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch prices timed out")
				}
				chunkErrors[i] = err
				return nil
			}
			chunkQuotes[i] = quotes
			return nil
		})
	}
	// Goroutines never return errors; Wait only joins them.
	_ = group.Wait()

	merged := make(map[int64]marketplace.PriceQuote, len(externalIDs))
	unfetched := make(map[int64]bool)
	var messages []string
	for i := range chunks {
		if chunkErrors[i] != nil {
			messages = append(messages, fmt.Sprintf("fetch chunk %d/%d: %v", i+1, len(chunks), chunkErrors[i]))
			for _, id := range chunks[i] {
				unfetched[id] = true
			}
			continue
		}
		for id, quote := range chunkQuotes[i] {
			merged[id] = quote
		}
	}
	sort.Strings(messages)
	return merged, unfetched, messages
}

// classify runs the state machine for one product: not-found short
// circuit, bounds classification, guardrail clamp, auto-price gate.
func (s *service) classify(
	product *models.Product,
	externalID int64,
	quotes map[int64]marketplace.PriceQuote,
	tolerance, defaultMaxChange decimal.Decimal,
) PriceCheckResult {
	result := PriceCheckResult{
		ProductID:        product.ID,
		SKU:              product.SKU,
		Name:             product.Name,
		ExternalID:       externalID,
		MinPrice:         decimalValue(product.MinPrice),
		RecommendedPrice: decimalValue(product.RecommendedPrice),
		MaxChangePercent: defaultMaxChange,
		AutoPriceEnabled: product.AutoPriceEnabled,
	}
	if product.MaxChangePercent != nil && product.MaxChangePercent.IsPositive() {
		result.MaxChangePercent = *product.MaxChangePercent
	}

	bounds := Bounds{
		Min:              decimalValue(product.MinPrice),
		Recommended:      decimalValue(product.RecommendedPrice),
		Max:              decimalValue(product.MaxPrice),
		MaxChangePercent: decimalValue(product.MaxChangePercent),
	}
	result.MaxPrice = EffectiveMax(bounds, tolerance)

	quote, listed := quotes[externalID]
	if !listed {
		result.Status = enums.PriceStatusNotFound
		result.SuggestedPrice = result.RecommendedPrice
		result.LastPrice = decimalValue(product.LastMarketPrice)
		return result
	}

	result.CurrentPrice = quote.EffectivePrice
	result.BasePrice = quote.BasePrice
	result.DiscountPercent = quote.DiscountPercent
	result.LastPrice = quote.EffectivePrice
	if product.LastMarketPrice != nil && product.LastMarketPrice.IsPositive() {
		result.LastPrice = *product.LastMarketPrice
	}

	assessment := Assess(quote.EffectivePrice, bounds, tolerance, defaultMaxChange)
	result.Status = assessment.Status
	result.SuggestedPrice = assessment.SuggestedPrice
	result.PriceChangeTooLarge = assessment.PriceChangeTooLarge
	result.NeedsUpdate = assessment.Status.IsAnomalous() && product.AutoPriceEnabled
	return result
}

func (s *service) cacheReport(ctx context.Context, report *CheckReport) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn(ctx, "encode price report for cache failed")
		return
	}
	key := s.cache.PriceReportKey(report.Marketplace, report.AccountName)
	if err := s.cache.Set(ctx, key, string(encoded), s.cfg.ReportCacheTTL); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "key", key), "cache price report failed")
	}
}

func (s *service) incPush(marketplaceName, result string) {
	if s.metrics != nil {
		s.metrics.IncPush(marketplaceName, result)
	}
}

func externalIDFor(product *models.Product, marketplaceType enums.MarketplaceType) (int64, bool) {
	switch marketplaceType {
	case enums.MarketplaceWildberries:
		if product.NmID != nil && *product.NmID != 0 {
			return *product.NmID, true
		}
	case enums.MarketplaceOzon:
		if product.OzonProductID != nil && *product.OzonProductID != 0 {
			return *product.OzonProductID, true
		}
	}
	return 0, false
}

func decimalValue(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}
