package wildberries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
)

const (
	goodsFilterPath = "/api/v2/list/goods/filter"
	uploadTaskPath  = "/api/v2/upload/task"
	pingPath        = "/ping"

	// The goods filter endpoint accepts at most 1000 nm ids per request.
	fetchBatchSize = 1000
)

var hundred = decimal.NewFromInt(100)

// Client talks to the Wildberries Discounts & Prices API. Prices carry a
// seller discount: the shopper pays price*(1-discount/100), and some
// listings report prices per size instead of at the root.
type Client struct {
	httpClient    *http.Client
	pricesBaseURL string
	statsBaseURL  string
	logger        *logger.Logger
}

// NewClient validates configuration and builds the adapter.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("wildberries logger required")
	}
	pricesBase := strings.TrimRight(strings.TrimSpace(cfg.WildberriesPricesBaseURL), "/")
	if pricesBase == "" {
		return nil, fmt.Errorf("wildberries prices base url required")
	}
	statsBase := strings.TrimRight(strings.TrimSpace(cfg.WildberriesStatsBaseURL), "/")
	if statsBase == "" {
		return nil, fmt.Errorf("wildberries statistics base url required")
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		pricesBaseURL: pricesBase,
		statsBaseURL:  statsBase,
		logger:        logg,
	}, nil
}

// FetchCurrentPrice returns the live quote for one nm id.
func (c *Client) FetchCurrentPrice(ctx context.Context, account marketplace.Account, externalID int64) (*marketplace.PriceQuote, error) {
	quotes, err := c.FetchCurrentPrices(ctx, account, []int64{externalID})
	if err != nil {
		return nil, err
	}
	quote, ok := quotes[externalID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("wildberries: nm id %d not listed", externalID))
	}
	return &quote, nil
}

// FetchCurrentPrices loads quotes for the given nm ids, batching requests
// to the endpoint limit. Ids missing from the result are not listed.
func (c *Client) FetchCurrentPrices(ctx context.Context, account marketplace.Account, externalIDs []int64) (map[int64]marketplace.PriceQuote, error) {
	token, err := account.Token(enums.CapabilityPrices)
	if err != nil {
		return nil, err
	}

	quotes := make(map[int64]marketplace.PriceQuote, len(externalIDs))
	for start := 0; start < len(externalIDs); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		goods, err := c.fetchGoodsBatch(ctx, token, externalIDs[start:end])
		if err != nil {
			return nil, err
		}
		for _, good := range goods {
			if good.NmID == 0 {
				continue
			}
			quotes[good.NmID] = good.toQuote()
		}
	}
	return quotes, nil
}

// PushPrice sets the listed price of one nm id. Wildberries takes whole
// rubles; the price is rounded to the nearest integer.
func (c *Client) PushPrice(ctx context.Context, account marketplace.Account, externalID int64, newPrice decimal.Decimal) error {
	token, err := account.Token(enums.CapabilityPrices)
	if err != nil {
		return err
	}

	// The new price is the effective price the buyer should see, so any
	// standing seller discount is reset to zero alongside it. Omitting
	// the field would leave the old discount applied on top.
	payload := uploadTaskRequest{
		Data: []uploadTaskItem{{
			NmID:     externalID,
			Price:    newPrice.Round(0).IntPart(),
			Discount: 0,
		}},
	}
	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"nm_id": externalID,
		"price": payload.Data[0].Price,
	}), "wildberries push price")

	return marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		body, status, err := c.doJSON(ctx, http.MethodPost, c.pricesBaseURL+uploadTaskPath, token, payload)
		if err != nil {
			return err
		}
		return marketplace.ClassifyStatus(enums.MarketplaceWildberries, "upload task", status, body)
	})
}

// TestConnection pings the statistics host with the account key.
func (c *Client) TestConnection(ctx context.Context, account marketplace.Account) error {
	token, err := anyToken(account)
	if err != nil {
		return err
	}
	return marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsBaseURL+pingPath, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wildberries: build ping request")
		}
		req.Header.Set("Authorization", token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return marketplace.WrapTransport(enums.MarketplaceWildberries, "ping", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return marketplace.ClassifyStatus(enums.MarketplaceWildberries, "ping", resp.StatusCode, string(body))
	})
}

func (c *Client) fetchGoodsBatch(ctx context.Context, token string, nmIDs []int64) ([]wbGood, error) {
	payload := goodsFilterRequest{NmList: nmIDs}

	var goods []wbGood
	err := marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		body, status, err := c.doJSON(ctx, http.MethodPost, c.pricesBaseURL+goodsFilterPath, token, payload)
		if err != nil {
			return err
		}
		if err := marketplace.ClassifyStatus(enums.MarketplaceWildberries, "list goods", status, body); err != nil {
			return err
		}
		goods, err = parseGoods([]byte(body))
		return err
	})
	if err != nil {
		return nil, err
	}
	return goods, nil
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, payload any) (string, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wildberries: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wildberries: build request")
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, marketplace.WrapTransport(enums.MarketplaceWildberries, method+" "+url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, marketplace.WrapTransport(enums.MarketplaceWildberries, "read response", err)
	}
	return string(body), resp.StatusCode, nil
}

type goodsFilterRequest struct {
	NmList []int64 `json:"nmList"`
}

type uploadTaskRequest struct {
	Data []uploadTaskItem `json:"data"`
}

type uploadTaskItem struct {
	NmID     int64 `json:"nmID"`
	Price    int64 `json:"price"`
	Discount int   `json:"discount"`
}

type wbGood struct {
	NmID              int64    `json:"nmID"`
	Price             float64  `json:"price"`
	Discount          float64  `json:"discount"`
	PriceWithDiscount *float64 `json:"priceWithDiscount"`
	BasePrice         float64  `json:"basePrice"`
	Sizes             []wbSize `json:"sizes"`
}

type wbSize struct {
	Price             float64  `json:"price"`
	Discount          float64  `json:"discount"`
	PriceWithDiscount *float64 `json:"priceWithDiscount"`
	BasePrice         float64  `json:"basePrice"`
}

// toQuote resolves the price fields for one good. Root-level fields win;
// size-level fields fill the gaps for listings priced per size; when the
// API omits priceWithDiscount it is derived from price and discount.
func (g wbGood) toQuote() marketplace.PriceQuote {
	base := g.Price
	if base == 0 {
		base = g.BasePrice
	}
	discount := g.Discount
	effective := g.PriceWithDiscount

	if len(g.Sizes) > 0 {
		size := g.Sizes[0]
		if base == 0 {
			base = size.Price
		}
		if base == 0 {
			base = size.BasePrice
		}
		if discount == 0 {
			discount = size.Discount
		}
		if effective == nil {
			effective = size.PriceWithDiscount
		}
	}

	basePrice := decimal.NewFromFloat(base)
	discountPercent := decimal.NewFromFloat(discount)

	var effectivePrice decimal.Decimal
	if effective != nil {
		effectivePrice = decimal.NewFromFloat(*effective)
	} else {
		effectivePrice = basePrice.
			Mul(hundred.Sub(discountPercent)).
			Div(hundred).
			Round(2)
	}

	return marketplace.PriceQuote{
		ExternalID:      g.NmID,
		BasePrice:       basePrice,
		DiscountPercent: discountPercent,
		EffectivePrice:  effectivePrice,
	}
}

// parseGoods accepts the three response shapes the endpoint has shipped:
// {"data":{"listGoods":[...]}}, {"listGoods":[...]}, and a bare array.
func parseGoods(body []byte) ([]wbGood, error) {
	var envelope struct {
		Data *struct {
			ListGoods []wbGood `json:"listGoods"`
		} `json:"data"`
		ListGoods []wbGood `json:"listGoods"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Data != nil {
			return envelope.Data.ListGoods, nil
		}
		if envelope.ListGoods != nil {
			return envelope.ListGoods, nil
		}
	}

	var bare []wbGood
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "wildberries: unrecognized list goods response")
}

// anyToken prefers the prices key and falls back to the statistics key for
// the connectivity check.
func anyToken(account marketplace.Account) (string, error) {
	if token, err := account.Token(enums.CapabilityPrices); err == nil {
		return token, nil
	}
	if token, err := account.Token(enums.CapabilityStatistics); err == nil {
		return token, nil
	}
	return account.Token(enums.CapabilityReviews)
}
