package ozon

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
	pricesInfoPath   = "/v5/product/info/prices"
	pricesImportPath = "/v1/product/import/prices"
	productListPath  = "/v3/product/list"

	// The prices info endpoint accepts at most 1000 product ids per request.
	fetchBatchSize = 1000
)

var hundred = decimal.NewFromInt(100)

// Client talks to the Ozon Seller API. Every call authenticates with the
// Client-Id and Api-Key header pair; prices travel as strings on the wire.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient validates configuration and builds the adapter.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("ozon logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OzonBaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ozon base url required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

// FetchCurrentPrice returns the live quote for one product id.
func (c *Client) FetchCurrentPrice(ctx context.Context, account marketplace.Account, externalID int64) (*marketplace.PriceQuote, error) {
	quotes, err := c.FetchCurrentPrices(ctx, account, []int64{externalID})
	if err != nil {
		return nil, err
	}
	quote, ok := quotes[externalID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("ozon: product %d not listed", externalID))
	}
	return &quote, nil
}

// FetchCurrentPrices loads quotes for the given product ids, batching
// requests to the endpoint limit. Ids missing from the result are not
// listed.
func (c *Client) FetchCurrentPrices(ctx context.Context, account marketplace.Account, externalIDs []int64) (map[int64]marketplace.PriceQuote, error) {
	apiKey, err := account.Token(enums.CapabilityPrices)
	if err != nil {
		return nil, err
	}
	if err := requireClientID(account); err != nil {
		return nil, err
	}

	quotes := make(map[int64]marketplace.PriceQuote, len(externalIDs))
	for start := 0; start < len(externalIDs); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		items, err := c.fetchPricesBatch(ctx, account.ClientID, apiKey, externalIDs[start:end])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			quote, ok := item.toQuote()
			if !ok {
				continue
			}
			quotes[item.ProductID] = quote
		}
	}
	return quotes, nil
}

// PushPrice sets the listed price of one product id.
func (c *Client) PushPrice(ctx context.Context, account marketplace.Account, externalID int64, newPrice decimal.Decimal) error {
	apiKey, err := account.Token(enums.CapabilityPrices)
	if err != nil {
		return err
	}
	if err := requireClientID(account); err != nil {
		return err
	}

	payload := importPricesRequest{
		Prices: []importPriceItem{{
			ProductID:    externalID,
			Price:        newPrice.StringFixed(2),
			CurrencyCode: "RUB",
		}},
	}
	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"product_id": externalID,
		"price":      payload.Prices[0].Price,
	}), "ozon push price")

	return marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		body, status, err := c.doJSON(ctx, account.ClientID, apiKey, c.baseURL+pricesImportPath, payload)
		if err != nil {
			return err
		}
		if err := marketplace.ClassifyStatus(enums.MarketplaceOzon, "import prices", status, body); err != nil {
			return err
		}
		return parseImportResult([]byte(body), externalID)
	})
}

// TestConnection lists a single product to verify the key pair.
func (c *Client) TestConnection(ctx context.Context, account marketplace.Account) error {
	apiKey, err := account.Token(enums.CapabilityPrices)
	if err != nil {
		return err
	}
	if err := requireClientID(account); err != nil {
		return err
	}

	payload := productListRequest{Limit: 1}
	return marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		body, status, err := c.doJSON(ctx, account.ClientID, apiKey, c.baseURL+productListPath, payload)
		if err != nil {
			return err
		}
		return marketplace.ClassifyStatus(enums.MarketplaceOzon, "product list", status, body)
	})
}

func (c *Client) fetchPricesBatch(ctx context.Context, clientID, apiKey string, productIDs []int64) ([]ozonPriceItem, error) {
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	payload := pricesInfoRequest{
		Filter: pricesInfoFilter{ProductID: ids, Visibility: "ALL"},
		Limit:  fetchBatchSize,
	}

	var items []ozonPriceItem
	err := marketplace.WithTransientRetry(ctx, func(ctx context.Context) error {
		body, status, err := c.doJSON(ctx, clientID, apiKey, c.baseURL+pricesInfoPath, payload)
		if err != nil {
			return err
		}
		if err := marketplace.ClassifyStatus(enums.MarketplaceOzon, "info prices", status, body); err != nil {
			return err
		}
		var response pricesInfoResponse
		if err := json.Unmarshal([]byte(body), &response); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ozon: decode info prices response")
		}
		items = response.Items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) doJSON(ctx context.Context, clientID, apiKey, url string, payload any) (string, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ozon: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ozon: build request")
	}
	req.Header.Set("Client-Id", clientID)
	req.Header.Set("Api-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, marketplace.WrapTransport(enums.MarketplaceOzon, "POST "+url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, marketplace.WrapTransport(enums.MarketplaceOzon, "read response", err)
	}
	return string(body), resp.StatusCode, nil
}

func requireClientID(account marketplace.Account) error {
	if strings.TrimSpace(account.ClientID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("ozon account %s has no client id", account.AccountName))
	}
	return nil
}

type productListRequest struct {
	Filter struct{} `json:"filter"`
	Limit  int      `json:"limit"`
}

type pricesInfoRequest struct {
	Filter pricesInfoFilter `json:"filter"`
	Limit  int              `json:"limit"`
	Cursor string           `json:"cursor,omitempty"`
}

type pricesInfoFilter struct {
	ProductID  []string `json:"product_id"`
	Visibility string   `json:"visibility"`
}

type pricesInfoResponse struct {
	Items []ozonPriceItem `json:"items"`
}

type ozonPriceItem struct {
	ProductID int64     `json:"product_id"`
	OfferID   string    `json:"offer_id"`
	Price     ozonPrice `json:"price"`
}

type ozonPrice struct {
	Price    string `json:"price"`
	OldPrice string `json:"old_price"`
}

// toQuote converts one wire item. price is the effective price the shopper
// pays; old_price, when higher, is the pre-discount base it is struck from.
func (item ozonPriceItem) toQuote() (marketplace.PriceQuote, bool) {
	effective, err := parsePrice(item.Price.Price)
	if err != nil || effective.IsZero() {
		return marketplace.PriceQuote{}, false
	}
	base, err := parsePrice(item.Price.OldPrice)
	if err != nil || base.LessThan(effective) {
		base = effective
	}

	discount := decimal.Zero
	if base.GreaterThan(effective) {
		discount = decimal.NewFromInt(1).
			Sub(effective.Div(base)).
			Mul(hundred).
			Round(2)
	}

	return marketplace.PriceQuote{
		ExternalID:      item.ProductID,
		BasePrice:       base,
		DiscountPercent: discount,
		EffectivePrice:  effective,
	}, true
}

func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

type importPricesRequest struct {
	Prices []importPriceItem `json:"prices"`
}

type importPriceItem struct {
	ProductID    int64  `json:"product_id"`
	Price        string `json:"price"`
	CurrencyCode string `json:"currency_code"`
}

type importPricesResponse struct {
	Result []struct {
		ProductID int64 `json:"product_id"`
		Updated   bool  `json:"updated"`
		Errors    []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// parseImportResult surfaces the per-item rejection Ozon reports inside a
// 200 response.
func parseImportResult(body []byte, productID int64) error {
	var response importPricesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ozon: decode import prices response")
	}
	for _, result := range response.Result {
		if result.ProductID != productID {
			continue
		}
		if len(result.Errors) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("ozon: import price rejected: %s: %s", result.Errors[0].Code, result.Errors[0].Message))
		}
		return nil
	}
	return nil
}
