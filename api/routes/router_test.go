package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/velesmarket/backend/internal/cart"
	marketplacesvc "github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/internal/pricing"
	productsvc "github.com/velesmarket/backend/internal/products"
	reconcilesvc "github.com/velesmarket/backend/internal/reconcile"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/db/models"
	"github.com/velesmarket/backend/pkg/enums"
	"github.com/velesmarket/backend/pkg/logger"
	"github.com/velesmarket/backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubProductService struct{}

func (stubProductService) CreateProduct(context.Context, productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{ID: uuid.New()}, nil
}

func (stubProductService) UpdateProduct(context.Context, uuid.UUID, productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) DeleteProduct(context.Context, uuid.UUID) error {
	return nil
}

func (stubProductService) GetProduct(context.Context, uuid.UUID) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) ListProducts(context.Context, pagination.Params) (*productsvc.ProductPage, error) {
	return &productsvc.ProductPage{Items: []productsvc.ProductDTO{}}, nil
}

func (stubProductService) SetAutoPrice(context.Context, uuid.UUID, bool) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) AddLine(context.Context, string, uuid.UUID, int) (*pricing.OrderPricingSnapshot, error) {
	return &pricing.OrderPricingSnapshot{}, nil
}

func (stubCartService) SetQuantity(context.Context, string, uuid.UUID, int) (*pricing.OrderPricingSnapshot, error) {
	return &pricing.OrderPricingSnapshot{}, nil
}

func (stubCartService) RemoveLine(context.Context, string, uuid.UUID) (*pricing.OrderPricingSnapshot, error) {
	return &pricing.OrderPricingSnapshot{}, nil
}

func (stubCartService) ClearSession(context.Context, string) error {
	return nil
}

func (stubCartService) Quote(context.Context, string) (*pricing.OrderPricingSnapshot, error) {
	return &pricing.OrderPricingSnapshot{}, nil
}

func (stubCartService) QuoteLines(context.Context, []cartsvc.QuoteLineInput) (*pricing.OrderPricingSnapshot, error) {
	return &pricing.OrderPricingSnapshot{}, nil
}

type stubSettingsService struct{}

func (stubSettingsService) OrderMinimums(context.Context) (pricing.OrderMinimums, error) {
	return pricing.OrderMinimums{}, nil
}

func (stubSettingsService) SetOrderMinimums(context.Context, pricing.OrderMinimums) error {
	return nil
}

func (stubSettingsService) GradationRules(context.Context) ([]models.GradationRule, error) {
	return []models.GradationRule{}, nil
}

func (stubSettingsService) ReplaceGradationRules(context.Context, []models.GradationRule) error {
	return nil
}

type stubMarketplaceService struct{}

func (stubMarketplaceService) CreateAccount(context.Context, marketplacesvc.CreateAccountInput) (*marketplacesvc.AccountDTO, error) {
	return &marketplacesvc.AccountDTO{}, nil
}

func (stubMarketplaceService) UpdateAccount(context.Context, enums.MarketplaceType, string, marketplacesvc.UpdateAccountInput) (*marketplacesvc.AccountDTO, error) {
	return &marketplacesvc.AccountDTO{}, nil
}

func (stubMarketplaceService) DeleteAccount(context.Context, enums.MarketplaceType, string) error {
	return nil
}

func (stubMarketplaceService) GetAccount(context.Context, enums.MarketplaceType, string) (*marketplacesvc.AccountDTO, error) {
	return &marketplacesvc.AccountDTO{}, nil
}

func (stubMarketplaceService) ListAccounts(context.Context, enums.MarketplaceType) ([]marketplacesvc.AccountDTO, error) {
	return []marketplacesvc.AccountDTO{}, nil
}

func (stubMarketplaceService) ActiveAccountsWithCapability(context.Context, enums.Capability) ([]marketplacesvc.Account, error) {
	return nil, nil
}

func (stubMarketplaceService) SetCredential(context.Context, enums.MarketplaceType, string, enums.Capability, string) error {
	return nil
}

func (stubMarketplaceService) RemoveCredential(context.Context, enums.MarketplaceType, string, enums.Capability) error {
	return nil
}

func (stubMarketplaceService) TestConnection(context.Context, enums.MarketplaceType, string) error {
	return nil
}

func (stubMarketplaceService) ResolveAccount(context.Context, enums.MarketplaceType, string) (marketplacesvc.Account, error) {
	return marketplacesvc.Account{}, nil
}

func (stubMarketplaceService) MarkSync(context.Context, uuid.UUID, time.Time, enums.SyncStatus) error {
	return nil
}

type stubReconcileService struct{}

func (stubReconcileService) CheckPrices(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*reconcilesvc.CheckReport, error) {
	return &reconcilesvc.CheckReport{Marketplace: marketplace.String(), AccountName: accountName}, nil
}

func (stubReconcileService) LatestReport(ctx context.Context, marketplace enums.MarketplaceType, accountName string) (*reconcilesvc.CheckReport, error) {
	return &reconcilesvc.CheckReport{Marketplace: marketplace.String(), AccountName: accountName}, nil
}

func (stubReconcileService) UpdatePrices(context.Context, enums.MarketplaceType, string, []reconcilesvc.PriceUpdate) (*reconcilesvc.UpdateReport, error) {
	return &reconcilesvc.UpdateReport{}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, stubPinger{}, Services{
		Products:    stubProductService{},
		Cart:        stubCartService{},
		Settings:    stubSettingsService{},
		Marketplace: stubMarketplaceService{},
		Reconcile:   stubReconcileService{},
	})
}

func TestRouterRouteWiring(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		sessionID  string
		wantStatus int
	}{
		{name: "health live", method: http.MethodGet, path: "/health/live", wantStatus: http.StatusOK},
		{name: "health ready", method: http.MethodGet, path: "/health/ready", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "public ping", method: http.MethodGet, path: "/api/public/ping", wantStatus: http.StatusOK},
		{name: "product list", method: http.MethodGet, path: "/api/v1/products", wantStatus: http.StatusOK},
		{name: "stateless quote needs no session", method: http.MethodPost, path: "/api/v1/cart/quote",
			body:       `{"lines":[{"productId":"` + uuid.NewString() + `","quantity":2}]}`,
			wantStatus: http.StatusOK},
		{name: "cart fetch without session rejected", method: http.MethodGet, path: "/api/v1/cart",
			wantStatus: http.StatusBadRequest},
		{name: "cart fetch with session", method: http.MethodGet, path: "/api/v1/cart",
			sessionID: "session-1", wantStatus: http.StatusOK},
		{name: "order minimums", method: http.MethodGet, path: "/api/v1/settings/order-minimums", wantStatus: http.StatusOK},
		{name: "account list", method: http.MethodGet, path: "/api/v1/accounts", wantStatus: http.StatusOK},
		{name: "account list bad filter", method: http.MethodGet, path: "/api/v1/accounts?marketplace=amazon",
			wantStatus: http.StatusBadRequest},
		{name: "price check run", method: http.MethodPost, path: "/api/v1/price-checks/wildberries/main", wantStatus: http.StatusOK},
		{name: "price check invalid marketplace", method: http.MethodPost, path: "/api/v1/price-checks/amazon/main",
			wantStatus: http.StatusBadRequest},
		{name: "latest report", method: http.MethodGet, path: "/api/v1/price-checks/ozon/main/latest", wantStatus: http.StatusOK},
		{name: "price update", method: http.MethodPost, path: "/api/v1/price-updates/ozon/main",
			body:       `{"updates":[{"externalId":123,"newPrice":499.9}]}`,
			wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.sessionID != "" {
				req.Header.Set("X-Session-Id", tc.sessionID)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("%s %s: expected status %d, got %d (body %s)", tc.method, tc.path, tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
