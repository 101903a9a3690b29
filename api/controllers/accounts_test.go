package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	marketplacesvc "github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
)

type stubMarketplaceService struct {
	created     *marketplacesvc.CreateAccountInput
	credentials map[enums.Capability]string
	tested      int
	err         error
}

func (s *stubMarketplaceService) CreateAccount(_ context.Context, input marketplacesvc.CreateAccountInput) (*marketplacesvc.AccountDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return &marketplacesvc.AccountDTO{ID: uuid.New(), Marketplace: string(input.Marketplace), AccountName: input.AccountName}, nil
}

func (s *stubMarketplaceService) UpdateAccount(context.Context, enums.MarketplaceType, string, marketplacesvc.UpdateAccountInput) (*marketplacesvc.AccountDTO, error) {
	return &marketplacesvc.AccountDTO{}, s.err
}

func (s *stubMarketplaceService) DeleteAccount(context.Context, enums.MarketplaceType, string) error {
	return s.err
}

func (s *stubMarketplaceService) GetAccount(context.Context, enums.MarketplaceType, string) (*marketplacesvc.AccountDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &marketplacesvc.AccountDTO{}, nil
}

func (s *stubMarketplaceService) ListAccounts(context.Context, enums.MarketplaceType) ([]marketplacesvc.AccountDTO, error) {
	return []marketplacesvc.AccountDTO{}, s.err
}

func (s *stubMarketplaceService) ActiveAccountsWithCapability(context.Context, enums.Capability) ([]marketplacesvc.Account, error) {
	return nil, s.err
}

func (s *stubMarketplaceService) SetCredential(_ context.Context, _ enums.MarketplaceType, _ string, capability enums.Capability, token string) error {
	if s.err != nil {
		return s.err
	}
	if s.credentials == nil {
		s.credentials = map[enums.Capability]string{}
	}
	s.credentials[capability] = token
	return nil
}

func (s *stubMarketplaceService) RemoveCredential(_ context.Context, _ enums.MarketplaceType, _ string, capability enums.Capability) error {
	if s.err != nil {
		return s.err
	}
	delete(s.credentials, capability)
	return nil
}

func (s *stubMarketplaceService) TestConnection(context.Context, enums.MarketplaceType, string) error {
	s.tested++
	return s.err
}

func (s *stubMarketplaceService) ResolveAccount(context.Context, enums.MarketplaceType, string) (marketplacesvc.Account, error) {
	return marketplacesvc.Account{}, s.err
}

func (s *stubMarketplaceService) MarkSync(context.Context, uuid.UUID, time.Time, enums.SyncStatus) error {
	return s.err
}

func TestAccountCreate(t *testing.T) {
	logg := newControllerLogger()

	t.Run("success with credentials", func(t *testing.T) {
		svc := &stubMarketplaceService{}
		body := `{"marketplace":"wildberries","accountName":"  main  ","credentials":{"prices":"wb-token"}}`
		rec := httptest.NewRecorder()
		AccountCreate(svc, logg).ServeHTTP(rec, routeRequest(http.MethodPost, "/api/v1/accounts", body, nil))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
		}
		if svc.created == nil {
			t.Fatalf("expected create call")
		}
		if svc.created.AccountName != "main" {
			t.Fatalf("expected trimmed account name, got %q", svc.created.AccountName)
		}
		if !svc.created.IsActive {
			t.Fatalf("expected accounts to default to active")
		}
		if svc.created.Credentials[enums.CapabilityPrices] != "wb-token" {
			t.Fatalf("unexpected credentials %v", svc.created.Credentials)
		}
	})

	t.Run("unknown marketplace", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AccountCreate(&stubMarketplaceService{}, logg).ServeHTTP(rec,
			routeRequest(http.MethodPost, "/api/v1/accounts", `{"marketplace":"amazon","accountName":"main"}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown capability", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AccountCreate(&stubMarketplaceService{}, logg).ServeHTTP(rec,
			routeRequest(http.MethodPost, "/api/v1/accounts", `{"marketplace":"ozon","accountName":"main","credentials":{"shipping":"x"}}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCredentialSet(t *testing.T) {
	logg := newControllerLogger()
	params := map[string]string{"marketplace": "wildberries", "accountName": "main", "capability": "statistics"}

	t.Run("stores token", func(t *testing.T) {
		svc := &stubMarketplaceService{}
		rec := httptest.NewRecorder()
		req := routeRequest(http.MethodPut, "/api/v1/accounts/wildberries/main/credentials/statistics", `{"token":"stat-token"}`, params)
		CredentialSet(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
		}
		if svc.credentials[enums.CapabilityStatistics] != "stat-token" {
			t.Fatalf("unexpected credentials %v", svc.credentials)
		}
	})

	t.Run("token required", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := routeRequest(http.MethodPut, "/api/v1/accounts/wildberries/main/credentials/statistics", `{}`, params)
		CredentialSet(&stubMarketplaceService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bad capability in route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		badParams := map[string]string{"marketplace": "wildberries", "accountName": "main", "capability": "shipping"}
		req := routeRequest(http.MethodPut, "/api/v1/accounts/wildberries/main/credentials/shipping", `{"token":"x"}`, badParams)
		CredentialSet(&stubMarketplaceService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountTestConnection(t *testing.T) {
	logg := newControllerLogger()
	params := map[string]string{"marketplace": "ozon", "accountName": "main"}

	t.Run("connected", func(t *testing.T) {
		svc := &stubMarketplaceService{}
		rec := httptest.NewRecorder()
		req := routeRequest(http.MethodPost, "/api/v1/accounts/ozon/main/test-connection", "", params)
		AccountTestConnection(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.tested != 1 {
			t.Fatalf("expected one connection test, got %d", svc.tested)
		}
	})

	t.Run("scope error surfaces as forbidden", func(t *testing.T) {
		svc := &stubMarketplaceService{err: pkgerrors.New(pkgerrors.CodeCapability, "api key lacks the required scope")}
		rec := httptest.NewRecorder()
		req := routeRequest(http.MethodPost, "/api/v1/accounts/ozon/main/test-connection", "", params)
		AccountTestConnection(svc, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
