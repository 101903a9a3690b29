package wildberries

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
)

func newTestClient(t *testing.T, pricesURL, statsURL string) *Client {
	t.Helper()
	cfg := config.MarketplaceConfig{
		RequestTimeout:           5 * time.Second,
		WildberriesPricesBaseURL: pricesURL,
		WildberriesStatsBaseURL:  statsURL,
	}
	client, err := NewClient(cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func testAccount() marketplace.Account {
	return marketplace.Account{
		Marketplace: enums.MarketplaceWildberries,
		AccountName: "main",
		Tokens: map[enums.Capability]string{
			enums.CapabilityPrices: "wb-prices-token",
		},
	}
}

func TestFetchCurrentPrices_EnvelopeFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != goodsFilterPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "wb-prices-token" {
			t.Errorf("authorization = %q", got)
		}
		var req goodsFilterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.NmList) != 2 {
			t.Errorf("nmList length = %d, want 2", len(req.NmList))
		}
		io.WriteString(w, `{"data":{"listGoods":[
			{"nmID":101,"price":1000,"discount":10,"priceWithDiscount":900},
			{"nmID":102,"price":500,"discount":20}
		]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	quotes, err := client.FetchCurrentPrices(context.Background(), testAccount(), []int64{101, 102})
	if err != nil {
		t.Fatalf("FetchCurrentPrices: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	if !quotes[101].EffectivePrice.Equal(decimal.NewFromInt(900)) {
		t.Errorf("nm 101 effective = %s, want 900", quotes[101].EffectivePrice)
	}
	// priceWithDiscount omitted: derived from price and discount.
	if !quotes[102].EffectivePrice.Equal(decimal.NewFromInt(400)) {
		t.Errorf("nm 102 effective = %s, want 400", quotes[102].EffectivePrice)
	}
	if !quotes[102].BasePrice.Equal(decimal.NewFromInt(500)) {
		t.Errorf("nm 102 base = %s, want 500", quotes[102].BasePrice)
	}
}

func TestFetchCurrentPrices_BareArrayAndSizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"nmID":7,"sizes":[{"price":250,"discount":10,"priceWithDiscount":225}]}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	quotes, err := client.FetchCurrentPrices(context.Background(), testAccount(), []int64{7})
	if err != nil {
		t.Fatalf("FetchCurrentPrices: %v", err)
	}
	quote, ok := quotes[7]
	if !ok {
		t.Fatal("nm 7 missing from quotes")
	}
	if !quote.BasePrice.Equal(decimal.NewFromInt(250)) {
		t.Errorf("base = %s, want 250", quote.BasePrice)
	}
	if !quote.EffectivePrice.Equal(decimal.NewFromInt(225)) {
		t.Errorf("effective = %s, want 225", quote.EffectivePrice)
	}
}

func TestFetchCurrentPrices_Batching(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		var req goodsFilterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.NmList) > fetchBatchSize {
			t.Errorf("batch size %d exceeds limit", len(req.NmList))
		}
		io.WriteString(w, `{"listGoods":[]}`)
	}))
	defer server.Close()

	ids := make([]int64, 1500)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	client := newTestClient(t, server.URL, server.URL)
	if _, err := client.FetchCurrentPrices(context.Background(), testAccount(), ids); err != nil {
		t.Fatalf("FetchCurrentPrices: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestFetchCurrentPrice_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"listGoods":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	_, err := client.FetchCurrentPrice(context.Background(), testAccount(), 404404)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestFetchCurrentPrices_ScopeDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"title":"unauthorized","detail":"token scope not allowed"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	_, err := client.FetchCurrentPrices(context.Background(), testAccount(), []int64{1})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeCapability {
		t.Fatalf("err = %v, want capability error", err)
	}
}

func TestFetchCurrentPrices_BadKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"title":"unauthorized"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	_, err := client.FetchCurrentPrices(context.Background(), testAccount(), []int64{1})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestFetchCurrentPrices_MissingCredential(t *testing.T) {
	client := newTestClient(t, "http://localhost:1", "http://localhost:1")
	account := marketplace.Account{
		Marketplace: enums.MarketplaceWildberries,
		AccountName: "main",
		Tokens:      map[enums.Capability]string{enums.CapabilityStatistics: "stats-only"},
	}
	_, err := client.FetchCurrentPrices(context.Background(), account, []int64{1})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeCapability {
		t.Fatalf("err = %v, want capability error", err)
	}
}

func TestFetchCurrentPrices_RetriesTransientOnce(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"listGoods":[{"nmID":5,"price":100,"priceWithDiscount":100}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	quotes, err := client.FetchCurrentPrices(context.Background(), testAccount(), []int64{5})
	if err != nil {
		t.Fatalf("FetchCurrentPrices: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestPushPrice_WholeRublesAndZeroDiscount(t *testing.T) {
	var captured struct {
		Data []map[string]json.Number `json:"data"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != uploadTaskPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	if err := client.PushPrice(context.Background(), testAccount(), 12345, decimal.RequireFromString("899.60")); err != nil {
		t.Fatalf("PushPrice: %v", err)
	}
	if len(captured.Data) != 1 {
		t.Fatalf("data length = %d, want 1", len(captured.Data))
	}
	item := captured.Data[0]
	if got := item["nmID"].String(); got != "12345" {
		t.Errorf("nmID = %s, want 12345", got)
	}
	if got := item["price"].String(); got != "900" {
		t.Errorf("price = %s, want 900", got)
	}
	// The pushed price is the effective one, so a standing seller
	// discount has to be reset explicitly or it compounds on top.
	discount, ok := item["discount"]
	if !ok {
		t.Fatal("discount key missing from upload payload")
	}
	if discount.String() != "0" {
		t.Errorf("discount = %s, want 0", discount.String())
	}
}

func TestTestConnection_Ping(t *testing.T) {
	stats := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pingPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "wb-prices-token" {
			t.Errorf("authorization = %q", got)
		}
		io.WriteString(w, `{"Status":"OK"}`)
	}))
	defer stats.Close()

	client := newTestClient(t, stats.URL, stats.URL)
	if err := client.TestConnection(context.Background(), testAccount()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
}
