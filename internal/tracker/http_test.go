package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/config"
	"github.com/b9b4ymiN/botwallet/internal/ledger"
	"github.com/b9b4ymiN/botwallet/internal/store"
)

func newTestServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	st := store.NewMemoryStore()
	led := ledger.New(st, nil)
	wallets := []config.WalletConfig{{Address: walletAddr, Name: "whale-1"}}
	return NewServer(st, led, nil, wallets, nil), led
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api/v1", s.Routes)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListWallets(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/v1/wallets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []walletSummary
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Name != "whale-1" {
		t.Fatalf("wallets = %+v", out)
	}
}

func TestGetPortfolioAggregates(t *testing.T) {
	s, led := newTestServer(t)
	ctx := context.Background()

	price1 := decimal.NewFromInt(1)
	price2 := decimal.NewFromInt(2)
	led.Update(ctx, walletAddr, wifMint, "BUY", decimal.NewFromInt(100), &price1)
	led.Update(ctx, walletAddr, wifMint, "SELL", decimal.NewFromInt(50), &price2)

	rec := serve(s, http.MethodGet, "/api/v1/portfolio/"+walletAddr, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out portfolioResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Positions) != 1 {
		t.Fatalf("positions = %+v", out.Positions)
	}
	if !out.RealizedPnlUsd.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("realized = %s, want 50", out.RealizedPnlUsd)
	}
	if !out.OpenCostBasisUsd.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("open basis = %s, want 50", out.OpenCostBasisUsd)
	}
}

func TestGetPortfolioEmptyWallet(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/v1/portfolio/unknown-wallet", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out portfolioResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Positions) != 0 {
		t.Fatalf("expected empty portfolio, got %+v", out.Positions)
	}
}

func TestGetPositionWithMarkPrice(t *testing.T) {
	s, led := newTestServer(t)
	ctx := context.Background()

	price := decimal.NewFromInt(1)
	led.Update(ctx, walletAddr, wifMint, "BUY", decimal.NewFromInt(100), &price)

	rec := serve(s, http.MethodGet, "/api/v1/positions/"+walletAddr+"/"+wifMint+"?price_usd=1.5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		Snapshot struct {
			UnrealizedPnlUsd *decimal.Decimal `json:"unrealized_pnl_usd"`
		} `json:"snapshot"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Snapshot.UnrealizedPnlUsd == nil || !out.Snapshot.UnrealizedPnlUsd.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unrealized = %v, want 50", out.Snapshot.UnrealizedPnlUsd)
	}
}

func TestGetPositionNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/v1/positions/"+walletAddr+"/"+wifMint, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetPositionRejectsBadPrice(t *testing.T) {
	s, led := newTestServer(t)
	price := decimal.NewFromInt(1)
	led.Update(context.Background(), walletAddr, wifMint, "BUY", decimal.NewFromInt(1), &price)

	rec := serve(s, http.MethodGet, "/api/v1/positions/"+walletAddr+"/"+wifMint+"?price_usd=-3", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTriggerBackfillValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, http.MethodPost, "/api/v1/backfill", `{"wallet":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	// No reconciler wired in this server.
	rec = serve(s, http.MethodPost, "/api/v1/backfill", `{"wallet":"w","mint":"m"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
