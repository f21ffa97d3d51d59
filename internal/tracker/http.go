package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/backfill"
	"github.com/b9b4ymiN/botwallet/internal/config"
	"github.com/b9b4ymiN/botwallet/internal/ledger"
	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/store"
)

// Server exposes the read API over the tracked portfolios plus a backfill
// trigger.
type Server struct {
	store      store.Store
	ledger     *ledger.Ledger
	reconciler *backfill.Reconciler
	wallets    []config.WalletConfig
	logger     *slog.Logger
}

// NewServer creates the HTTP facade.
func NewServer(st store.Store, led *ledger.Ledger, rec *backfill.Reconciler, wallets []config.WalletConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, ledger: led, reconciler: rec, wallets: wallets, logger: logger}
}

// Routes registers the API under the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/wallets", s.ListWallets)
	r.Get("/portfolio/{wallet}", s.GetPortfolio)
	r.Get("/positions/{wallet}/{instrument}", s.GetPosition)
	r.Post("/backfill", s.TriggerBackfill)
}

// walletSummary is the public view of one tracked wallet.
type walletSummary struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// ListWallets handles GET /api/v1/wallets.
func (s *Server) ListWallets(w http.ResponseWriter, _ *http.Request) {
	out := make([]walletSummary, 0, len(s.wallets))
	for _, wc := range s.wallets {
		out = append(out, walletSummary{Address: wc.Address, Name: wc.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// portfolioResponse aggregates every open position of one wallet.
type portfolioResponse struct {
	Wallet           string                    `json:"wallet"`
	Positions        map[string]model.Position `json:"positions"`
	RealizedPnlUsd   decimal.Decimal           `json:"realized_pnl_usd"`
	OpenCostBasisUsd decimal.Decimal           `json:"open_cost_basis_usd"`
}

// GetPortfolio handles GET /api/v1/portfolio/{wallet}.
func (s *Server) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")

	positions, err := s.store.ListPositions(r.Context(), wallet)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = map[string]model.Position{}
	}

	resp := portfolioResponse{
		Wallet:           wallet,
		Positions:        positions,
		RealizedPnlUsd:   decimal.Zero,
		OpenCostBasisUsd: decimal.Zero,
	}
	for _, p := range positions {
		resp.RealizedPnlUsd = resp.RealizedPnlUsd.Add(p.RealizedPnlUsd)
		resp.OpenCostBasisUsd = resp.OpenCostBasisUsd.Add(p.CostUsd)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPosition handles GET /api/v1/positions/{wallet}/{instrument}.
// An optional ?price_usd= marks the position for unrealized PnL.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	instrument := chi.URLParam(r, "instrument")

	pos := s.ledger.Position(r.Context(), wallet, instrument)
	if pos == nil {
		writeError(w, "position not found", http.StatusNotFound)
		return
	}

	var markPrice *decimal.Decimal
	if raw := r.URL.Query().Get("price_usd"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil || !p.IsPositive() {
			writeError(w, "price_usd must be a positive decimal", http.StatusBadRequest)
			return
		}
		markPrice = &p
	}

	snap := ledger.Snapshot(pos, pos.Qty, markPrice)
	writeJSON(w, http.StatusOK, struct {
		Wallet     string            `json:"wallet"`
		Instrument string            `json:"instrument"`
		Position   model.Position    `json:"position"`
		Snapshot   model.PnlSnapshot `json:"snapshot"`
	}{wallet, instrument, *pos, snap})
}

// backfillRequest is the JSON body for POST /api/v1/backfill.
type backfillRequest struct {
	Wallet string `json:"wallet"`
	Mint   string `json:"mint"`
}

// TriggerBackfill handles POST /api/v1/backfill. The scan runs in the
// background; the response only acknowledges the request.
func (s *Server) TriggerBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Wallet == "" || req.Mint == "" {
		writeError(w, "wallet and mint are required", http.StatusBadRequest)
		return
	}
	if s.reconciler == nil {
		writeError(w, "backfill is not configured", http.StatusServiceUnavailable)
		return
	}

	// Detached from the request context: the scan outlives the response.
	go func() {
		if err := s.reconciler.Reconstruct(context.Background(), req.Wallet, req.Mint); err != nil {
			s.logger.Error("backfill failed", "wallet", req.Wallet, "mint", req.Mint, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "scheduled",
		"wallet": req.Wallet,
		"mint":   req.Mint,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
