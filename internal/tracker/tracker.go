// Package tracker is the live monitoring loop: it subscribes to log
// notifications for each configured wallet, classifies DEX transactions as
// they confirm, applies them to the ledger, and fans the enriched events
// out to Discord and WebSocket subscribers.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/b9b4ymiN/botwallet/internal/classify"
	"github.com/b9b4ymiN/botwallet/internal/config"
	"github.com/b9b4ymiN/botwallet/internal/dex"
	"github.com/b9b4ymiN/botwallet/internal/ledger"
	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/notify"
	"github.com/b9b4ymiN/botwallet/internal/retry"
	"github.com/b9b4ymiN/botwallet/internal/solana"
	"github.com/b9b4ymiN/botwallet/internal/token"
)

// seenCap bounds the in-memory signature dedup set. Notifications can
// arrive more than once per signature when a wallet appears in several
// subscriptions.
const seenCap = 10000

// Subscriber is the log-stream capability the tracker consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, address string, handle func(solana.LogEvent)) error
}

// TokenPriceSource answers the current USD price of a mint (DexScreener).
// It marks snapshots and backstops trades whose own legs yield no price.
type TokenPriceSource interface {
	TokenUsd(ctx context.Context, mint string) (decimal.Decimal, bool)
}

// Tracker watches a set of wallets and turns their confirmed DEX
// transactions into ledger updates and notifications.
type Tracker struct {
	chain       solana.ChainClient
	subscriber  Subscriber
	resolver    token.Resolver
	oracle      classify.NativeUsdSource
	tokenPrices TokenPriceSource
	ledger      *ledger.Ledger
	hub         *notify.Hub
	notifier    notify.Notifier
	overrides   map[string]notify.Notifier // per-wallet webhook overrides
	wallets     []config.WalletConfig
	policy      retry.Policy

	enrichHoldings bool
	enrichPnl      bool

	mu   sync.Mutex
	seen map[string]struct{}

	logger *slog.Logger
}

// New wires a tracker for the configured wallets. notifier is the default
// sink; wallets carrying their own webhook URL get a dedicated one.
func New(cfg *config.Config, wallets []config.WalletConfig, chain solana.ChainClient, sub Subscriber,
	resolver token.Resolver, oracle classify.NativeUsdSource, tokenPrices TokenPriceSource,
	led *ledger.Ledger, hub *notify.Hub, notifier notify.Notifier, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	overrides := make(map[string]notify.Notifier)
	for _, w := range wallets {
		if w.Webhook == "" {
			continue
		}
		n, err := notify.NewDiscordNotifier(w.Webhook, logger)
		if err != nil {
			logger.Warn("wallet webhook ignored", "wallet", w.Address, "err", err)
			continue
		}
		overrides[w.Address] = n
	}

	return &Tracker{
		chain:          chain,
		subscriber:     sub,
		resolver:       resolver,
		oracle:         oracle,
		tokenPrices:    tokenPrices,
		ledger:         led,
		hub:            hub,
		notifier:       notifier,
		overrides:      overrides,
		wallets:        wallets,
		policy:         retry.DefaultPolicy(),
		enrichHoldings: cfg.EnrichHoldings,
		enrichPnl:      cfg.EnrichPnl,
		seen:           make(map[string]struct{}),
		logger:         logger,
	}
}

// Run blocks until the context is cancelled, holding one subscription per
// wallet and reconnecting with capped backoff when a stream drops.
func (t *Tracker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range t.wallets {
		w := w
		g.Go(func() error {
			return t.watch(ctx, w)
		})
	}
	return g.Wait()
}

func (t *Tracker) watch(ctx context.Context, wallet config.WalletConfig) error {
	backoff := time.Second
	for {
		t.logger.Info("subscribing to wallet logs", "wallet", wallet.Address, "name", wallet.Name)
		err := t.subscriber.Subscribe(ctx, wallet.Address, func(ev solana.LogEvent) {
			t.handleLog(ctx, wallet, ev)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			t.logger.Warn("log subscription dropped", "wallet", wallet.Address, "err", err)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (t *Tracker) handleLog(ctx context.Context, wallet config.WalletConfig, ev solana.LogEvent) {
	if ev.Err != nil {
		return // failed transaction, nothing hit the ledger
	}
	if !t.markSeen(ev.Signature) {
		return
	}
	if _, err := t.ProcessSignature(ctx, wallet, ev.Signature); err != nil {
		t.logger.Warn("transaction processing failed", "wallet", wallet.Address, "signature", ev.Signature, "err", err)
	}
}

// markSeen records the signature, reporting whether it was new. The set is
// cleared wholesale at capacity; a rare duplicate replay is harmless
// because ledger updates for live trades are cheap and the window is tiny.
func (t *Tracker) markSeen(signature string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[signature]; ok {
		return false
	}
	if len(t.seen) >= seenCap {
		t.seen = make(map[string]struct{})
	}
	t.seen[signature] = struct{}{}
	return true
}

// ProcessSignature fetches, classifies, and applies one confirmed
// transaction. Returns nil without error for transactions that are not
// wallet trades (no DEX program, no balance movement).
func (t *Tracker) ProcessSignature(ctx context.Context, wallet config.WalletConfig, signature string) (*model.TradeEvent, error) {
	tx, err := retry.Do(ctx, t.policy, "transaction", func(ctx context.Context) (*solana.Transaction, error) {
		return t.chain.GetTransaction(ctx, signature)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", signature, err)
	}
	if tx == nil || tx.Failed() {
		return nil, nil
	}

	program := dex.FirstProgram(tx.AccountKeys)
	if program == "" {
		return nil, nil // plain transfer or unrelated program
	}

	trade := classify.AnalyzeTrade(ctx, tx.Meta, tx.AccountKeys, wallet.Address, t.resolver)
	if trade.Empty() {
		return nil, nil
	}
	mode := classify.DetermineMode(trade.TokenIn, trade.TokenOut)
	priceUsd := classify.TradePrice(ctx, mode, trade, t.oracle)

	traded, qty := tradedLeg(mode, trade)
	event := &model.TradeEvent{
		ID:            uuid.New().String(),
		Signature:     signature,
		WalletAddress: wallet.Address,
		WalletName:    wallet.Name,
		DEX:           dex.Name(program),
		Mode:          mode,
		TokenIn:       trade.TokenIn,
		TokenOut:      trade.TokenOut,
		QtyIn:         trade.QtyIn,
		QtyOut:        trade.QtyOut,
		PriceUsd:      priceUsd,
		Timestamp:     time.Now().UTC(),
	}

	if traded != nil {
		// Current market price of the traded token: marks the snapshot
		// and backstops trades whose own legs price nothing (e.g. SOL
		// leg with the oracle down).
		current := t.currentPrice(ctx, traded)
		ref := priceUsd
		if ref == nil {
			ref = current
			event.PriceUsd = ref
		}

		instrument := model.InstrumentKey(traded.Address, traded.Symbol)
		pos := t.ledger.Update(ctx, wallet.Address, instrument, mode, qty, ref)

		if t.enrichPnl {
			holding := qty
			if t.enrichHoldings {
				holding = t.holdingQty(ctx, wallet.Address, traded)
			}
			mark := current
			if mark == nil {
				mark = ref
			}
			snap := ledger.Snapshot(&pos, holding, mark)
			event.Snapshot = &snap
		}
	}

	t.logger.Info("trade tracked",
		"wallet", wallet.Address,
		"signature", signature,
		"dex", event.DEX,
		"mode", string(mode),
	)

	t.dispatch(ctx, wallet, *event)
	return event, nil
}

// tradedLeg picks the token the trade is about: the non-cash leg on the
// side the mode implies. A SWAP keeps its incoming leg for reporting but
// the ledger treats it as a no-op anyway.
func tradedLeg(mode model.TradeMode, trade model.ClassifiedTrade) (*model.TokenInfo, decimal.Decimal) {
	switch mode {
	case model.ModeBuy:
		return trade.TokenIn, trade.QtyIn
	case model.ModeSell:
		return trade.TokenOut, trade.QtyOut
	default:
		if trade.TokenIn != nil {
			return trade.TokenIn, trade.QtyIn
		}
		return trade.TokenOut, trade.QtyOut
	}
}

// currentPrice resolves the traded token's current USD price: the native
// oracle for SOL, DexScreener for everything else. nil means unknown.
func (t *Tracker) currentPrice(ctx context.Context, tok *model.TokenInfo) *decimal.Decimal {
	if tok.Symbol == model.NativeSymbol {
		if v, ok := t.oracle.NativeUsd(ctx); ok {
			return &v
		}
		return nil
	}
	if t.tokenPrices == nil {
		return nil
	}
	if v, ok := t.tokenPrices.TokenUsd(ctx, tok.Address); ok {
		return &v
	}
	return nil
}

// holdingQty reads the wallet's current balance of the token so snapshots
// mark the whole holding, not just the traded amount. Falls back to zero
// on lookup failure rather than blocking the event.
func (t *Tracker) holdingQty(ctx context.Context, owner string, tok *model.TokenInfo) decimal.Decimal {
	if tok.Symbol == model.NativeSymbol {
		lamports, err := t.chain.GetBalance(ctx, owner)
		if err != nil {
			t.logger.Warn("balance lookup failed", "wallet", owner, "err", err)
			return decimal.Zero
		}
		return decimal.NewFromInt(lamports).Div(decimal.NewFromInt(model.LamportsPerSol))
	}

	accounts, err := t.chain.GetTokenAccountsByOwner(ctx, owner, tok.Address)
	if err != nil {
		t.logger.Warn("token accounts lookup failed", "wallet", owner, "mint", tok.Address, "err", err)
		return decimal.Zero
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(decimal.NewFromFloat(a.UIAmount))
	}
	return total
}

func (t *Tracker) dispatch(ctx context.Context, wallet config.WalletConfig, event model.TradeEvent) {
	if t.hub != nil {
		t.hub.Broadcast(event)
	}

	n := t.notifier
	if override, ok := t.overrides[wallet.Address]; ok {
		n = override
	}
	if err := n.Notify(ctx, event); err != nil {
		t.logger.Warn("notification failed", "wallet", wallet.Address, "signature", event.Signature, "err", err)
	}
}
