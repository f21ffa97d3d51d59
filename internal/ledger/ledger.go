// Package ledger maintains the weighted-average-cost position ledger.
//
// Positions are mutated only through Update. The durable store is
// authoritative; the in-process cache in front of it is advisory and exists
// so a store outage degrades the tracker to memory-only operation instead
// of halting it.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/metrics"
	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/store"
)

var hundred = decimal.NewFromInt(100)

// positionCache is the advisory in-memory layer. Its lifecycle is owned by
// the Ledger that created it: one per Ledger, discarded with it, so tests
// get isolation for free by constructing fresh ledgers.
type positionCache struct {
	mu        sync.RWMutex
	positions map[string]model.Position
}

func newPositionCache() *positionCache {
	return &positionCache{positions: make(map[string]model.Position)}
}

func (c *positionCache) get(wallet, instrument string) (model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[wallet+"|"+instrument]
	return p, ok
}

func (c *positionCache) put(wallet, instrument string, p model.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[wallet+"|"+instrument] = p
}

// Ledger applies classified trades to per-(wallet, instrument) positions.
type Ledger struct {
	store  store.Store
	cache  *positionCache
	logger *slog.Logger
	now    func() time.Time
}

// New creates a ledger over the given store with a fresh advisory cache.
func New(st store.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  st,
		cache:  newPositionCache(),
		logger: logger,
		now:    time.Now,
	}
}

// Position returns the current position, or nil when none exists. Cache
// first; the store is re-read on a miss. A store failure degrades to the
// cache rather than surfacing an error.
func (l *Ledger) Position(ctx context.Context, wallet, instrument string) *model.Position {
	if p, ok := l.cache.get(wallet, instrument); ok {
		return &p
	}
	p, err := l.store.GetPosition(ctx, wallet, instrument)
	if err != nil {
		l.logger.Warn("position load failed, store degraded", "wallet", wallet, "instrument", instrument, "err", err)
		metrics.StoreDegradations.Inc()
		return nil
	}
	if p != nil {
		l.cache.put(wallet, instrument, *p)
	}
	return p
}

// Update applies one trade to the position and persists it. Never returns
// an error: persistence failure degrades to in-memory-only operation for
// this process lifetime, logged as a warning.
//
// BUY adds quantity and (when a price is known) cost. SELL removes
// quantity clamped at the held amount for cost purposes, but books
// proceeds on the full sell quantity so tracking that starts mid-history
// does not under-count realized PnL. SWAP only touches the timestamp.
func (l *Ledger) Update(ctx context.Context, wallet, instrument string, side model.TradeMode, tokenAmount decimal.Decimal, refPriceUsd *decimal.Decimal) model.Position {
	pos := model.Position{
		Qty:            decimal.Zero,
		CostUsd:        decimal.Zero,
		AvgEntryUsd:    decimal.Zero,
		RealizedPnlUsd: decimal.Zero,
	}
	if cur := l.Position(ctx, wallet, instrument); cur != nil {
		pos = *cur
	}

	switch side {
	case model.ModeBuy:
		pos.Qty = pos.Qty.Add(tokenAmount)
		if refPriceUsd != nil {
			pos.CostUsd = pos.CostUsd.Add(tokenAmount.Mul(*refPriceUsd))
		}
		pos.AvgEntryUsd = recomputeAvgEntry(pos)

	case model.ModeSell:
		sellQty := tokenAmount
		matched := decimal.Min(sellQty, pos.Qty)
		costPortion := matched.Mul(pos.AvgEntryUsd)

		pos.Qty = decimal.Max(decimal.Zero, pos.Qty.Sub(sellQty))
		pos.CostUsd = decimal.Max(decimal.Zero, pos.CostUsd.Sub(costPortion))
		pos.AvgEntryUsd = recomputeAvgEntry(pos)
		if refPriceUsd != nil {
			proceeds := sellQty.Mul(*refPriceUsd)
			pos.RealizedPnlUsd = pos.RealizedPnlUsd.Add(proceeds.Sub(costPortion))
		}

	default:
		// SWAP is ambiguous: two non-cash legs would fabricate a cost
		// basis, so only the timestamp moves.
	}

	pos.UpdatedAt = l.now().UTC()
	l.persist(ctx, wallet, instrument, pos)
	metrics.TradesProcessed.WithLabelValues(string(side)).Inc()
	return pos
}

// avgEntry is recomputed only while a priced position is open; otherwise
// the last known entry reference is retained until a new priced buy.
func recomputeAvgEntry(pos model.Position) decimal.Decimal {
	if pos.Qty.IsPositive() && pos.CostUsd.IsPositive() {
		return pos.CostUsd.Div(pos.Qty)
	}
	return pos.AvgEntryUsd
}

func (l *Ledger) persist(ctx context.Context, wallet, instrument string, pos model.Position) {
	l.cache.put(wallet, instrument, pos)
	if err := l.store.SetPosition(ctx, wallet, instrument, pos); err != nil {
		l.logger.Warn("position save failed, store degraded", "wallet", wallet, "instrument", instrument, "err", err)
		metrics.StoreDegradations.Inc()
	}
}

// Snapshot derives a read-only PnL view of a position marked at the given
// price. A nil position yields a holdings-only snapshot; a nil price leaves
// every USD field absent rather than fabricating values.
func Snapshot(pos *model.Position, holdingQty decimal.Decimal, currentPriceUsd *decimal.Decimal) model.PnlSnapshot {
	snap := model.PnlSnapshot{HoldingQty: holdingQty}
	if pos == nil {
		if currentPriceUsd != nil {
			v := holdingQty.Mul(*currentPriceUsd)
			snap.HoldingValueUsd = &v
		}
		return snap
	}

	if currentPriceUsd != nil {
		v := holdingQty.Mul(*currentPriceUsd)
		snap.HoldingValueUsd = &v

		if avg := pos.AvgEntryUsd; avg.IsPositive() {
			snap.AvgEntryUsd = &avg
			diff := currentPriceUsd.Sub(avg)
			unrealized := holdingQty.Mul(diff)
			pct := diff.Div(avg).Mul(hundred)
			snap.UnrealizedPnlUsd = &unrealized
			snap.UnrealizedPnlPct = &pct
		}
	}

	realized := pos.RealizedPnlUsd
	snap.RealizedPnlUsd = &realized
	return snap
}
