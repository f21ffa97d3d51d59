// Package backfill replays historical trades for a (wallet, mint) pair so
// the position ledger reflects activity that predates the live tracker.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/b9b4ymiN/botwallet/internal/classify"
	"github.com/b9b4ymiN/botwallet/internal/ledger"
	"github.com/b9b4ymiN/botwallet/internal/metrics"
	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/retry"
	"github.com/b9b4ymiN/botwallet/internal/solana"
	"github.com/b9b4ymiN/botwallet/internal/store"
	"github.com/b9b4ymiN/botwallet/internal/token"
)

const signaturePageLimit = 1000

// Target names one (wallet, mint) pair to reconstruct.
type Target struct {
	Wallet string
	Mint   string
}

// Reconciler rebuilds position history from on-chain transaction records.
type Reconciler struct {
	chain    solana.ChainClient
	resolver token.Resolver
	oracle   classify.NativeUsdSource
	ledger   *ledger.Ledger
	store    store.Store
	policy   retry.Policy
	throttle time.Duration
	maxTx    int
	logger   *slog.Logger
}

// NewReconciler wires a reconciler. throttle is the pause between
// transaction fetches; maxTx caps how many signatures one scan replays.
func NewReconciler(chain solana.ChainClient, resolver token.Resolver, oracle classify.NativeUsdSource,
	led *ledger.Ledger, st store.Store, throttle time.Duration, maxTx int, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTx < 1 {
		maxTx = 1
	}
	return &Reconciler{
		chain:    chain,
		resolver: resolver,
		oracle:   oracle,
		ledger:   led,
		store:    st,
		policy:   retry.DefaultPolicy(),
		throttle: throttle,
		maxTx:    maxTx,
		logger:   logger,
	}
}

// RunAll reconstructs every target, a few in parallel. The shared RPC rate
// limiter inside the chain client bounds the aggregate request rate.
func (r *Reconciler) RunAll(ctx context.Context, targets []Target) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			return r.Reconstruct(ctx, t.Wallet, t.Mint)
		})
	}
	return g.Wait()
}

// Reconstruct replays the wallet's history for one mint in chronological
// order. Signatures already applied to the ledger are skipped, so repeated
// scans over overlapping windows never double-count.
func (r *Reconciler) Reconstruct(ctx context.Context, wallet, mint string) error {
	r.logger.Info("backfill scan started", "wallet", wallet, "mint", mint)

	// Positions key by instrument, not raw mint: the wrapped-SOL mint must
	// land under the same native key the live path uses.
	instrument := model.InstrumentKey(mint, r.resolver.Resolve(ctx, mint).Symbol)

	sigs, err := r.collectSignatures(ctx, wallet, mint)
	if err != nil {
		metrics.BackfillScans.WithLabelValues("error").Inc()
		return fmt.Errorf("collect signatures for %s/%s: %w", wallet, mint, err)
	}
	metrics.BackfillSignatures.Add(float64(len(sigs)))

	applied := 0
	for _, sig := range sigs {
		if ctx.Err() != nil {
			metrics.BackfillScans.WithLabelValues("cancelled").Inc()
			return ctx.Err()
		}
		ok, err := r.replaySignature(ctx, wallet, mint, instrument, sig)
		if err != nil {
			// One bad transaction must not abandon the rest of the
			// history.
			r.logger.Warn("backfill transaction skipped", "wallet", wallet, "mint", mint, "signature", sig.Signature, "err", err)
			continue
		}
		if ok {
			applied++
		}
		if r.throttle > 0 {
			select {
			case <-time.After(r.throttle):
			case <-ctx.Done():
				metrics.BackfillScans.WithLabelValues("cancelled").Inc()
				return ctx.Err()
			}
		}
	}

	r.logger.Info("backfill scan finished", "wallet", wallet, "mint", mint, "signatures", len(sigs), "applied", applied)
	metrics.BackfillScans.WithLabelValues("ok").Inc()
	return nil
}

// collectSignatures gathers signatures across every token account the
// wallet holds for the mint, deduplicated and sorted oldest-first. The
// same signature can appear on several accounts; the earliest observed
// block time wins so ordering stays stable.
func (r *Reconciler) collectSignatures(ctx context.Context, wallet, mint string) ([]solana.SignatureInfo, error) {
	accounts, err := retry.Do(ctx, r.policy, "token_accounts", func(ctx context.Context) ([]solana.TokenAccount, error) {
		return r.chain.GetTokenAccountsByOwner(ctx, wallet, mint)
	})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	seen := make(map[string]solana.SignatureInfo)
	for _, acct := range accounts {
		acct := acct
		limit := r.maxTx
		if limit > signaturePageLimit {
			limit = signaturePageLimit
		}
		sigs, err := retry.Do(ctx, r.policy, "signatures", func(ctx context.Context) ([]solana.SignatureInfo, error) {
			return r.chain.GetSignaturesForAddress(ctx, acct.Pubkey, limit)
		})
		if err != nil {
			return nil, err
		}
		for _, s := range sigs {
			prev, ok := seen[s.Signature]
			if !ok || blockTime(s) < blockTime(prev) {
				seen[s.Signature] = s
			}
		}
	}

	out := make([]solana.SignatureInfo, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := blockTime(out[i]), blockTime(out[j])
		if bi != bj {
			return bi < bj
		}
		return out[i].Signature < out[j].Signature
	})
	if len(out) > r.maxTx {
		out = out[len(out)-r.maxTx:]
	}
	return out, nil
}

// blockTime treats a missing block time as the epoch so undated
// signatures sort first and never displace dated history.
func blockTime(s solana.SignatureInfo) int64 {
	if s.BlockTime == nil {
		return 0
	}
	return *s.BlockTime
}

// replaySignature applies one historical transaction to the ledger under
// the given instrument key. Returns true when the transaction changed the
// position.
func (r *Reconciler) replaySignature(ctx context.Context, wallet, mint, instrument string, sig solana.SignatureInfo) (bool, error) {
	done, err := r.store.SeenSignature(ctx, wallet, instrument, sig.Signature)
	if err != nil {
		r.logger.Warn("signature lookup failed, replaying anyway", "signature", sig.Signature, "err", err)
	} else if done {
		return false, nil
	}

	tx, err := retry.Do(ctx, r.policy, "transaction", func(ctx context.Context) (*solana.Transaction, error) {
		return r.chain.GetTransaction(ctx, sig.Signature)
	})
	if err != nil {
		return false, err
	}
	if tx == nil || tx.Failed() {
		return false, r.mark(ctx, wallet, instrument, sig.Signature)
	}

	delta := classify.MintDelta(tx.Meta, wallet, mint)
	if delta.IsZero() {
		// Touches the account without moving the mint. Marked so the
		// next scan does not re-fetch it.
		return false, r.mark(ctx, wallet, instrument, sig.Signature)
	}

	// The sign of the wallet's own mint delta decides the side; the full
	// classification only supplies the cash leg used for pricing.
	side := model.ModeSell
	if delta.IsPositive() {
		side = model.ModeBuy
	}

	trade := classify.AnalyzeTrade(ctx, tx.Meta, tx.AccountKeys, wallet, r.resolver)
	price := classify.TradePrice(ctx, side, trade, r.oracle)

	r.ledger.Update(ctx, wallet, instrument, side, delta.Abs(), price)
	return true, r.mark(ctx, wallet, instrument, sig.Signature)
}

func (r *Reconciler) mark(ctx context.Context, wallet, instrument, signature string) error {
	if err := r.store.MarkSignature(ctx, wallet, instrument, signature); err != nil {
		r.logger.Warn("signature mark failed", "signature", signature, "err", err)
	}
	return nil
}
