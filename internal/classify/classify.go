// Package classify turns a transaction's pre/post balance snapshots into a
// two-legged trade and derives its BUY/SELL/SWAP mode and USD price.
package classify

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/solana"
	"github.com/b9b4ymiN/botwallet/internal/token"
)

var lamportsPerSol = decimal.NewFromInt(model.LamportsPerSol)

// NativeUsdSource is the price-oracle capability the pricer needs.
type NativeUsdSource interface {
	NativeUsd(ctx context.Context) (decimal.Decimal, bool)
}

// AnalyzeTrade computes the wallet's dominant balance deltas for one
// transaction. TokenIn is what the wallet received, TokenOut what it spent;
// when no SPL leg exists in a direction, the native-asset delta fills it.
// Never fails: a transaction with no wallet-relevant delta yields an empty
// trade.
func AnalyzeTrade(ctx context.Context, meta *solana.TransactionMeta, accountKeys []string, wallet string, resolver token.Resolver) model.ClassifiedTrade {
	var trade model.ClassifiedTrade
	if meta == nil {
		return trade
	}

	solChange := nativeDelta(meta, accountKeys, wallet)

	type entry struct{ pre, post decimal.Decimal }
	changes := make(map[string]*entry)
	var order []string // map iteration is unordered; ties break by first-seen

	touch := func(mint string) *entry {
		e, ok := changes[mint]
		if !ok {
			e = &entry{}
			changes[mint] = e
			order = append(order, mint)
		}
		return e
	}
	for _, b := range meta.PreTokenBalances {
		if b.Owner == wallet {
			touch(b.Mint).pre = decimal.NewFromFloat(b.UITokenAmount.Value())
		}
	}
	for _, b := range meta.PostTokenBalances {
		if b.Owner == wallet {
			touch(b.Mint).post = decimal.NewFromFloat(b.UITokenAmount.Value())
		}
	}

	var topInMint, topOutMint string
	var topIn, topOut decimal.Decimal
	for _, mint := range order {
		delta := changes[mint].post.Sub(changes[mint].pre)
		switch {
		case delta.IsPositive() && delta.GreaterThan(topIn):
			topInMint, topIn = mint, delta
		case delta.IsNegative() && delta.Neg().GreaterThan(topOut):
			topOutMint, topOut = mint, delta.Neg()
		}
	}

	if topInMint != "" {
		info := resolver.Resolve(ctx, topInMint)
		trade.TokenIn = &info
		trade.QtyIn = topIn
	}
	if topOutMint != "" {
		info := resolver.Resolve(ctx, topOutMint)
		trade.TokenOut = &info
		trade.QtyOut = topOut
	}

	// Fill a missing side with the native delta when it points that way.
	if trade.TokenIn == nil && solChange.IsPositive() {
		trade.TokenIn = &model.TokenInfo{Symbol: model.NativeSymbol, Address: model.NativeAddress}
		trade.QtyIn = solChange
	}
	if trade.TokenOut == nil && solChange.IsNegative() {
		trade.TokenOut = &model.TokenInfo{Symbol: model.NativeSymbol, Address: model.NativeAddress}
		trade.QtyOut = solChange.Neg()
	}

	return trade
}

// nativeDelta is the wallet's own-account lamport change, scaled to SOL.
func nativeDelta(meta *solana.TransactionMeta, accountKeys []string, wallet string) decimal.Decimal {
	idx := -1
	for i, key := range accountKeys {
		if key == wallet {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(meta.PreBalances) || idx >= len(meta.PostBalances) {
		return decimal.Zero
	}
	return decimal.NewFromInt(meta.PostBalances[idx] - meta.PreBalances[idx]).Div(lamportsPerSol)
}

// MintDelta is the wallet's net balance change for one specific mint,
// summed across all of the wallet's token accounts in the transaction.
func MintDelta(meta *solana.TransactionMeta, wallet, mint string) decimal.Decimal {
	if meta == nil {
		return decimal.Zero
	}
	sum := func(balances []solana.TokenBalance) decimal.Decimal {
		total := decimal.Zero
		for _, b := range balances {
			if b.Owner == wallet && b.Mint == mint {
				total = total.Add(decimal.NewFromFloat(b.UITokenAmount.Value()))
			}
		}
		return total
	}
	return sum(meta.PostTokenBalances).Sub(sum(meta.PreTokenBalances))
}

// DetermineMode classifies the trade by its cash leg. A missing leg means
// insufficient information, which lands in SWAP — the deliberate ambiguity
// sink the ledger treats as a no-op.
func DetermineMode(tokenIn, tokenOut *model.TokenInfo) model.TradeMode {
	if tokenIn == nil || tokenOut == nil {
		return model.ModeSwap
	}
	inCash := model.IsCash(tokenIn.Symbol)
	outCash := model.IsCash(tokenOut.Symbol)
	switch {
	case outCash && !inCash:
		return model.ModeBuy // spent cash, received asset
	case inCash && !outCash:
		return model.ModeSell
	default:
		return model.ModeSwap
	}
}

// TradePrice derives the per-unit USD price of the non-cash leg from the
// cash leg. Returns nil when the price is undefined for this trade — the
// ledger then proceeds with quantity-only accounting.
func TradePrice(ctx context.Context, mode model.TradeMode, trade model.ClassifiedTrade, oracle NativeUsdSource) *decimal.Decimal {
	switch mode {
	case model.ModeBuy:
		if trade.TokenOut == nil || !trade.QtyIn.IsPositive() {
			return nil
		}
		if model.IsStable(trade.TokenOut.Symbol) {
			p := trade.QtyOut.Div(trade.QtyIn) // stable spent per unit received
			return &p
		}
		if trade.TokenOut.Symbol == model.NativeSymbol {
			if solUsd, ok := oracle.NativeUsd(ctx); ok {
				p := trade.QtyOut.Mul(solUsd).Div(trade.QtyIn)
				return &p
			}
		}
	case model.ModeSell:
		if trade.TokenIn == nil || !trade.QtyOut.IsPositive() {
			return nil
		}
		if model.IsStable(trade.TokenIn.Symbol) {
			p := trade.QtyIn.Div(trade.QtyOut) // stable received per unit sold
			return &p
		}
		if trade.TokenIn.Symbol == model.NativeSymbol {
			if solUsd, ok := oracle.NativeUsd(ctx); ok {
				p := trade.QtyIn.Mul(solUsd).Div(trade.QtyOut)
				return &p
			}
		}
	}
	return nil
}
