// Package model defines the core domain types shared across the wallet
// tracker. All monetary values use shopspring/decimal — never float64 for
// money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Native asset identity. Solana's native token never has an SPL mint from
// the wallet's point of view, so positions in it are keyed by a fixed
// sentinel instead of a mint address.
const (
	NativeSymbol  = "SOL"
	NativeAddress = "Solana" // legacy sentinel used in place of a mint
	NativeKey     = "SOL"

	LamportsPerSol = 1_000_000_000
)

// Stablecoins recognized as a cash leg when pricing trades.
var stablecoins = map[string]bool{
	"USDC": true,
	"USDT": true,
}

// IsStable reports whether the symbol is a recognized stablecoin.
func IsStable(symbol string) bool { return stablecoins[symbol] }

// IsCash reports whether the symbol counts as a cash leg: the native asset
// or a recognized stablecoin.
func IsCash(symbol string) bool {
	return symbol == NativeSymbol || stablecoins[symbol]
}

// InstrumentKey normalizes what a position is denominated in. Anything that
// resolves to the native asset collapses to NativeKey so SOL is never
// tracked as an SPL-style mint; everything else keys by mint address.
func InstrumentKey(address, symbol string) string {
	if symbol == NativeSymbol || address == NativeAddress {
		return NativeKey
	}
	return address
}

// TradeMode classifies a two-legged trade by its cash leg.
type TradeMode string

const (
	ModeBuy  TradeMode = "BUY"
	ModeSell TradeMode = "SELL"
	ModeSwap TradeMode = "SWAP" // ambiguity sink: both cash, neither cash, or a missing leg
)

// TokenInfo identifies a token leg of a trade.
type TokenInfo struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// ClassifiedTrade is the two-legged result of balance-delta analysis.
// TokenIn is what the wallet received, TokenOut what it spent. Either leg
// may be nil when only one side of the wallet moved; both nil means the
// transaction carried no discernible trade for this wallet.
type ClassifiedTrade struct {
	TokenIn  *TokenInfo
	TokenOut *TokenInfo
	QtyIn    decimal.Decimal
	QtyOut   decimal.Decimal
}

// Empty reports whether no leg was found.
func (t ClassifiedTrade) Empty() bool { return t.TokenIn == nil && t.TokenOut == nil }

// Position is the durable per-(wallet, instrument) cost-basis state.
// Mutated exclusively through the ledger; qty and costUsd are non-negative
// by construction, and qty == 0 implies costUsd == 0.
type Position struct {
	Qty            decimal.Decimal `json:"qty"`
	CostUsd        decimal.Decimal `json:"cost_usd"`
	AvgEntryUsd    decimal.Decimal `json:"avg_entry_usd"`
	RealizedPnlUsd decimal.Decimal `json:"realized_pnl_usd"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PnlSnapshot is a derived, read-only view of a position marked against a
// current price. Fields are pointers because any of them can be unknowable:
// no price, no position, no entry reference.
type PnlSnapshot struct {
	HoldingQty       decimal.Decimal  `json:"holding_qty"`
	HoldingValueUsd  *decimal.Decimal `json:"holding_value_usd,omitempty"`
	AvgEntryUsd      *decimal.Decimal `json:"avg_entry_usd,omitempty"`
	UnrealizedPnlUsd *decimal.Decimal `json:"unrealized_pnl_usd,omitempty"`
	UnrealizedPnlPct *decimal.Decimal `json:"unrealized_pnl_pct,omitempty"`
	RealizedPnlUsd   *decimal.Decimal `json:"realized_pnl_usd,omitempty"`
}

// TradeEvent is the enriched record handed to notification sinks after a
// trade has been classified, priced, and applied to the ledger.
type TradeEvent struct {
	ID            string           `json:"id"`
	Signature     string           `json:"signature"`
	WalletAddress string           `json:"wallet_address"`
	WalletName    string           `json:"wallet_name,omitempty"`
	DEX           string           `json:"dex,omitempty"`
	Mode          TradeMode        `json:"mode"`
	TokenIn       *TokenInfo       `json:"token_in,omitempty"`
	TokenOut      *TokenInfo       `json:"token_out,omitempty"`
	QtyIn         decimal.Decimal  `json:"qty_in"`
	QtyOut        decimal.Decimal  `json:"qty_out"`
	PriceUsd      *decimal.Decimal `json:"price_usd,omitempty"`
	Snapshot      *PnlSnapshot     `json:"snapshot,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}
