package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/store"
)

const (
	testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	testMint   = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(store.NewMemoryStore(), nil)
}

func TestUpdateBuyAccumulates(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	pos := l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("1"))
	if !pos.Qty.Equal(d("100")) || !pos.CostUsd.Equal(d("100")) {
		t.Fatalf("after first buy: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
	if !pos.AvgEntryUsd.Equal(d("1")) {
		t.Fatalf("avg entry = %s, want 1", pos.AvgEntryUsd)
	}

	pos = l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("3"))
	if !pos.Qty.Equal(d("200")) || !pos.CostUsd.Equal(d("400")) {
		t.Fatalf("after second buy: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
	if !pos.AvgEntryUsd.Equal(d("2")) {
		t.Fatalf("avg entry = %s, want 2", pos.AvgEntryUsd)
	}
}

func TestUpdateBuyWithoutPriceAddsNoCost(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	pos := l.Update(ctx, testWallet, testMint, model.ModeBuy, d("50"), nil)
	if !pos.Qty.Equal(d("50")) {
		t.Fatalf("qty = %s, want 50", pos.Qty)
	}
	if !pos.CostUsd.IsZero() || !pos.AvgEntryUsd.IsZero() {
		t.Fatalf("unpriced buy should carry no basis: cost=%s avg=%s", pos.CostUsd, pos.AvgEntryUsd)
	}
}

func TestUpdateSellRealizesPnl(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("1"))
	pos := l.Update(ctx, testWallet, testMint, model.ModeSell, d("40"), dp("2.5"))

	if !pos.Qty.Equal(d("60")) {
		t.Fatalf("qty = %s, want 60", pos.Qty)
	}
	if !pos.CostUsd.Equal(d("60")) {
		t.Fatalf("cost = %s, want 60", pos.CostUsd)
	}
	// proceeds 40*2.5 = 100 minus cost portion 40*1 = 40
	if !pos.RealizedPnlUsd.Equal(d("60")) {
		t.Fatalf("realized = %s, want 60", pos.RealizedPnlUsd)
	}
	if !pos.AvgEntryUsd.Equal(d("1")) {
		t.Fatalf("avg entry = %s, want 1", pos.AvgEntryUsd)
	}
}

func TestUpdateOversellClampsBasisNotProceeds(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.Update(ctx, testWallet, testMint, model.ModeBuy, d("10"), dp("1"))
	// Sells 25 while holding 10: cost portion clamps to 10*1, proceeds
	// stay 25*2 so history that started mid-stream still counts income.
	pos := l.Update(ctx, testWallet, testMint, model.ModeSell, d("25"), dp("2"))

	if !pos.Qty.IsZero() {
		t.Fatalf("qty = %s, want 0", pos.Qty)
	}
	if !pos.CostUsd.IsZero() {
		t.Fatalf("cost = %s, want 0", pos.CostUsd)
	}
	if !pos.RealizedPnlUsd.Equal(d("40")) {
		t.Fatalf("realized = %s, want 40 (50 proceeds - 10 basis)", pos.RealizedPnlUsd)
	}
}

func TestUpdateSellRetainsEntryAfterClose(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("2"))
	pos := l.Update(ctx, testWallet, testMint, model.ModeSell, d("100"), dp("3"))

	if !pos.Qty.IsZero() || !pos.CostUsd.IsZero() {
		t.Fatalf("position should be flat: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
	if !pos.AvgEntryUsd.Equal(d("2")) {
		t.Fatalf("closed position lost entry reference: avg=%s", pos.AvgEntryUsd)
	}
}

func TestUpdateSellWithoutPriceRealizesNothing(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("1"))
	pos := l.Update(ctx, testWallet, testMint, model.ModeSell, d("50"), nil)

	if !pos.Qty.Equal(d("50")) || !pos.CostUsd.Equal(d("50")) {
		t.Fatalf("basis should still reduce: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
	if !pos.RealizedPnlUsd.IsZero() {
		t.Fatalf("realized = %s, want 0 without a reference price", pos.RealizedPnlUsd)
	}
}

func TestUpdateSwapOnlyTouchesTimestamp(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	before := l.Update(ctx, testWallet, testMint, model.ModeBuy, d("100"), dp("1"))
	after := l.Update(ctx, testWallet, testMint, model.ModeSwap, d("999"), dp("123"))

	if !after.Qty.Equal(before.Qty) || !after.CostUsd.Equal(before.CostUsd) ||
		!after.AvgEntryUsd.Equal(before.AvgEntryUsd) || !after.RealizedPnlUsd.Equal(before.RealizedPnlUsd) {
		t.Fatalf("swap mutated position: before=%+v after=%+v", before, after)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) && !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("swap should advance UpdatedAt")
	}
}

func TestUpdateInvariantsNeverNegative(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	// Sell into an empty position.
	pos := l.Update(ctx, testWallet, testMint, model.ModeSell, d("7"), dp("4"))
	if pos.Qty.IsNegative() || pos.CostUsd.IsNegative() {
		t.Fatalf("negative state: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
	if !pos.RealizedPnlUsd.Equal(d("28")) {
		t.Fatalf("realized = %s, want full proceeds 28", pos.RealizedPnlUsd)
	}
}

// failingStore errors on every call so degradation paths are exercised.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) GetPosition(context.Context, string, string) (*model.Position, error) {
	return nil, errStoreDown
}
func (failingStore) SetPosition(context.Context, string, string, model.Position) error {
	return errStoreDown
}
func (failingStore) ListPositions(context.Context, string) (map[string]model.Position, error) {
	return nil, errStoreDown
}
func (failingStore) SeenSignature(context.Context, string, string, string) (bool, error) {
	return false, errStoreDown
}
func (failingStore) MarkSignature(context.Context, string, string, string) error {
	return errStoreDown
}

func TestUpdateDegradesToCacheOnStoreFailure(t *testing.T) {
	l := New(failingStore{}, nil)
	ctx := context.Background()

	l.Update(ctx, testWallet, testMint, model.ModeBuy, d("10"), dp("1"))
	pos := l.Update(ctx, testWallet, testMint, model.ModeBuy, d("10"), dp("3"))

	if !pos.Qty.Equal(d("20")) || !pos.CostUsd.Equal(d("40")) {
		t.Fatalf("cache-only accounting broken: qty=%s cost=%s", pos.Qty, pos.CostUsd)
	}
}

func TestSnapshot(t *testing.T) {
	pos := &model.Position{
		Qty:            d("100"),
		CostUsd:        d("100"),
		AvgEntryUsd:    d("1"),
		RealizedPnlUsd: d("25"),
	}

	snap := Snapshot(pos, d("100"), dp("1.5"))
	if snap.HoldingValueUsd == nil || !snap.HoldingValueUsd.Equal(d("150")) {
		t.Fatalf("holding value = %v, want 150", snap.HoldingValueUsd)
	}
	if snap.UnrealizedPnlUsd == nil || !snap.UnrealizedPnlUsd.Equal(d("50")) {
		t.Fatalf("unrealized = %v, want 50", snap.UnrealizedPnlUsd)
	}
	if snap.UnrealizedPnlPct == nil || !snap.UnrealizedPnlPct.Equal(d("50")) {
		t.Fatalf("unrealized pct = %v, want 50", snap.UnrealizedPnlPct)
	}
	if snap.RealizedPnlUsd == nil || !snap.RealizedPnlUsd.Equal(d("25")) {
		t.Fatalf("realized = %v, want 25", snap.RealizedPnlUsd)
	}
}

func TestSnapshotWithoutPrice(t *testing.T) {
	pos := &model.Position{Qty: d("10"), AvgEntryUsd: d("2"), RealizedPnlUsd: d("5")}

	snap := Snapshot(pos, d("10"), nil)
	if snap.HoldingValueUsd != nil || snap.UnrealizedPnlUsd != nil || snap.UnrealizedPnlPct != nil {
		t.Fatalf("no USD fields should be derived without a price: %+v", snap)
	}
	if snap.RealizedPnlUsd == nil || !snap.RealizedPnlUsd.Equal(d("5")) {
		t.Fatalf("realized = %v, want 5", snap.RealizedPnlUsd)
	}
}

func TestSnapshotWithoutPosition(t *testing.T) {
	snap := Snapshot(nil, d("3"), dp("2"))
	if !snap.HoldingQty.Equal(d("3")) {
		t.Fatalf("holding qty = %s, want 3", snap.HoldingQty)
	}
	if snap.HoldingValueUsd == nil || !snap.HoldingValueUsd.Equal(d("6")) {
		t.Fatalf("holding value = %v, want 6", snap.HoldingValueUsd)
	}
	if snap.RealizedPnlUsd != nil || snap.AvgEntryUsd != nil {
		t.Fatalf("nil position should not report entry or realized: %+v", snap)
	}
}
