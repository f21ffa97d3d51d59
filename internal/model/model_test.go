package model

import "testing"

func TestInstrumentKey(t *testing.T) {
	tests := []struct {
		name    string
		address string
		symbol  string
		want    string
	}{
		{"native symbol collapses", "So11111111111111111111111111111111111111112", "SOL", NativeKey},
		{"native sentinel collapses", NativeAddress, "", NativeKey},
		{"spl mint keys by address", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "USDC", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
		{"unknown token keys by address", "mintXYZ", "ABC...", "mintXYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstrumentKey(tt.address, tt.symbol); got != tt.want {
				t.Errorf("InstrumentKey(%q, %q) = %q, want %q", tt.address, tt.symbol, got, tt.want)
			}
		})
	}
}

func TestIsCash(t *testing.T) {
	for _, sym := range []string{"SOL", "USDC", "USDT"} {
		if !IsCash(sym) {
			t.Errorf("IsCash(%q) = false, want true", sym)
		}
	}
	for _, sym := range []string{"JUP", "BONK", ""} {
		if IsCash(sym) {
			t.Errorf("IsCash(%q) = true, want false", sym)
		}
	}
	if IsStable("SOL") {
		t.Error("SOL must not be a stablecoin")
	}
}
