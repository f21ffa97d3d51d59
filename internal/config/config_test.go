package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HELIUS_RPC_URL", "https://rpc.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Throttle() != 300*time.Millisecond {
		t.Errorf("Throttle = %v, want 300ms", cfg.Throttle())
	}
	if cfg.PriceCacheTTL() != 30*time.Second {
		t.Errorf("PriceCacheTTL = %v, want 30s", cfg.PriceCacheTTL())
	}
	if cfg.BackfillMaxTx != 10 {
		t.Errorf("BackfillMaxTx = %d, want 10", cfg.BackfillMaxTx)
	}
	if !cfg.EnrichHoldings || !cfg.EnrichPnl {
		t.Error("enrichment flags should default on")
	}
}

func TestLoadRequiresRPCURL(t *testing.T) {
	t.Setenv("HELIUS_RPC_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when HELIUS_RPC_URL unset")
	}
}

func TestLoadClampsFloors(t *testing.T) {
	t.Setenv("HELIUS_RPC_URL", "https://rpc.example.com")
	t.Setenv("WTRACK_PRICE_CACHE_SECONDS", "1")
	t.Setenv("BACKFILL_MAX_TX", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PriceCacheSeconds != 5 {
		t.Errorf("PriceCacheSeconds = %d, want floor 5", cfg.PriceCacheSeconds)
	}
	if cfg.BackfillMaxTx != 1 {
		t.Errorf("BackfillMaxTx = %d, want floor 1", cfg.BackfillMaxTx)
	}
}

func TestLoadWallets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")
	content := `{"wallets":[{"address":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin","name":"whale-1"}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{WalletFile: path}
	wallets, err := cfg.LoadWallets()
	if err != nil {
		t.Fatalf("LoadWallets: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Name != "whale-1" {
		t.Errorf("unexpected wallets: %+v", wallets)
	}

	cfg.WalletFile = filepath.Join(dir, "missing.json")
	if _, err := cfg.LoadWallets(); err == nil {
		t.Error("expected error for missing wallet file")
	}
}
