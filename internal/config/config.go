// Package config loads tracker configuration from the environment and the
// wallet list from wallet.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment-driven knob. Defaults mirror production
// values; anything unset falls back rather than failing, except the RPC URL
// which the process cannot run without.
type Config struct {
	RPCURL string `env:"HELIUS_RPC_URL"`
	WSURL  string `env:"HELIUS_WS_URL"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	Port string `env:"PORT" envDefault:"8080"`

	ThrottleMs        int     `env:"RPC_THROTTLE_MS" envDefault:"300"`
	RPCRatePerSec     float64 `env:"RPC_RATE_LIMIT" envDefault:"10"`
	RPCBurst          int     `env:"RPC_BURST" envDefault:"5"`
	BackfillMaxTx     int     `env:"BACKFILL_MAX_TX" envDefault:"10"`
	PriceCacheSeconds int     `env:"WTRACK_PRICE_CACHE_SECONDS" envDefault:"30"`

	EnrichHoldings bool `env:"WTRACK_ENRICH_HOLDINGS" envDefault:"true"`
	EnrichPnl      bool `env:"WTRACK_ENRICH_PNL" envDefault:"true"`

	WalletFile        string `env:"WALLET_CONFIG" envDefault:"wallet.json"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
}

// WalletConfig is one tracked wallet from wallet.json.
type WalletConfig struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Webhook string `json:"webhook,omitempty"` // per-wallet override of DISCORD_WEBHOOK_URL
}

type walletFile struct {
	Wallets []WalletConfig `json:"wallets"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // best effort; real env wins

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("HELIUS_RPC_URL is not set")
	}
	if cfg.ThrottleMs < 0 {
		cfg.ThrottleMs = 0
	}
	if cfg.BackfillMaxTx < 1 {
		cfg.BackfillMaxTx = 1
	}
	if cfg.PriceCacheSeconds < 5 {
		cfg.PriceCacheSeconds = 5
	}
	return cfg, nil
}

// Throttle returns the inter-fetch delay applied during backfill scans.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

// PriceCacheTTL returns the price oracle cache lifetime.
func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.PriceCacheSeconds) * time.Second
}

// LoadWallets reads the tracked-wallet list from the configured file.
func (c *Config) LoadWallets() ([]WalletConfig, error) {
	data, err := os.ReadFile(c.WalletFile)
	if err != nil {
		return nil, fmt.Errorf("read wallet config %s: %w", c.WalletFile, err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet config %s: %w", c.WalletFile, err)
	}
	if len(wf.Wallets) == 0 {
		return nil, fmt.Errorf("wallet config %s lists no wallets", c.WalletFile)
	}
	return wf.Wallets, nil
}
