package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/b9b4ymiN/botwallet/internal/metrics"
)

const defaultDexScreenerURL = "https://api.dexscreener.com"

// TokenOracle answers "current USD price of this mint" from DexScreener's
// pair listings, cached per mint with a TTL. Same contract as Oracle:
// unavailable is a value, not an error, and stale entries are never served.
type TokenOracle struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]tokenEntry
}

type tokenEntry struct {
	price decimal.Decimal
	at    time.Time
}

// TokenOption configures a TokenOracle.
type TokenOption func(*TokenOracle)

// WithTokenBaseURL overrides the DexScreener endpoint (tests).
func WithTokenBaseURL(url string) TokenOption {
	return func(o *TokenOracle) { o.baseURL = url }
}

// NewTokenOracle creates a per-mint price source with the given cache TTL.
func NewTokenOracle(ttl time.Duration, logger *slog.Logger, opts ...TokenOption) *TokenOracle {
	if logger == nil {
		logger = slog.Default()
	}
	o := &TokenOracle{
		baseURL:    defaultDexScreenerURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        ttl,
		logger:     logger,
		cache:      make(map[string]tokenEntry),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TokenUsd returns the mint's current USD price. ok is false when no fresh
// value is available; callers must treat that as "price undefined".
func (o *TokenOracle) TokenUsd(ctx context.Context, mint string) (decimal.Decimal, bool) {
	o.mu.Lock()
	if e, ok := o.cache[mint]; ok && time.Since(e.at) < o.ttl {
		o.mu.Unlock()
		metrics.PriceCacheHits.Inc()
		return e.price, true
	}
	o.mu.Unlock()
	metrics.PriceCacheMisses.Inc()

	v, err := o.fetchTokenUsd(ctx, mint)
	if err != nil {
		o.logger.Warn("token price fetch failed", "mint", mint, "err", err)
		return decimal.Decimal{}, false
	}

	o.mu.Lock()
	o.cache[mint] = tokenEntry{price: v, at: time.Now()}
	o.mu.Unlock()
	return v, true
}

// fetchTokenUsd takes the first listed pair's USD price, matching how the
// listing is consumed upstream: DexScreener orders pairs by relevance.
func (o *TokenOracle) fetchTokenUsd(ctx context.Context, mint string) (decimal.Decimal, error) {
	url := o.baseURL + "/latest/dex/tokens/" + mint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read response: %w", err)
	}

	var payload struct {
		Pairs []struct {
			PriceUsd string `json:"priceUsd"`
		} `json:"pairs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Pairs) == 0 || payload.Pairs[0].PriceUsd == "" {
		return decimal.Decimal{}, fmt.Errorf("no priced pair for %s", mint)
	}

	v, err := decimal.NewFromString(payload.Pairs[0].PriceUsd)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", payload.Pairs[0].PriceUsd, err)
	}
	if v.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("non-positive price %s", v)
	}
	return v, nil
}
