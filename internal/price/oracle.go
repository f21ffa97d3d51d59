// Package price provides the USD price of the native asset, cached with a
// TTL. "Unavailable" is a first-class answer, never an error the caller has
// to handle.
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

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Oracle answers "current native-asset USD price" with a TTL cache in front
// of CoinGecko. A stale cache is never served: expired entries miss and the
// caller gets ok=false if the refresh fails too.
type Oracle struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	cached   decimal.Decimal
	cachedAt time.Time
	hasValue bool
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithBaseURL overrides the CoinGecko endpoint (tests).
func WithBaseURL(url string) Option {
	return func(o *Oracle) { o.baseURL = url }
}

// NewOracle creates an oracle with the given cache TTL.
func NewOracle(ttl time.Duration, logger *slog.Logger, opts ...Option) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Oracle{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        ttl,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NativeUsd returns the SOL/USD price. ok is false when no fresh value is
// available; callers must treat that as "price undefined", not zero.
func (o *Oracle) NativeUsd(ctx context.Context) (decimal.Decimal, bool) {
	o.mu.Lock()
	if o.hasValue && time.Since(o.cachedAt) < o.ttl {
		v := o.cached
		o.mu.Unlock()
		metrics.PriceCacheHits.Inc()
		return v, true
	}
	o.mu.Unlock()
	metrics.PriceCacheMisses.Inc()

	v, err := o.fetchSolUsd(ctx)
	if err != nil {
		o.logger.Warn("native price fetch failed", "err", err)
		return decimal.Decimal{}, false
	}

	o.mu.Lock()
	o.cached = v
	o.cachedAt = time.Now()
	o.hasValue = true
	o.mu.Unlock()
	return v, true
}

func (o *Oracle) fetchSolUsd(ctx context.Context) (decimal.Decimal, error) {
	url := o.baseURL + "/simple/price?ids=solana&vs_currencies=usd"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("coingecko status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read response: %w", err)
	}

	var payload struct {
		Solana struct {
			Usd *json.Number `json:"usd"`
		} `json:"solana"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode response: %w", err)
	}
	if payload.Solana.Usd == nil {
		return decimal.Decimal{}, fmt.Errorf("no solana/usd price in response")
	}

	v, err := decimal.NewFromString(payload.Solana.Usd.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", payload.Solana.Usd.String(), err)
	}
	if v.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("non-positive price %s", v)
	}
	return v, nil
}
