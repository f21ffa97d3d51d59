// Package retry wraps external fetches with transient/terminal error
// classification and exponential backoff.
//
// Classification is structural first: typed RPC errors, context errors, and
// net.Error are inspected before falling back to message tokens, so the core
// does not depend on any one client's error strings.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/b9b4ymiN/botwallet/internal/metrics"
	"github.com/b9b4ymiN/botwallet/internal/solana"
)

// Class tags an error as retryable or not.
type Class string

const (
	ClassTransient Class = "transient"
	ClassTerminal  Class = "terminal"
)

// Policy controls the backoff series.
type Policy struct {
	MaxAttempts int           // retries after the first try
	BaseDelay   time.Duration // first wait
	Growth      float64       // multiplicative factor per retry
	MaxDelay    time.Duration // cap on any single wait
	Jitter      time.Duration // uniform random addition to each wait
}

// DefaultPolicy matches the production scan settings: 5 retries starting at
// 500ms, growing 1.8x up to 5s, with up to 200ms of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		Growth:      1.8,
		MaxDelay:    5 * time.Second,
		Jitter:      200 * time.Millisecond,
	}
}

// Classify decides whether an error is worth retrying.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}

	if errors.Is(err, context.Canceled) {
		return ClassTerminal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		return classifyJSONRPCCode(rpcErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	lower := strings.ToLower(err.Error())
	for _, token := range transientMessageTokens {
		if strings.Contains(lower, token) {
			return ClassTransient
		}
	}
	return ClassTerminal
}

// JSON-RPC -32000..-32099 are server-side conditions (node behind, resource
// exhaustion); everything else is a caller mistake.
func classifyJSONRPCCode(code int) Class {
	if code <= -32000 && code >= -32099 {
		return ClassTransient
	}
	return ClassTerminal
}

var transientMessageTokens = []string{
	"429",
	"too many requests",
	"rate limit",
	"timeout",
	"timed out",
	"etimedout",
	"econnreset",
	"enetunreach",
	"connection reset",
	"connection refused",
	"broken pipe",
	"fetch failed",
	"unavailable",
	"http status 502",
	"http status 503",
	"http status 504",
}

// Do runs fn until it succeeds, fails terminally, or exhausts the policy.
// The last transient error is returned as-is after exhaustion. Waits honor
// ctx, so cancellation is observed before every retry sleep.
func Do[T any](ctx context.Context, p Policy, label string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := p.BaseDelay

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if Classify(err) == ClassTerminal || attempt >= p.MaxAttempts {
			return zero, err
		}

		wait := delay
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		metrics.RetriesTotal.WithLabelValues(label).Inc()
		slog.Warn("retrying after transient failure",
			"label", label,
			"attempt", attempt+1,
			"max", p.MaxAttempts,
			"wait", wait,
			"err", err,
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		delay = time.Duration(float64(delay) * p.Growth)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
