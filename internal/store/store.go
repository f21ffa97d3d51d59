// Package store defines the persistence interface for positions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and degraded operation).
package store

import (
	"context"

	"github.com/b9b4ymiN/botwallet/internal/model"
)

// Store is the durable position store, keyed by (wallet, instrument).
// GetPosition returns (nil, nil) when no position exists yet.
//
// Applied-signature tracking makes backfill idempotent: the reconciler
// marks every signature it has replayed and skips any it sees again, so
// re-running a scan over the same history cannot double-count.
type Store interface {
	GetPosition(ctx context.Context, wallet, instrument string) (*model.Position, error)
	SetPosition(ctx context.Context, wallet, instrument string, pos model.Position) error
	ListPositions(ctx context.Context, wallet string) (map[string]model.Position, error)

	SeenSignature(ctx context.Context, wallet, instrument, signature string) (bool, error)
	MarkSignature(ctx context.Context, wallet, instrument, signature string) error
}
