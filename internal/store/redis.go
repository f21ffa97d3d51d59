package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/b9b4ymiN/botwallet/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Position writes go to the primary and refresh the cache; reads
// check Redis first then fall back to the primary. Signature tracking is
// primary-only: it is the idempotence record and must never be served from
// a cache that can lag or evict.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) GetPosition(ctx context.Context, wallet, instrument string) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(wallet, instrument)).Bytes()
	if err == nil {
		var p model.Position
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPosition(ctx, wallet, instrument)
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.cachePosition(ctx, wallet, instrument, *p)
	}
	return p, nil
}

func (s *CachedStore) SetPosition(ctx context.Context, wallet, instrument string, pos model.Position) error {
	if err := s.primary.SetPosition(ctx, wallet, instrument, pos); err != nil {
		return err
	}
	s.cachePosition(ctx, wallet, instrument, pos)
	return nil
}

func (s *CachedStore) ListPositions(ctx context.Context, wallet string) (map[string]model.Position, error) {
	return s.primary.ListPositions(ctx, wallet)
}

func (s *CachedStore) SeenSignature(ctx context.Context, wallet, instrument, signature string) (bool, error) {
	return s.primary.SeenSignature(ctx, wallet, instrument, signature)
}

func (s *CachedStore) MarkSignature(ctx context.Context, wallet, instrument, signature string) error {
	return s.primary.MarkSignature(ctx, wallet, instrument, signature)
}

func (s *CachedStore) cachePosition(ctx context.Context, wallet, instrument string, pos model.Position) {
	if data, err := json.Marshal(pos); err == nil {
		s.rdb.Set(ctx, positionKey(wallet, instrument), data, s.ttl)
	}
}

func positionKey(wallet, instrument string) string {
	return fmt.Sprintf("position:%s:%s", wallet, instrument)
}
