package store

import (
	"context"
	"sync"

	"github.com/b9b4ymiN/botwallet/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and as
// the degraded fallback when no DATABASE_URL is configured. Not suitable
// for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	positions  map[string]map[string]model.Position // wallet -> instrument -> position
	signatures map[string]struct{}                  // wallet|instrument|signature
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions:  make(map[string]map[string]model.Position),
		signatures: make(map[string]struct{}),
	}
}

func (s *MemoryStore) GetPosition(_ context.Context, wallet, instrument string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[wallet][instrument]
	if !ok {
		return nil, nil
	}
	copy := p
	return &copy, nil
}

func (s *MemoryStore) SetPosition(_ context.Context, wallet, instrument string, pos model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.positions[wallet] == nil {
		s.positions[wallet] = make(map[string]model.Position)
	}
	s.positions[wallet][instrument] = pos
	return nil
}

func (s *MemoryStore) ListPositions(_ context.Context, wallet string) (map[string]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.Position, len(s.positions[wallet]))
	for instrument, p := range s.positions[wallet] {
		out[instrument] = p
	}
	return out, nil
}

func (s *MemoryStore) SeenSignature(_ context.Context, wallet, instrument, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.signatures[sigKey(wallet, instrument, signature)]
	return ok, nil
}

func (s *MemoryStore) MarkSignature(_ context.Context, wallet, instrument, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signatures[sigKey(wallet, instrument, signature)] = struct{}{}
	return nil
}

func sigKey(wallet, instrument, signature string) string {
	return wallet + "|" + instrument + "|" + signature
}
