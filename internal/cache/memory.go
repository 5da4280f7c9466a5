package cache

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-curve-engine/internal/curve"
)

// MemoryCurveStore keeps curve state in process memory. Used by tests and by
// the API when no Redis address is configured.
type MemoryCurveStore struct {
	mu     sync.RWMutex
	curves map[solana.PublicKey]curve.Curve
}

func NewMemoryCurveStore() *MemoryCurveStore {
	return &MemoryCurveStore{curves: make(map[solana.PublicKey]curve.Curve)}
}

func (s *MemoryCurveStore) GetCurve(_ context.Context, mint solana.PublicKey) (*curve.Curve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.curves[mint]
	if !ok {
		return nil, curve.ErrCurveNotFound
	}
	return &c, nil
}

func (s *MemoryCurveStore) PutCurve(_ context.Context, mint solana.PublicKey, c *curve.Curve) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.curves[mint] = *c
	return nil
}

func (s *MemoryCurveStore) ListMints(_ context.Context) ([]solana.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]solana.PublicKey, 0, len(s.curves))
	for mint := range s.curves {
		out = append(out, mint)
	}
	return out, nil
}

func (s *MemoryCurveStore) Ping(_ context.Context) error { return nil }

func (s *MemoryCurveStore) Close() error { return nil }
