package repository

import (
	"context"
	"sync"

	"bnbbrain-backend/internal/models"
)

// MemoryTickStore keeps the last capacity prices per symbol. It is used
// when no database is configured.
type MemoryTickStore struct {
	mu       sync.RWMutex
	capacity int
	prices   map[string][]float64
}

func NewMemoryTickStore(capacity int) *MemoryTickStore {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryTickStore{
		capacity: capacity,
		prices:   make(map[string][]float64),
	}
}

func (s *MemoryTickStore) Append(_ context.Context, tick models.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := append(s.prices[tick.Symbol], tick.Price)
	if over := len(prices) - s.capacity; over > 0 {
		prices = append(prices[:0:0], prices[over:]...)
	}
	s.prices[tick.Symbol] = prices
	return nil
}

func (s *MemoryTickStore) RecentCloses(_ context.Context, symbol string, n int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := s.prices[symbol]
	if n <= 0 {
		return nil, nil
	}
	if len(prices) > n {
		prices = prices[len(prices)-n:]
	}
	out := make([]float64, len(prices))
	copy(out, prices)
	return out, nil
}
