// Package checkpoint persists per-symbol window state so a crash-restart or
// ownership rebalance reconstructs aggregation from the same logical point.
package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradeflow/internal/aggregate"
)

// ErrNotFound is returned when no checkpoint exists for a symbol.
var ErrNotFound = errors.New("checkpoint not found")

// Record is one symbol's durable window state. Watermarks hold the last
// input offset applied per source partition, keyed "topic/partition", so a
// replayed record is never folded into the state twice.
type Record struct {
	Symbol      string               `json:"symbol"`
	WindowStart time.Time            `json:"window_start"`
	State       aggregate.Checkpoint `json:"state"`
	Watermarks  map[string]int64     `json:"watermarks"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Store is the durable checkpoint backend.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, symbol string) (Record, error)
	Delete(ctx context.Context, symbol string) error
	Close() error
}

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Symbol] = rec
	return nil
}

func (s *MemoryStore) Load(_ context.Context, symbol string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[symbol]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, symbol)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
