// Package memory provides in-memory storage implementations for tests and
// single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// barKey identifies a bar by (symbol, timestamp).
type barKey struct {
	symbol string
	ts     int64
}

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.Bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{data: make(map[barKey]*domain.Bar)}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails the entire batch on any duplicate
// (symbol, timestamp), existing or intra-batch.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[barKey]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		k := barKey{b.Symbol, b.Timestamp.UnixMilli()}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, b := range bars {
		copy := *b
		s.data[barKey{b.Symbol, b.Timestamp.UnixMilli()}] = &copy
	}
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for k, b := range s.data {
		if k.symbol == symbol {
			copy := *b
			result = append(result, &copy)
		}
	}
	sortBars(result)
	return result, nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] inclusive.
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for k, b := range s.data {
		if k.symbol != symbol {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		copy := *b
		result = append(result, &copy)
	}
	sortBars(result)
	return result, nil
}

func sortBars(bars []*domain.Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}
