package memory

import (
	"context"
	"sort"
	"sync"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// BacktestRunStore is an in-memory implementation of storage.BacktestRunStore.
type BacktestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestRecord // keyed by run_id
}

// NewBacktestRunStore creates a new in-memory run store.
func NewBacktestRunStore() *BacktestRunStore {
	return &BacktestRunStore{data: make(map[string]*domain.BacktestRecord)}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(_ context.Context, r *domain.BacktestRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.RunID] = &copy
	return nil
}

// GetByRunID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByRunID(_ context.Context, runID string) (*domain.BacktestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by created_at ASC.
func (s *BacktestRunStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.BacktestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestRecord
	for _, r := range s.data {
		if r.Symbol == symbol {
			copy := *r
			result = append(result, &copy)
		}
	}
	sortRuns(result)
	return result, nil
}

// GetAll retrieves every run, ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) GetAll(_ context.Context) ([]*domain.BacktestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestRecord, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}
	sortRuns(result)
	return result, nil
}

func sortRuns(runs []*domain.BacktestRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
}
