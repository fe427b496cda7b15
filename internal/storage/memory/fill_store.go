package memory

import (
	"context"
	"sort"
	"sync"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// FillStore is an in-memory implementation of storage.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FillRecord // keyed by fill_id
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{data: make(map[string]*domain.FillRecord)}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

// InsertBulk adds multiple fills atomically. Fails the entire batch on any
// duplicate fill_id, existing or intra-batch.
func (s *FillStore) InsertBulk(_ context.Context, fills []*domain.FillRecord) error {
	if len(fills) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(fills))
	for _, r := range fills {
		if r == nil || r.FillID == "" || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.FillID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.FillID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.FillID] = struct{}{}
	}

	for _, r := range fills {
		copy := *r
		s.data[r.FillID] = &copy
	}
	return nil
}

// GetByRunID retrieves all fills for a run, ordered by executed time ASC
// with fill_id as a deterministic tie-breaker.
func (s *FillStore) GetByRunID(_ context.Context, runID string) ([]*domain.FillRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FillRecord
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExecutedTime.Equal(result[j].ExecutedTime) {
			return result[i].ExecutedTime.Before(result[j].ExecutedTime)
		}
		return result[i].FillID < result[j].FillID
	})
	return result, nil
}
