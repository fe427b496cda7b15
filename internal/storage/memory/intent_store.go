package memory

import (
	"context"
	"sort"
	"sync"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// IntentStore is an in-memory implementation of storage.IntentStore.
type IntentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IntentRecord // keyed by intent_id
}

// NewIntentStore creates a new in-memory intent store.
func NewIntentStore() *IntentStore {
	return &IntentStore{data: make(map[string]*domain.IntentRecord)}
}

// Compile-time interface check.
var _ storage.IntentStore = (*IntentStore)(nil)

// InsertBulk adds multiple intents atomically. Fails the entire batch on
// any duplicate intent_id, existing or intra-batch.
func (s *IntentStore) InsertBulk(_ context.Context, intents []*domain.IntentRecord) error {
	if len(intents) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(intents))
	for _, r := range intents {
		if r == nil || r.IntentID == "" || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.IntentID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.IntentID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.IntentID] = struct{}{}
	}

	for _, r := range intents {
		copy := *r
		s.data[r.IntentID] = &copy
	}
	return nil
}

// GetByRunID retrieves all intents for a run, ordered by time ASC with
// intent_id as a deterministic tie-breaker.
func (s *IntentStore) GetByRunID(_ context.Context, runID string) ([]*domain.IntentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.IntentRecord
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].IntentID < result[j].IntentID
	})
	return result, nil
}
