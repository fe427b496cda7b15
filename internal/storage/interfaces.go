// Package storage defines the persistence interfaces for backtest
// artifacts. Implementations live in the memory, postgres, and clickhouse
// subpackages; the core pipeline never depends on a concrete backend.
package storage

import (
	"context"
	"time"

	"equity-backtest-lab/internal/domain"
)

// BarStore provides access to price-bar storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails the entire batch with
	// ErrDuplicateKey on a duplicate (symbol, timestamp).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error)
}

// IntentStore provides access to order-intent storage.
type IntentStore interface {
	// InsertBulk adds multiple intents atomically. Fails the entire batch
	// on any duplicate intent_id.
	InsertBulk(ctx context.Context, intents []*domain.IntentRecord) error

	// GetByRunID retrieves all intents for a run, ordered by time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.IntentRecord, error)
}

// FillStore provides access to realized-fill storage.
type FillStore interface {
	// InsertBulk adds multiple fills atomically. Fails the entire batch on
	// any duplicate fill_id.
	InsertBulk(ctx context.Context, fills []*domain.FillRecord) error

	// GetByRunID retrieves all fills for a run, ordered by executed time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.FillRecord, error)
}

// BacktestRunStore provides access to completed-run storage.
type BacktestRunStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRecord) error

	// GetByRunID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.BacktestRecord, error)

	// GetBySymbol retrieves all runs for a symbol, ordered by created_at ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRecord, error)

	// GetAll retrieves every run, ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestRecord, error)
}
