package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// IntentStore implements storage.IntentStore using PostgreSQL.
type IntentStore struct {
	pool *Pool
}

// NewIntentStore creates a new IntentStore.
func NewIntentStore(pool *Pool) *IntentStore {
	return &IntentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IntentStore = (*IntentStore)(nil)

// InsertBulk adds multiple intents atomically. Fails the entire batch on
// any duplicate intent_id.
func (s *IntentStore) InsertBulk(ctx context.Context, intents []*domain.IntentRecord) error {
	if len(intents) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO order_intents (
			intent_id, run_id, symbol, time, side, qty, price, value
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, r := range intents {
		if r == nil || r.IntentID == "" || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.IntentID,
			r.RunID,
			r.Symbol,
			r.Time,
			string(r.Side),
			r.Qty,
			r.Price,
			r.Value,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert intent in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all intents for a run, ordered by time ASC.
func (s *IntentStore) GetByRunID(ctx context.Context, runID string) ([]*domain.IntentRecord, error) {
	query := `
		SELECT intent_id, run_id, symbol, time, side, qty, price, value
		FROM order_intents
		WHERE run_id = $1
		ORDER BY time ASC, intent_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get intents by run id: %w", err)
	}
	defer rows.Close()

	return scanIntents(rows)
}

// scanIntents scans multiple rows into a slice of IntentRecord.
func scanIntents(rows pgx.Rows) ([]*domain.IntentRecord, error) {
	var intents []*domain.IntentRecord

	for rows.Next() {
		var r domain.IntentRecord
		var side string
		if err := rows.Scan(
			&r.IntentID,
			&r.RunID,
			&r.Symbol,
			&r.Time,
			&side,
			&r.Qty,
			&r.Price,
			&r.Value,
		); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		r.Side = domain.Side(side)
		intents = append(intents, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}

	return intents, nil
}
