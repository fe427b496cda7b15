package clickhouse

import (
	"context"
	"fmt"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// FillStore implements storage.FillStore using ClickHouse.
type FillStore struct {
	conn *Conn
}

// NewFillStore creates a new FillStore.
func NewFillStore(conn *Conn) *FillStore {
	return &FillStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

// InsertBulk adds multiple fills. Fails entire batch on duplicate fill_id.
func (s *FillStore) InsertBulk(ctx context.Context, fills []*domain.FillRecord) error {
	if len(fills) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(fills))
	for _, f := range fills {
		if f == nil || f.FillID == "" || f.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[f.FillID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[f.FillID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, f := range fills {
		exists, err := s.exists(ctx, f.FillID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fills (
			fill_id, run_id, symbol, time, side, qty, price,
			executed_time, executed_price, slippage_bps
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range fills {
		err = batch.Append(
			f.FillID, f.RunID, f.Symbol, f.Time, string(f.Side),
			f.Qty, f.Price,
			f.ExecutedTime, f.ExecutedPrice, f.SlippageBps,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all fills for a run, ordered by executed time ASC
// with fill_id as a deterministic tie-breaker.
func (s *FillStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FillRecord, error) {
	query := `
		SELECT fill_id, run_id, symbol, time, side, qty, price,
			executed_time, executed_price, slippage_bps
		FROM fills
		WHERE run_id = ?
		ORDER BY executed_time ASC, fill_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query fills by run id: %w", err)
	}
	defer rows.Close()

	return scanFills(rows)
}

// exists checks if a fill with the given id exists.
func (s *FillStore) exists(ctx context.Context, fillID string) (bool, error) {
	query := `
		SELECT count(*) FROM fills
		WHERE fill_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, fillID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFills scans multiple rows.
func scanFills(rows chRows) ([]*domain.FillRecord, error) {
	var fills []*domain.FillRecord

	for rows.Next() {
		var f domain.FillRecord
		var side string

		err := rows.Scan(
			&f.FillID, &f.RunID, &f.Symbol, &f.Time, &side,
			&f.Qty, &f.Price,
			&f.ExecutedTime, &f.ExecutedPrice, &f.SlippageBps,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}

		f.Side = domain.Side(side)
		f.Time = f.Time.UTC()
		f.ExecutedTime = f.ExecutedTime.UTC()
		fills = append(fills, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
