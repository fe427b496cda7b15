package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp).
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timestamp, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Timestamp,
			b.Open, b.High, b.Low, b.Close,
			b.Volume,
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

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, ts time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE symbol = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, ts).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar

		err := rows.Scan(
			&b.Symbol, &b.Timestamp,
			&b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
