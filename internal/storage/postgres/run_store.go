package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, r *domain.BacktestRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO backtest_runs (
			run_id, symbol, strategy_id, scenario_id,
			initial_cash, ending_cash, remaining_shares, remaining_value_mark,
			pnl, return_pct, fill_count, rejection_count, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Symbol, r.StrategyID, r.ScenarioID,
		r.InitialCash, r.EndingCash, r.RemainingShares, r.RemainingValueMark,
		r.PnL, r.ReturnPct, r.FillCount, r.RejectionCount, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByRunID(ctx context.Context, runID string) (*domain.BacktestRecord, error) {
	query := selectRuns + ` WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by created_at ASC.
func (s *BacktestRunStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRecord, error) {
	query := selectRuns + ` WHERE symbol = $1 ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by symbol: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves every run, ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) GetAll(ctx context.Context) ([]*domain.BacktestRecord, error) {
	query := selectRuns + ` ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

const selectRuns = `
	SELECT run_id, symbol, strategy_id, scenario_id,
		initial_cash, ending_cash, remaining_shares, remaining_value_mark,
		pnl, return_pct, fill_count, rejection_count, created_at
	FROM backtest_runs
`

// scanRun scans a single row into a BacktestRecord.
func scanRun(row pgx.Row) (*domain.BacktestRecord, error) {
	var r domain.BacktestRecord
	err := row.Scan(
		&r.RunID, &r.Symbol, &r.StrategyID, &r.ScenarioID,
		&r.InitialCash, &r.EndingCash, &r.RemainingShares, &r.RemainingValueMark,
		&r.PnL, &r.ReturnPct, &r.FillCount, &r.RejectionCount, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// scanRuns scans multiple rows into a slice of BacktestRecord.
func scanRuns(rows pgx.Rows) ([]*domain.BacktestRecord, error) {
	var runs []*domain.BacktestRecord

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest runs: %w", err)
	}

	return runs, nil
}
