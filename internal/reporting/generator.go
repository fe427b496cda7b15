package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore  storage.BacktestRunStore
	fillStore storage.FillStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.BacktestRunStore, fillStore storage.FillStore) *Generator {
	return &Generator{
		runStore:  runStore,
		fillStore: fillStore,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over all stored runs.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	runRows := generateRunRows(runs)
	sensitivity := generateScenarioSensitivity(runs)

	fillActivity, err := g.generateFillActivity(ctx, runs)
	if err != nil {
		return nil, err
	}

	// Count unique symbols, strategies and scenarios
	symbolSet := make(map[string]struct{})
	strategySet := make(map[string]struct{})
	scenarioSet := make(map[string]struct{})
	for _, r := range runs {
		symbolSet[r.Symbol] = struct{}{}
		strategySet[r.StrategyID] = struct{}{}
		scenarioSet[r.ScenarioID] = struct{}{}
	}

	return &Report{
		GeneratedAt:         g.now(),
		SymbolCount:         len(symbolSet),
		StrategyCount:       len(strategySet),
		ScenarioCount:       len(scenarioSet),
		Runs:                runRows,
		ScenarioSensitivity: sensitivity,
		FillActivity:        fillActivity,
	}, nil
}

// generateRunRows builds sorted run result rows.
func generateRunRows(runs []*domain.BacktestRecord) []RunRow {
	rows := make([]RunRow, len(runs))
	for i, r := range runs {
		rows[i] = RunRow{
			RunID:          r.RunID,
			Symbol:         r.Symbol,
			StrategyID:     r.StrategyID,
			ScenarioID:     r.ScenarioID,
			InitialCash:    r.InitialCash,
			EndingCash:     r.EndingCash,
			PnL:            r.PnL,
			ReturnPct:      r.ReturnPct,
			FillCount:      r.FillCount,
			RejectionCount: r.RejectionCount,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		if rows[i].StrategyID != rows[j].StrategyID {
			return rows[i].StrategyID < rows[j].StrategyID
		}
		return rows[i].ScenarioID < rows[j].ScenarioID
	})
	return rows
}

// generateScenarioSensitivity compares returns across scenarios per
// (symbol, strategy_id) pair. When the same pair was run more than once
// under a scenario, the most recent run wins.
func generateScenarioSensitivity(runs []*domain.BacktestRecord) []ScenarioSensitivityRow {
	type key struct {
		Symbol     string
		StrategyID string
	}
	groups := make(map[key]map[string]*domain.BacktestRecord)

	for _, r := range runs {
		k := key{Symbol: r.Symbol, StrategyID: r.StrategyID}
		if groups[k] == nil {
			groups[k] = make(map[string]*domain.BacktestRecord)
		}
		prev := groups[k][r.ScenarioID]
		if prev == nil || r.CreatedAt.After(prev.CreatedAt) {
			groups[k][r.ScenarioID] = r
		}
	}

	var rows []ScenarioSensitivityRow
	for k, scenarios := range groups {
		row := ScenarioSensitivityRow{
			Symbol:     k.Symbol,
			StrategyID: k.StrategyID,
		}

		if r := scenarios[domain.ScenarioFrictionless]; r != nil {
			row.FrictionlessReturn = r.ReturnPct
		}
		if r := scenarios[domain.ScenarioRealistic]; r != nil {
			row.RealisticReturn = r.ReturnPct
		}
		if r := scenarios[domain.ScenarioPessimistic]; r != nil {
			row.PessimisticReturn = r.ReturnPct
		}
		if r := scenarios[domain.ScenarioStressed]; r != nil {
			row.StressedReturn = r.ReturnPct
		}

		row.FrictionDragPct = row.FrictionlessReturn - row.PessimisticReturn

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].StrategyID < rows[j].StrategyID
	})

	return rows
}

// generateFillActivity loads fills per run and summarizes them.
func (g *Generator) generateFillActivity(ctx context.Context, runs []*domain.BacktestRecord) ([]FillActivityRow, error) {
	var rows []FillActivityRow

	for _, run := range runs {
		fills, err := g.fillStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		if len(fills) == 0 {
			continue
		}

		row := FillActivityRow{
			RunID:  run.RunID,
			Symbol: run.Symbol,
		}
		var slippageSum float64
		for _, f := range fills {
			if f.Side == domain.SideBuy {
				row.BuyCount++
			} else {
				row.SellCount++
			}
			row.TotalNotional += float64(f.Qty) * f.ExecutedPrice
			slippageSum += math.Abs(f.SlippageBps)
		}
		row.AvgSlippage = slippageSum / float64(len(fills))

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].RunID < rows[j].RunID
	})

	return rows, nil
}
