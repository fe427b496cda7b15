package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Symbols: %d | Strategies: %d | Scenarios: %d\n\n",
		r.SymbolCount, r.StrategyCount, r.ScenarioCount))

	// Run Results
	sb.WriteString("## Run Results\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Symbol | Strategy | Scenario | Initial | Ending | PnL | Return% | Fills | Rejections |\n")
		sb.WriteString("|--------|----------|----------|---------|--------|-----|---------|-------|------------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.2f | %.2f | %.4f | %d | %d |\n",
				run.Symbol, run.StrategyID, run.ScenarioID,
				run.InitialCash, run.EndingCash, run.PnL, run.ReturnPct*100,
				run.FillCount, run.RejectionCount))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Scenario Sensitivity
	sb.WriteString("## Scenario Sensitivity\n\n")
	if len(r.ScenarioSensitivity) > 0 {
		sb.WriteString("| Symbol | Strategy | Frictionless | Realistic | Pessimistic | Stressed | Drag(pp) |\n")
		sb.WriteString("|--------|----------|--------------|-----------|-------------|----------|----------|\n")
		for _, s := range r.ScenarioSensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				s.Symbol, s.StrategyID,
				s.FrictionlessReturn, s.RealisticReturn, s.PessimisticReturn,
				s.StressedReturn, s.FrictionDragPct))
		}
	} else {
		sb.WriteString("No scenario sensitivity data available.\n")
	}
	sb.WriteString("\n")

	// Fill Activity
	sb.WriteString("## Fill Activity\n\n")
	if len(r.FillActivity) > 0 {
		sb.WriteString("| Run | Symbol | Buys | Sells | Notional | AvgSlippage(bps) |\n")
		sb.WriteString("|-----|--------|------|-------|----------|------------------|\n")
		for _, f := range r.FillActivity {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %.2f |\n",
				shortID(f.RunID), f.Symbol, f.BuyCount, f.SellCount,
				f.TotalNotional, f.AvgSlippage))
		}
	} else {
		sb.WriteString("No fill activity available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortID truncates a hex run ID for table display.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
