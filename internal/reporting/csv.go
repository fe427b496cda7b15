package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run result rows as CSV string.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,symbol,strategy_id,scenario_id,")
	sb.WriteString("initial_cash,ending_cash,pnl,return_pct,")
	sb.WriteString("fill_count,rejection_count\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%d,%d\n",
			r.RunID,
			r.Symbol,
			r.StrategyID,
			r.ScenarioID,
			r.InitialCash,
			r.EndingCash,
			r.PnL,
			r.ReturnPct,
			r.FillCount,
			r.RejectionCount,
		))
	}

	return sb.String()
}
