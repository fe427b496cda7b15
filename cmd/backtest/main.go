package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"equity-backtest-lab/internal/backtest"
	"equity-backtest-lab/internal/datafeed"
	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/idhash"
	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/series"
	"equity-backtest-lab/internal/storage"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	"equity-backtest-lab/internal/storage/memory"
	pgstore "equity-backtest-lab/internal/storage/postgres"
	"equity-backtest-lab/internal/strategy"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "Instrument symbol to backtest (required)")
	year := flag.Int("year", 0, "Target year for the strategy (required)")
	strategyType := flag.String("strategy", domain.StrategyTypeChristmasLadder, "Strategy: CHRISTMAS_LADDER")
	scenarioName := flag.String("scenario", "realistic", "Scenario: frictionless, realistic, pessimistic, stressed")
	initialCash := flag.Float64("initial-cash", 10000, "Starting cash")

	// Strategy parameters
	buyDays := flag.Int("buy-days", 5, "Trading days before the anchor to accumulate")
	sellDays := flag.Int("sell-days", 10, "Trading days after the anchor to distribute")
	sellTime := flag.String("sell-time", "10:30", "Sell execution time (HH:MM)")
	maxPositionPct := flag.Float64("max-position-pct", 0.10, "Per-order cap as fraction of cash")

	// Data source
	csvDir := flag.String("csv-dir", "", "Directory with <SYMBOL>.csv bar files")
	feedURL := flag.String("feed-url", "", "HTTP market data feed endpoint")
	interval := flag.String("interval", domain.IntervalDaily, "Bar interval for feed requests")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist run, intents and fills to storage")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *year == 0 {
		logger.Fatal("--year is required")
	}

	*strategyType = strings.ToUpper(*strategyType)

	// Get scenario config
	execCfg := domain.ExecutionConfigByScenario(strings.ToLower(*scenarioName))
	if execCfg == nil {
		logger.Fatalf("Invalid scenario: %s. Must be frictionless, realistic, pessimistic, or stressed", *scenarioName)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores for persistence
	var intentStore storage.IntentStore = memory.NewIntentStore()
	var fillStore storage.FillStore = memory.NewFillStore()
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()
	var barStore storage.BarStore

	if *persistResult && !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when persisting without --use-memory (intents and runs)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when persisting without --use-memory (fills)")
		}
	}

	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		intentStore = pgstore.NewIntentStore(pool)
		runStore = pgstore.NewBacktestRunStore(pool)
	}

	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		fillStore = chstore.NewFillStore(conn)
		barStore = chstore.NewBarStore(conn)
	}

	// Load bars
	bars, err := loadBars(ctx, *symbol, *interval, *year, *csvDir, *feedURL, barStore)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	logger.Printf("Loaded %d bars for %s", len(bars), *symbol)

	barSeries, err := series.New(*symbol, bars)
	if err != nil {
		logger.Fatalf("validate bar series: %v", err)
	}

	// Build strategy
	strategyConfig := domain.StrategyConfig{
		StrategyType:      *strategyType,
		Symbol:            *symbol,
		Year:              year,
		BuyDays:           buyDays,
		SellDays:          sellDays,
		SellExecutionTime: sellTime,
		MaxPositionPct:    maxPositionPct,
	}

	strat, err := strategy.DefaultRegistry().Build(strategyConfig)
	if err != nil {
		logger.Fatalf("build strategy: %v", err)
	}

	// Run backtest
	logger.Printf("Running backtest: symbol=%s strategy=%s scenario=%s cash=%.2f",
		*symbol, strat.ID(), execCfg.ScenarioID, *initialCash)

	start := time.Now()
	report, err := backtest.NewRunner(*execCfg).Run(ctx, strat, barSeries, *initialCash)
	if err != nil {
		observability.RecordBacktestRun(execCfg.ScenarioID, "error", time.Since(start).Seconds())
		logger.Fatalf("backtest failed: %v", err)
	}
	observability.RecordBacktestRun(execCfg.ScenarioID, "success", time.Since(start).Seconds())
	observability.RecordSimulation(len(report.Intents), len(report.Fills), rejectionsByReason(report.Rejections))

	// Persist
	if *persistResult {
		if err := persist(ctx, report, intentStore, fillStore, runStore); err != nil {
			logger.Fatalf("persist run: %v", err)
		}
		logger.Printf("Persisted run %s", report.RunID)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(report)
	}
}

// loadBars reads bars from the first configured source.
func loadBars(ctx context.Context, symbol, interval string, year int, csvDir, feedURL string, barStore storage.BarStore) ([]domain.Bar, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	var feed datafeed.Feed
	switch {
	case csvDir != "":
		feed = datafeed.NewCSVFeed(csvDir)
	case feedURL != "":
		feed = datafeed.NewHTTPFeed(feedURL)
	case barStore != nil:
		stored, err := barStore.GetByTimeRange(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		return derefBars(stored), nil
	default:
		return nil, fmt.Errorf("no data source: set --csv-dir, --feed-url or --clickhouse-dsn")
	}

	fetched, err := feed.History(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	return derefBars(fetched), nil
}

func derefBars(bars []*domain.Bar) []domain.Bar {
	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		out[i] = *b
	}
	return out
}

// persist writes the run record, its intents and its fills.
func persist(ctx context.Context, report *backtest.RunReport,
	intentStore storage.IntentStore, fillStore storage.FillStore, runStore storage.BacktestRunStore) error {

	intents := make([]*domain.IntentRecord, len(report.Intents))
	for i, in := range report.Intents {
		intents[i] = &domain.IntentRecord{
			IntentID: idhash.ComputeIntentID(report.RunID, in),
			RunID:    report.RunID,
			Symbol:   report.Symbol,
			Time:     in.Time,
			Side:     in.Side,
			Qty:      in.Qty,
			Price:    in.Price,
			Value:    in.Value,
		}
	}

	fills := make([]*domain.FillRecord, len(report.Fills))
	for i, f := range report.Fills {
		fills[i] = &domain.FillRecord{
			FillID:        idhash.ComputeFillID(report.RunID, f.Side, f.ExecutedTime, f.Qty, f.ExecutedPrice),
			RunID:         report.RunID,
			Symbol:        report.Symbol,
			Time:          f.Time,
			Side:          f.Side,
			Qty:           f.Qty,
			Price:         f.Price,
			ExecutedTime:  f.ExecutedTime,
			ExecutedPrice: f.ExecutedPrice,
			SlippageBps:   f.SlippageBps,
		}
	}

	if err := intentStore.InsertBulk(ctx, intents); err != nil {
		return fmt.Errorf("insert intents: %w", err)
	}
	if err := fillStore.InsertBulk(ctx, fills); err != nil {
		return fmt.Errorf("insert fills: %w", err)
	}
	if err := runStore.Insert(ctx, report.Record(time.Now())); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func rejectionsByReason(rejections []*domain.RejectedIntent) map[string]int {
	byReason := make(map[string]int)
	for _, r := range rejections {
		byReason[string(r.Reason)]++
	}
	return byReason
}

// printReport outputs a human-readable run report.
func printReport(r *backtest.RunReport) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Symbol:             %s\n", r.Symbol)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Printf("Scenario:           %s\n", r.ScenarioID)
	fmt.Println()

	fmt.Println("Result:")
	fmt.Printf("  Initial Cash:     %.2f\n", r.Result.InitialCash)
	fmt.Printf("  Ending Cash:      %.2f\n", r.Result.EndingCash)
	fmt.Printf("  Remaining Shares: %d\n", r.Result.RemainingShares)
	fmt.Printf("  Remaining Value:  %.2f\n", r.Result.RemainingValueMark)
	fmt.Printf("  PnL:              %.2f\n", r.Result.PnL)
	fmt.Printf("  Return:           %.4f%%\n", r.Result.ReturnPct*100)
	fmt.Println()

	fmt.Println("Execution:")
	fmt.Printf("  Intents:          %d\n", len(r.Intents))
	fmt.Printf("  Fills:            %d\n", len(r.Fills))
	fmt.Printf("  Rejections:       %d\n", len(r.Rejections))
	for _, rej := range r.Rejections {
		fmt.Printf("    %s %s qty=%d @ %.4f: %s\n",
			rej.Intent.Time.Format("2006-01-02 15:04"), rej.Intent.Side,
			rej.Intent.Qty, rej.Intent.Price, rej.Reason)
	}
	fmt.Println()

	fmt.Println("Performance:")
	fmt.Printf("  Total Return:     %.2f%%\n", r.Summary.TotalReturn*100)
	fmt.Printf("  Sharpe Ratio:     %.4f\n", r.Summary.SharpeRatio)
	fmt.Printf("  Max Drawdown:     %.2f%%\n", r.Summary.MaxDrawdown*100)
	fmt.Printf("  Win Rate:         %.2f%%\n", r.Summary.WinRate*100)
	fmt.Printf("  Profit Factor:    %.4f\n", r.Summary.ProfitFactor)
}
