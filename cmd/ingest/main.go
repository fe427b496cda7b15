package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"equity-backtest-lab/internal/datafeed"
	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/storage"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	"equity-backtest-lab/internal/storage/memory"
	"equity-backtest-lab/internal/storage/migrations"
)

func main() {
	// Parse flags
	symbols := flag.String("symbols", "", "Comma-separated symbols to ingest (required)")
	interval := flag.String("interval", domain.IntervalDaily, "Bar interval")
	startStr := flag.String("start", "", "Range start, YYYY-MM-DD (required)")
	endStr := flag.String("end", "", "Range end, YYYY-MM-DD (required)")

	// Data source
	csvDir := flag.String("csv-dir", "", "Directory with <SYMBOL>.csv bar files")
	feedURL := flag.String("feed-url", "", "HTTP market data feed endpoint")

	// Storage
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	migrate := flag.Bool("migrate", false, "Apply ClickHouse migrations before ingesting")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	// Validate required flags
	if *symbols == "" {
		logger.Fatal("--symbols is required")
	}
	if *startStr == "" || *endStr == "" {
		logger.Fatal("--start and --end are required")
	}
	if *csvDir == "" && *feedURL == "" {
		logger.Fatal("--csv-dir or --feed-url is required")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		logger.Fatalf("parse --start: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		logger.Fatalf("parse --end: %v", err)
	}
	end = end.Add(24*time.Hour - time.Second)

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

	// Create feed
	var feed datafeed.Feed
	if *csvDir != "" {
		feed = datafeed.NewCSVFeed(*csvDir)
	} else {
		feed = datafeed.NewHTTPFeed(*feedURL)
	}

	// Create store
	var barStore storage.BarStore = memory.NewBarStore()
	if !*useMemory {
		if *migrate {
			conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("apply clickhouse migrations: %v", err)
			}
			defer conn.Close()
			barStore = chstore.NewBarStore(conn)
		} else {
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
			defer conn.Close()
			barStore = chstore.NewBarStore(conn)
		}
	}

	// Ingest each symbol
	total := 0
	for _, symbol := range splitSymbols(*symbols) {
		n, err := ingestSymbol(ctx, feed, barStore, symbol, *interval, start, end)
		if err != nil {
			observability.RecordIngestionError("fetch_or_store")
			logger.Fatalf("ingest %s: %v", symbol, err)
		}
		logger.Printf("Ingested %d bars for %s", n, symbol)
		total += n
	}

	observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
	logger.Printf("Done: %d bars total", total)
}

// ingestSymbol fetches one symbol's bars and stores them.
func ingestSymbol(ctx context.Context, feed datafeed.Feed, store storage.BarStore,
	symbol, interval string, start, end time.Time) (int, error) {

	fetchStart := time.Now()
	bars, err := feed.History(ctx, symbol, interval, start, end)
	observability.RecordFeedRequest("history", time.Since(fetchStart).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("fetch history: %w", err)
	}
	observability.RecordBarsIngested(len(bars))

	if err := store.InsertBulk(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars: %w", err)
	}
	observability.RecordBarsStored(len(bars))

	return len(bars), nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
