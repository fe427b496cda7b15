package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/reporting"
	"equity-backtest-lab/internal/storage"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	"equity-backtest-lab/internal/storage/memory"
	pgstore "equity-backtest-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (empty report)")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (runs)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (fills)")
		}
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

	// Create stores
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()
	var fillStore storage.FillStore = memory.NewFillStore()

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		runStore = pgstore.NewBacktestRunStore(pool)

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		fillStore = chstore.NewFillStore(conn)
	}

	// Generate report
	report, err := reporting.NewGenerator(runStore, fillStore).Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	// Write outputs
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("create output directory: %v", err)
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		logger.Fatalf("write %s: %v", mdPath, err)
	}

	csvPath := filepath.Join(*outputDir, "runs.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Runs)), 0644); err != nil {
		logger.Fatalf("write %s: %v", csvPath, err)
	}

	logger.Printf("Report written: %d runs, %d symbols -> %s", len(report.Runs), report.SymbolCount, *outputDir)
}
