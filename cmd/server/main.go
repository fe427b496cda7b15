// Package main provides a long-running service that streams live quotes,
// exposes Prometheus metrics, and regenerates the backtest report on a
// schedule.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"equity-backtest-lab/internal/datafeed"
	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/reporting"
	"equity-backtest-lab/internal/storage"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	"equity-backtest-lab/internal/storage/memory"
	"equity-backtest-lab/internal/storage/migrations"
	pgstore "equity-backtest-lab/internal/storage/postgres"
)

// Server holds the service state.
type Server struct {
	runStore  storage.BacktestRunStore
	fillStore storage.FillStore
	logger    *log.Logger

	mu            sync.Mutex
	started       time.Time
	lastReportRun time.Time
	reportRuns    int
	latestReport  string // rendered markdown
	lastQuotes    map[string]float64
}

func main() {
	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "Quote stream WebSocket endpoint")
	symbols := flag.String("symbols", "", "Comma-separated symbols to watch")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	reportInterval := flag.Duration("report-interval", 1*time.Hour, "Report regeneration interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/metrics/report")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
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

	// Create stores, applying migrations for DB-backed mode
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()
	var fillStore storage.FillStore = memory.NewFillStore()

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("apply postgres migrations: %v", err)
		}
		runStore = pgstore.NewBacktestRunStore(pool)

		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("apply clickhouse migrations: %v", err)
		}
		defer conn.Close()
		fillStore = chstore.NewFillStore(conn)
	}

	server := &Server{
		runStore:   runStore,
		fillStore:  fillStore,
		logger:     logger,
		started:    time.Now(),
		lastQuotes: make(map[string]float64),
	}

	// Start quote watcher if configured
	if *wsEndpoint != "" && *symbols != "" {
		go server.watchQuotes(ctx, *wsEndpoint, splitSymbols(*symbols))
	}

	// Start report scheduler
	go server.runReportScheduler(ctx, *reportInterval)

	// Start HTTP server
	go server.startHTTPServer(ctx, *httpAddr)

	<-ctx.Done()
	logger.Println("Shutdown complete")
}

// watchQuotes subscribes to live quotes and tracks last prices.
func (s *Server) watchQuotes(ctx context.Context, endpoint string, symbols []string) {
	client, err := datafeed.NewStreamClient(ctx, endpoint, nil)
	if err != nil {
		s.logger.Printf("quote stream unavailable: %v", err)
		return
	}
	defer client.Close()

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		ch, err := client.Subscribe(ctx, symbol)
		if err != nil {
			s.logger.Printf("subscribe %s: %v", symbol, err)
			continue
		}
		s.logger.Printf("Watching quotes for %s", symbol)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case q, ok := <-ch:
					if !ok {
						return
					}
					observability.DefaultMetrics.StreamQuotes.Inc()
					s.mu.Lock()
					s.lastQuotes[q.Symbol] = q.Price
					s.mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
}

// runReportScheduler regenerates the report on an interval.
func (s *Server) runReportScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Printf("Starting report scheduler (interval: %v)...", interval)

	// Run immediately on start
	s.regenerateReport(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.regenerateReport(ctx)
		}
	}
}

// regenerateReport builds and caches the latest markdown report.
func (s *Server) regenerateReport(ctx context.Context) {
	report, err := reporting.NewGenerator(s.runStore, s.fillStore).Generate(ctx)
	if err != nil {
		s.logger.Printf("report generation error: %v", err)
		return
	}
	observability.DefaultMetrics.ReportsGenerated.Inc()

	s.mu.Lock()
	s.latestReport = reporting.RenderMarkdown(report)
	s.lastReportRun = time.Now()
	s.reportRuns++
	s.mu.Unlock()

	s.logger.Printf("Report regenerated: %d runs", len(report.Runs))
}

// startHTTPServer serves health, metrics, status and the latest report.
func (s *Server) startHTTPServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Latest rendered report
	mux.HandleFunc("/report", s.handleReport)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string             `json:"status"`
	Uptime        string             `json:"uptime"`
	LastReportRun time.Time          `json:"last_report_run,omitempty"`
	ReportRuns    int                `json:"report_runs"`
	LastQuotes    map[string]float64 `json:"last_quotes,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := make(map[string]float64, len(s.lastQuotes))
	for k, v := range s.lastQuotes {
		quotes[k] = v
	}

	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		LastReportRun: s.lastReportRun,
		ReportRuns:    s.reportRuns,
		LastQuotes:    quotes,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleReport serves the latest rendered markdown report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.latestReport
	s.mu.Unlock()

	if report == "" {
		http.Error(w, "no report generated yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(report))
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
