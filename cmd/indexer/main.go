// Package main runs the indexer process: the Block Poller driving the
// Slot Decoder, Event Sink and Live Tracker against a live Solana RPC
// endpoint (spec.md §4).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-lock-signal/internal/blockpoller"
	"solana-lock-signal/internal/config"
	"solana-lock-signal/internal/eventsink"
	"solana-lock-signal/internal/livetracker"
	"solana-lock-signal/internal/observability"
	"solana-lock-signal/internal/slotdecoder"
	"solana-lock-signal/internal/solana"
	"solana-lock-signal/internal/storage"
	chstore "solana-lock-signal/internal/storage/clickhouse"
	"solana-lock-signal/internal/storage/memory"
	pgstore "solana-lock-signal/internal/storage/postgres"
)

// staleReaperInterval is the Live Tracker's cleanup cadence (spec.md §5).
const staleReaperInterval = 30 * time.Second

func main() {
	config.LoadEnvFile(".env")

	configPath := flag.String("config", "config.toml", "path to a TOML config file (overrides environment when present)")
	useMemory := flag.Bool("use-memory", false, "use in-memory storage instead of a durable backend")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for write_lock_events (preferred: time-series backend)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	liveWindow := flag.Int("live-window", livetracker.DefaultWindow, "per-account live-tracker window size")
	flag.Parse()

	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	events, metadata, watermarks, cleanup, err := createEventStores(ctx, cfg, *useMemory, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	decoder := slotdecoder.New(rpc)
	sink := eventsink.New(events, metadata, log.New(os.Stdout, "[eventsink] ", log.LstdFlags))
	tracker := livetracker.New(*liveWindow)

	poller := blockpoller.New(blockpoller.Options{
		RPC:          rpc,
		Decoder:      decoder,
		Sink:         sink,
		LiveTracker:  tracker,
		PollInterval: cfg.PollInterval(),
		Logger:       log.New(os.Stdout, "[poller] ", log.LstdFlags),
		Watermarks:   watermarks,
	})

	go runStaleReaper(ctx, tracker, logger)
	go serveMetrics(*metricsAddr, logger)

	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = poller.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("poller stopped: %v", err)
	}
	logger.Println("shutdown complete")
}

// runStaleReaper periodically prunes Live Tracker entries that have gone
// quiet, per spec.md §4.4's stale reaper.
func runStaleReaper(ctx context.Context, tracker *livetracker.Tracker, logger *log.Logger) {
	ticker := time.NewTicker(staleReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tracker.CleanupStale(); n > 0 {
				observability.DefaultMetrics.LiveTrackerStaleReaped.Add(float64(n))
				logger.Printf("stale reaper pruned %d accounts", n)
			}
			observability.DefaultMetrics.LiveTrackerAccounts.Set(float64(tracker.Len()))
		}
	}
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	logger.Printf("metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("metrics server error: %v", err)
	}
}

// createEventStores wires the durable write_lock_events, account_metadata
// and slot_watermark stores. ClickHouse is preferred for events when a DSN
// is supplied (its ReplacingMergeTree suits the append-heavy workload);
// account_metadata and slot_watermark, both upsert-heavy, live in Postgres.
func createEventStores(ctx context.Context, cfg *config.Config, useMemory bool, clickhouseDSN string) (storage.WriteLockEventStore, storage.AccountMetadataStore, storage.SlotWatermarkStore, func(), error) {
	if useMemory {
		return memory.NewWriteLockEventStore(), memory.NewAccountMetadataStore(), memory.NewSlotWatermarkStore(), func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	metadata := pgstore.NewAccountMetadataStore(pgPool)
	watermarks := pgstore.NewSlotWatermarkStore(pgPool)

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pgPool.Close()
			return nil, nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		events := chstore.NewWriteLockEventStore(conn)
		cleanup := func() {
			conn.Close()
			pgPool.Close()
		}
		return events, metadata, watermarks, cleanup, nil
	}

	events := pgstore.NewWriteLockEventStore(pgPool)
	return events, metadata, watermarks, pgPool.Close, nil
}
