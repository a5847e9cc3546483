// Package main runs the API process: the read-only HTTP query surface
// and push channel over the write_lock_events store (spec.md §4.5-§4.6).
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

	"solana-lock-signal/internal/api"
	"solana-lock-signal/internal/config"
	"solana-lock-signal/internal/livetracker"
	"solana-lock-signal/internal/storage"
	chstore "solana-lock-signal/internal/storage/clickhouse"
	"solana-lock-signal/internal/storage/memory"
	pgstore "solana-lock-signal/internal/storage/postgres"
)

func main() {
	config.LoadEnvFile(".env")

	configPath := flag.String("config", "config.toml", "path to a TOML config file (overrides environment when present)")
	useMemory := flag.Bool("use-memory", false, "use in-memory storage instead of a durable backend")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for write_lock_events")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	liveWindow := flag.Int("live-window", livetracker.DefaultWindow, "per-account live-tracker window size")
	flag.Parse()

	logger := log.New(os.Stdout, "[api] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	events, cleanup, err := createEventStore(ctx, cfg, *useMemory, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("create store: %v", err)
	}
	defer cleanup()

	// The API process keeps its own Live Tracker instance. Nothing in this
	// process records slots into it, so it stays empty and the handlers
	// answer from the durable store (internal/api/handlers.go).
	tracker := livetracker.New(*liveWindow)

	server := api.New(api.Options{
		Events:      events,
		LiveTracker: tracker,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	go func() {
		logger.Printf("API server listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received signal %v, shutting down", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		httpServer.Shutdown(shutdownCtx)
		close(done)
	}()

	select {
	case sig := <-sigCh:
		logger.Printf("received second signal %v, forcing exit", sig)
		os.Exit(1)
	case <-shutdownCtx.Done():
		logger.Println("graceful shutdown timed out after 30s, forcing exit")
		os.Exit(1)
	case <-done:
	}
	logger.Println("shutdown complete")
}

// createEventStore wires the read side of the durable write_lock_events
// store, mirroring cmd/indexer's backend-selection rule.
func createEventStore(ctx context.Context, cfg *config.Config, useMemory bool, clickhouseDSN string) (storage.WriteLockEventStore, func(), error) {
	if useMemory {
		return memory.NewWriteLockEventStore(), func() {}, nil
	}

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewWriteLockEventStore(conn), func() { conn.Close() }, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pgstore.NewWriteLockEventStore(pgPool), pgPool.Close, nil
}
