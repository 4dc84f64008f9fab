/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the urenwerk balance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and config file
  2. Load labor policies
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the weekly shortage scan scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: config.yaml, also CONFIG_PATH)
  -port    Overrides the configured HTTP port
  -db      Overrides the configured SQLite path (":memory:" works)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
*/
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

	"github.com/urenwerk/balance-engine/api"
	"github.com/urenwerk/balance-engine/config"
	"github.com/urenwerk/balance-engine/factory"
	"github.com/urenwerk/balance-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	policies := factory.DefaultPolicySet()
	if cfg.PolicyPath != "" {
		policies, err = factory.Load(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("Failed to load policies: %v", err)
		}
		log.Printf("Loaded policies from %s", cfg.PolicyPath)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, policies, cfg.Location)
	handler.HistoryWeeks = cfg.HistoryWeeks
	if cfg.LedgerLookback > 0 {
		handler.Requests.Lookback = cfg.LedgerLookback
	}
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	scanner := api.NewWeeklyScanner(store, policies, cfg.Location)
	scanner.HistoryWeeks = cfg.HistoryWeeks
	scanner.Start(cfg.WeeklyScanSchedule)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scanner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}
