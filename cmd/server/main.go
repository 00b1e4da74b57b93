package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pasacoin/pasanaku-server/internal/api"
	"github.com/pasacoin/pasanaku-server/internal/auth"
	"github.com/pasacoin/pasanaku-server/internal/config"
	"github.com/pasacoin/pasanaku-server/internal/events"
	"github.com/pasacoin/pasanaku-server/internal/rates"
	"github.com/pasacoin/pasanaku-server/internal/service"
	"github.com/pasacoin/pasanaku-server/internal/storage/sql"
	"github.com/pasacoin/pasanaku-server/pkg/logging"
)

func main() {
	logging.Setup()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll("data", 0755); err != nil {
			slog.Error("Failed to create data directory", "error", err)
			os.Exit(1)
		}
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Event dispatcher persists notifications from domain events
	dispatcher := events.NewDispatcher(store, cfg.Events.Buffer)
	defer dispatcher.Close()

	// Group lifecycle engine
	engine := service.New(store, dispatcher)

	// Token verification
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)

	// Display-only exchange rate feed
	feed := rates.NewBinanceFeed(cfg.Rates.URL, cfg.Rates.Asset, cfg.Rates.Fiat, cfg.Rates.TTL)

	// Create router
	router := api.NewRouter(engine, store, jwtManager, feed)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting Pasanaku server", "addr", cfg.Server.Addr(), "driver", cfg.Database.Driver)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
