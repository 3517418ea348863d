package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/hype-stats-backend/internal/api"
	"github.com/kjannette/hype-stats-backend/internal/config"
	"github.com/kjannette/hype-stats-backend/internal/db"
	"github.com/kjannette/hype-stats-backend/internal/logger"
	"github.com/kjannette/hype-stats-backend/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║        Twitch Hype Stats API         ║
║                                      ║
╚══════════════════════════════════════╝
`

var version = "dev"

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	slog.SetDefault(logger.New(os.Stdout, logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Version: version,
	}))

	// Store. Connections are opened per request; this only checks the URL.
	dialer, err := db.NewDialer(cfg.MongoURL, cfg.MongoDB, cfg.MongoCollection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] %v\n", err)
		os.Exit(1)
	}

	loc, _ := cfg.Location() // checked by Validate
	stats := repository.NewHypeStatsRepo(dialer, loc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := stats.Ping(pingCtx); err != nil {
		slog.Warn("store not reachable at startup, requests will fail until it is", "error", err)
	} else {
		slog.Info("store reachable", "database", cfg.MongoDB, "collection", cfg.MongoCollection)
	}
	cancel()

	srv := api.NewServer(stats, cfg.APIPort, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("API shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
