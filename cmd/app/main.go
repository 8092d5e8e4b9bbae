package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"perp_patrol/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration")
	flag.Parse()

	// Credentials live in the environment; .env is a convenience for
	// local runs and is absent in production.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	bootstrap, err := app.NewBootstrap(*configPath)
	if err != nil {
		slog.Error("❌ bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.StartFeed(ctx)

	slog.Info("✅ quoting loop starting",
		slog.String("mode", bootstrap.Config.Trading.Mode),
		slog.Any("symbols", bootstrap.Config.Strategy.Symbols))

	if err := bootstrap.Loop.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("loop exited", slog.Any("error", err))
	}

	slog.Info("👋 shutting down gracefully")
}
