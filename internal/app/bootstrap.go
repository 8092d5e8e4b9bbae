package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"perp_patrol/internal/compliance"
	"perp_patrol/internal/engine"
	"perp_patrol/internal/execution"
	"perp_patrol/internal/infra"
	"perp_patrol/internal/marketdata"
	"perp_patrol/internal/risk"
	"perp_patrol/internal/storage"
	"perp_patrol/internal/telemetry"
)

// Bootstrap assembles the control loop from configuration: logger,
// journal, exchange client for the configured mode, feed, and every
// core component, with persisted daily loss and positions restored.
type Bootstrap struct {
	Config   *infra.Config
	Loop     *Loop
	Reporter *telemetry.Reporter

	journal *storage.FillJournal
	feed    interface{ Stop() } // live feed teardown, nil in SIM mode
}

// NewBootstrap loads config and wires the system. Call Close on exit.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("mode", cfg.Trading.Mode))

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.JournalPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	journal, err := storage.NewFillJournal(cfg.Storage.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open fill journal: %w", err)
	}

	client, err := execution.NewFactory(cfg).CreateClient()
	if err != nil {
		journal.Close()
		return nil, err
	}

	metrics := telemetry.NewMetrics()
	reporter := telemetry.NewReporter()
	gate := compliance.NewGate(cfg.Compliance)
	riskMgr := risk.NewManager(cfg.Risk, cfg.Strategy.MinQuoteNotional)
	ks := risk.NewKillSwitch()

	exec := execution.NewExecutor(client, ks, gate, refreshMin(cfg))

	// Restore durable state: the daily loss hard stop and positions
	// outlive a restart.
	ctx := context.Background()
	restoredPnL, err := journal.LoadDailyPnL(ctx)
	if err != nil {
		slog.Warn("journal: pnl restore failed", slog.Any("err", err))
		restoredPnL = 0
	} else if restoredPnL != 0 {
		riskMgr.UpdateDailyPnL(restoredPnL)
		slog.Info("restored daily pnl", slog.Float64("pnl", restoredPnL))
	}
	if positions, err := journal.Positions(ctx); err != nil {
		slog.Warn("journal: position restore failed", slog.Any("err", err))
	} else {
		exec.RestorePositions(positions)
		for symbol, notional := range positions {
			riskMgr.UpdatePosition(symbol, notional)
		}
	}

	b := &Bootstrap{Config: cfg, Reporter: reporter, journal: journal}

	deps := LoopDeps{
		Config:   cfg,
		Engine:   engine.NewQuoteEngine(cfg.Strategy),
		Tuner:    engine.NewTuner(cfg.TIProxy, metrics),
		Risk:     riskMgr,
		Gate:     gate,
		Executor: exec,
		Kill:     ks,
		Metrics:  metrics,
		Reporter: reporter,
		Journal:  journal,

		RestoredPnL: restoredPnL,
	}

	if sim, ok := client.(*execution.SimClient); ok {
		deps.Feed = marketdata.NewSimFeed(cfg.Strategy.Symbols, 0.0005, 42)
		deps.Fills = sim.Fills()
		deps.Hooks = []func(){sim.Step}
	} else {
		store := marketdata.NewStore()
		live := marketdata.NewLiveFeed(cfg.API.WOOFi.WSURL, cfg.Strategy.Symbols, store)
		deps.Feed = live
		b.feed = live
	}

	b.Loop = NewLoop(deps)
	return b, nil
}

// StartFeed begins live market-data delivery; a no-op in SIM mode.
func (b *Bootstrap) StartFeed(ctx context.Context) {
	if live, ok := b.Loop.feed.(*marketdata.LiveFeed); ok {
		live.Start(ctx)
	}
}

// Close releases feed and journal resources.
func (b *Bootstrap) Close() {
	if b.feed != nil {
		b.feed.Stop()
	}
	if b.journal != nil {
		b.journal.Close()
	}
}

func refreshMin(cfg *infra.Config) time.Duration {
	return time.Duration(cfg.Strategy.RefreshMinMS) * time.Millisecond
}
