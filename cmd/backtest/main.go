package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"perp_patrol/internal/app"
	"perp_patrol/internal/compliance"
	"perp_patrol/internal/engine"
	"perp_patrol/internal/execution"
	"perp_patrol/internal/infra"
	"perp_patrol/internal/marketdata"
	"perp_patrol/internal/risk"
	"perp_patrol/internal/telemetry"
)

// The backtest drives the full quoting loop against the simulated
// exchange for a fixed number of ticks, then prints per-symbol
// execution-quality metrics and the realized daily P&L.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration")
	ticks := flag.Int("ticks", 5000, "number of ticks to simulate")
	seed := flag.Int64("seed", 42, "seed for the price walk and fill model")
	fillPct := flag.Float64("fill-pct", 0.15, "probability a resting order fills per tick")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn, // keep per-tick chatter out of the report
	})))

	sim := execution.NewSimClient(*fillPct, *seed)
	metrics := telemetry.NewMetrics()
	reporter := telemetry.NewReporter()
	gate := compliance.NewGate(cfg.Compliance)
	riskMgr := risk.NewManager(cfg.Risk, cfg.Strategy.MinQuoteNotional)
	ks := risk.NewKillSwitch()
	exec := execution.NewExecutor(sim, ks, gate, 0)

	loop := app.NewLoop(app.LoopDeps{
		Config:   cfg,
		Feed:     marketdata.NewSimFeed(cfg.Strategy.Symbols, 0.0005, *seed),
		Engine:   engine.NewQuoteEngine(cfg.Strategy),
		Tuner:    engine.NewTuner(cfg.TIProxy, metrics),
		Risk:     riskMgr,
		Gate:     gate,
		Executor: exec,
		Kill:     ks,
		Metrics:  metrics,
		Reporter: reporter,
		Fills:    sim.Fills(),
		Hooks:    []func(){sim.Step},
	})

	ran := loop.RunTicks(context.Background(), *ticks)

	fmt.Printf("backtest: %d/%d ticks, kill switch %s\n", ran, *ticks, ks.State())
	for _, symbol := range cfg.Strategy.Symbols {
		fmt.Printf("%-12s maker_ratio=%.3f cancels_per_fill=%.2f avg_hold=%s counterparties=%d position=%.2f\n",
			symbol,
			metrics.MakerRatio(symbol),
			metrics.CancelsPerFill(symbol),
			metrics.AvgHoldingTime(symbol),
			metrics.CounterpartyCount(symbol),
			exec.PositionNotional(symbol))
	}
	fmt.Printf("daily_loss=%.2f\n", riskMgr.DailyLoss())
}
