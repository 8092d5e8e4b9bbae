package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"perp_patrol/internal/compliance"
	"perp_patrol/internal/domain"
	"perp_patrol/internal/engine"
	"perp_patrol/internal/execution"
	"perp_patrol/internal/infra"
	"perp_patrol/internal/marketdata"
	"perp_patrol/internal/risk"
	"perp_patrol/internal/storage"
	"perp_patrol/internal/telemetry"
)

// Loop is the orchestrator: one logical control thread that, each
// tick, walks every tracked symbol through quote, tune, gate and sync,
// drains fill notifications, then evaluates the kill switch. All core
// state mutates on this goroutine; only the feed and fill stream run
// on I/O paths.
type Loop struct {
	cfg      *infra.Config
	feed     marketdata.Feed
	engine   *engine.QuoteEngine
	tuner    *engine.Tuner
	riskMgr  *risk.Manager
	gate     *compliance.Gate
	exec     *execution.Executor
	ks       *risk.KillSwitch
	metrics  *telemetry.Metrics
	reporter *telemetry.Reporter
	journal  *storage.FillJournal // optional
	fills    <-chan domain.Fill
	pnl      *pnlTracker

	lastFillAt map[string]time.Time

	// tickHooks run once per tick before symbols are processed; SIM
	// mode uses one to advance the simulated exchange.
	tickHooks []func()
}

// LoopDeps carries everything the loop orchestrates.
type LoopDeps struct {
	Config   *infra.Config
	Feed     marketdata.Feed
	Engine   *engine.QuoteEngine
	Tuner    *engine.Tuner
	Risk     *risk.Manager
	Gate     *compliance.Gate
	Executor *execution.Executor
	Kill     *risk.KillSwitch
	Metrics  *telemetry.Metrics
	Reporter *telemetry.Reporter
	Journal  *storage.FillJournal
	Fills    <-chan domain.Fill
	Hooks    []func()

	// RestoredPnL seeds the realized P&L accumulator, typically from
	// the journal after a restart.
	RestoredPnL float64
}

// NewLoop wires the control loop.
func NewLoop(d LoopDeps) *Loop {
	return &Loop{
		cfg:        d.Config,
		feed:       d.Feed,
		engine:     d.Engine,
		tuner:      d.Tuner,
		riskMgr:    d.Risk,
		gate:       d.Gate,
		exec:       d.Executor,
		ks:         d.Kill,
		metrics:    d.Metrics,
		reporter:   d.Reporter,
		journal:    d.Journal,
		fills:      d.Fills,
		pnl:        newPnLTracker(d.RestoredPnL),
		lastFillAt: make(map[string]time.Time),
		tickHooks:  d.Hooks,
	}
}

// Run drives ticks until the context ends or the kill switch trips.
// A trip performs the staged shutdown: cancel all resting orders,
// flatten all positions, halt. No auto-restart within the process.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.cfg.Run.TickMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Arm the staleness check so a feed that never delivers anything
	// still trips it, instead of comparing against the zero time.
	l.ks.MarkMarketUpdate()

	slog.Info("control loop started",
		slog.Int("symbols", len(l.cfg.Strategy.Symbols)),
		slog.Duration("tick", interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("control loop stopping", slog.Any("reason", ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
		}

		if halted := l.runTick(ctx); halted {
			return nil
		}
	}
}

// RunTicks drives exactly n ticks back to back, with no wall-clock
// pacing. Used by the backtest driver. Returns the number of ticks
// actually processed; fewer than n means the kill switch halted the
// run.
func (l *Loop) RunTicks(ctx context.Context, n int) int {
	l.ks.MarkMarketUpdate()
	for i := 0; i < n; i++ {
		if halted := l.runTick(ctx); halted {
			return i + 1
		}
	}
	return n
}

// runTick processes one tick and reports whether trading halted.
func (l *Loop) runTick(ctx context.Context) bool {
	for _, hook := range l.tickHooks {
		hook()
	}

	for _, symbol := range l.cfg.Strategy.Symbols {
		l.processSymbol(ctx, symbol)
	}

	l.drainFills(ctx)

	if l.ks.Tripped() {
		slog.Error("kill switch tripped, flattening and halting")
		l.exec.CancelAll(ctx, l.metrics)
		l.exec.FlattenAll(ctx)
		return true
	}
	return false
}

func (l *Loop) processSymbol(ctx context.Context, symbol string) {
	book, ok := l.feed.GetSnapshot(symbol)
	if !ok || !book.Ready() {
		// Absent and not-ready are the same condition: skip the tick.
		return
	}
	l.ks.MarkMarketUpdate()

	inventory := l.exec.PositionNotional(symbol)
	quote := l.engine.ComputeQuotes(symbol, book, inventory)
	l.tuner.Nudge(symbol, book, &quote, l.exec)

	if l.riskMgr.PretradeOK(symbol, &quote) && l.gate.PretradeOK(symbol, &quote) {
		if err := l.exec.SyncQuotes(ctx, symbol, &quote); err != nil {
			// The executor already surfaced transport failures to the
			// kill switch; a crossed quote is just skipped this tick.
			if errors.Is(err, execution.ErrCrossedQuote) {
				slog.Warn("skipping crossed quote", slog.String("symbol", symbol))
			}
		}
	}

	l.reporter.Publish(telemetry.SymbolSnapshot{
		Symbol:           symbol,
		Quote:            quote,
		PositionNotional: inventory,
		MakerRatio:       l.metrics.MakerRatio(symbol),
		CancelsPerFill:   l.metrics.CancelsPerFill(symbol),
		KillSwitchState:  l.ks.State(),
		TsMs:             book.TsMs,
	})
}

// drainFills applies every pending fill notification: position, loop
// detection, metrics, realized P&L and the journal. These explicit
// calls are the only way fill data enters the core.
func (l *Loop) drainFills(ctx context.Context) {
	if l.fills == nil {
		return
	}
	for {
		select {
		case f := <-l.fills:
			l.applyFill(ctx, &f)
		default:
			return
		}
	}
}

func (l *Loop) applyFill(ctx context.Context, f *domain.Fill) {
	l.exec.ApplyFill(f)
	l.riskMgr.UpdatePosition(f.Symbol, l.exec.PositionNotional(f.Symbol))
	l.gate.RecordFill(f.Symbol, f.TsMs)
	l.metrics.RecordFill(f.Symbol, f.IsMaker, f.Counterparty)

	fillTime := time.UnixMilli(f.TsMs)
	if prev, ok := l.lastFillAt[f.Symbol]; ok {
		l.metrics.RecordHoldingTime(f.Symbol, fillTime.Sub(prev))
	}
	l.lastFillAt[f.Symbol] = fillTime

	pnl := l.pnl.Apply(f)
	l.riskMgr.UpdateDailyPnL(pnl)

	if l.journal != nil {
		if err := l.journal.RecordFill(ctx, f); err != nil {
			slog.Warn("journal: fill write failed", slog.Any("err", err))
		}
		if err := l.journal.SaveDailyPnL(ctx, pnl, f.TsMs); err != nil {
			slog.Warn("journal: pnl write failed", slog.Any("err", err))
		}
	}

	slog.Info("fill applied",
		slog.String("symbol", f.Symbol),
		slog.String("side", string(f.Side)),
		slog.Float64("price", f.Price),
		slog.Float64("size", f.Size),
		slog.Bool("maker", f.IsMaker))
}
