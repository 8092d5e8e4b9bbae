package engine

import (
	"log/slog"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
	"perp_patrol/internal/telemetry"
)

// RefreshHinter lets the tuner ask the executor to slow its quote
// refresh cadence without knowing anything else about execution.
type RefreshHinter interface {
	JitterUp()
}

// Tuner nudges quoting behavior toward the configured transaction
// impact targets using observed fill quality. Adjustments are small
// and independent: a low maker ratio widens the quote a step, a high
// cancel-to-fill ratio slows the refresh cadence. Both can apply in
// the same tick.
type Tuner struct {
	cfg     infra.TIProxyConfig
	metrics *telemetry.Metrics
}

// NewTuner creates a tuner reading from the shared metrics registry.
func NewTuner(cfg infra.TIProxyConfig, metrics *telemetry.Metrics) *Tuner {
	return &Tuner{cfg: cfg, metrics: metrics}
}

// Nudge mutates the quote in place and returns it. The only side
// effects are the returned quote and the executor refresh hint.
func (t *Tuner) Nudge(symbol string, book *domain.OrderBookSnapshot, q *domain.Quote, hinter RefreshHinter) *domain.Quote {
	maker := t.metrics.MakerRatio(symbol)
	if maker < t.cfg.TargetMakerRatio {
		q.BidPx *= 0.999
		q.AskPx *= 1.001
		slog.Debug("tuner widened quote",
			slog.String("symbol", symbol),
			slog.Float64("maker_ratio", maker))
	}

	cancelPF := t.metrics.CancelsPerFill(symbol)
	if cancelPF > t.cfg.MaxCancelPerFill {
		hinter.JitterUp()
		slog.Debug("tuner requested slower refresh",
			slog.String("symbol", symbol),
			slog.Float64("cancels_per_fill", cancelPF))
	}
	return q
}
