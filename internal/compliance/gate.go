package compliance

import (
	"log/slog"
	"sync"
	"time"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

// Gate runs the pre-trade compliance checks: loop prevention via the
// minimum holding time, and amend-rate limiting over a global rolling
// one-second window. The gate never updates its own state from an
// accept/reject decision; the executor calls RecordAmend after a
// successful exchange interaction and the fill path calls RecordFill.
// Thread-safe.
type Gate struct {
	cfg      infra.ComplianceConfig
	detector *LoopDetector

	mu             sync.Mutex
	lastFillMS     map[string]int64
	amendCount     map[string]int
	lastAmendReset time.Time

	now func() time.Time // test hook
}

// NewGate creates a compliance gate.
func NewGate(cfg infra.ComplianceConfig) *Gate {
	return &Gate{
		cfg:            cfg,
		detector:       NewLoopDetector(cfg.LoopMinHoldingMS),
		lastFillMS:     make(map[string]int64),
		amendCount:     make(map[string]int),
		lastAmendReset: time.Now(),
		now:            time.Now,
	}
}

// PretradeOK checks loop prevention then rate limiting. Both must pass.
func (g *Gate) PretradeOK(symbol string, q *domain.Quote) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	nowMS := now.UnixMilli()

	if last, ok := g.lastFillMS[symbol]; ok {
		if !g.detector.OK(last, nowMS) {
			slog.Warn("compliance: holding time not met",
				slog.String("symbol", symbol),
				slog.Int64("since_fill_ms", nowMS-last),
				slog.Int64("min_ms", g.cfg.LoopMinHoldingMS))
			return false
		}
	}

	// The window is global: once more than a second has passed since
	// the last reset, every symbol's counter clears, not just this one.
	if now.Sub(g.lastAmendReset) > time.Second {
		g.amendCount = make(map[string]int)
		g.lastAmendReset = now
	}

	if g.amendCount[symbol] >= g.cfg.MaxAmendsPerSec {
		slog.Warn("compliance: amend rate limit",
			slog.String("symbol", symbol),
			slog.Int("amends", g.amendCount[symbol]),
			slog.Int("max", g.cfg.MaxAmendsPerSec))
		return false
	}

	return true
}

// RecordFill stores the fill timestamp for loop detection.
func (g *Gate) RecordFill(symbol string, tsMS int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFillMS[symbol] = tsMS
}

// RecordAmend counts an amend against the current window. Called by
// the executor only after the exchange interaction succeeded.
func (g *Gate) RecordAmend(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.amendCount[symbol]++
}
