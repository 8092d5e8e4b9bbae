package risk

import (
	"log/slog"
	"sync"
	"time"
)

// Kill-switch thresholds. Trips are level-triggered: Tripped is
// re-evaluated every tick and nothing latches beyond the current
// decision.
const (
	errorBurstLimit    = 10
	errorBurstWindow   = 60 * time.Second
	stalenessThreshold = 30 * time.Second
)

// KillSwitch supervises executor and market-data health. The control
// loop evaluates it once per tick after all symbols are processed; on
// a trip the loop cancels all orders, flattens positions and halts.
// Thread-safe: errors and market updates arrive from I/O paths.
type KillSwitch struct {
	mu               sync.Mutex
	errorCount       int
	firstErrorTime   time.Time
	lastMarketUpdate time.Time

	now func() time.Time // test hook
}

// NewKillSwitch creates a supervisor.
func NewKillSwitch() *KillSwitch {
	return &KillSwitch{now: time.Now}
}

// RecordError counts a transport or exchange failure toward the burst
// threshold. Errors older than the burst window no longer describe the
// current burst, so an expired window starts a fresh one.
func (k *KillSwitch) RecordError() {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if k.errorCount == 0 || now.Sub(k.firstErrorTime) >= errorBurstWindow {
		k.errorCount = 0
		k.firstErrorTime = now
	}
	k.errorCount++
}

// ResetErrors clears the error burst. Explicit only.
func (k *KillSwitch) ResetErrors() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.errorCount = 0
}

// MarkMarketUpdate records a confirmed market-data delivery for the
// staleness check.
func (k *KillSwitch) MarkMarketUpdate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lastMarketUpdate = k.now()
}

// Tripped reports whether trading must halt.
func (k *KillSwitch) Tripped() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()

	if k.errorCount > errorBurstLimit && now.Sub(k.firstErrorTime) < errorBurstWindow {
		slog.Error("kill switch: error burst",
			slog.Int("errors", k.errorCount),
			slog.Duration("window", now.Sub(k.firstErrorTime)))
		return true
	}

	if !k.lastMarketUpdate.IsZero() && now.Sub(k.lastMarketUpdate) > stalenessThreshold {
		slog.Error("kill switch: market data stale",
			slog.Duration("silence", now.Sub(k.lastMarketUpdate)))
		return true
	}

	return false
}

// State returns a reporting label: "TRIPPED" or "ARMED".
func (k *KillSwitch) State() string {
	if k.Tripped() {
		return "TRIPPED"
	}
	return "ARMED"
}
