package telemetry

import (
	"sync"

	"perp_patrol/internal/domain"
)

// SymbolSnapshot is the read-only reporting view for one symbol at one
// tick. All fields are plain values; a consumer can never reach back
// into core state through it.
type SymbolSnapshot struct {
	Symbol           string       `json:"symbol"`
	Quote            domain.Quote `json:"quote"`
	PositionNotional float64      `json:"position_notional"`
	MakerRatio       float64      `json:"maker_ratio"`
	CancelsPerFill   float64      `json:"cancels_per_fill"`
	KillSwitchState  string       `json:"kill_switch_state"`
	TsMs             int64        `json:"ts_ms"`
}

// Reporter holds the latest per-symbol snapshots for the reporting
// surface. The control loop publishes once per symbol per tick;
// readers get copies.
type Reporter struct {
	mu     sync.RWMutex
	latest map[string]SymbolSnapshot
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{latest: make(map[string]SymbolSnapshot)}
}

// Publish stores the snapshot for its symbol.
func (r *Reporter) Publish(s SymbolSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[s.Symbol] = s
}

// Snapshot returns a copy of the latest snapshots for all symbols.
func (r *Reporter) Snapshot() map[string]SymbolSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]SymbolSnapshot, len(r.latest))
	for k, v := range r.latest {
		out[k] = v
	}
	return out
}
