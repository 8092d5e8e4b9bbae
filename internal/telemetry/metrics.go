package telemetry

import (
	"sync"
	"time"
)

const holdingTimeCap = 100

// Warm-up priors reported before any fills have been observed, so the
// tuner starts from a healthy baseline instead of dividing by zero.
const (
	priorMakerRatio     = 0.7
	priorCancelsPerFill = 3.0
)

type symbolMetrics struct {
	makerFills     int
	takerFills     int
	cancels        int
	fills          int
	holdingTimes   []time.Duration
	counterparties map[string]struct{}
}

// Metrics accumulates per-symbol fill quality counters. Written by the
// executor and the fill-notification path via the Record* calls, read
// by the tuner and the reporting surface. Ratios are derived on read,
// never stored. Thread-safe.
type Metrics struct {
	mu      sync.RWMutex
	symbols map[string]*symbolMetrics
}

// NewMetrics creates an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{symbols: make(map[string]*symbolMetrics)}
}

func (m *Metrics) get(symbol string) *symbolMetrics {
	sm, ok := m.symbols[symbol]
	if !ok {
		sm = &symbolMetrics{counterparties: make(map[string]struct{})}
		m.symbols[symbol] = sm
	}
	return sm
}

// RecordFill counts a confirmed fill and its counterparty.
func (m *Metrics) RecordFill(symbol string, isMaker bool, counterparty string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm := m.get(symbol)
	sm.fills++
	if isMaker {
		sm.makerFills++
	} else {
		sm.takerFills++
	}
	if counterparty != "" {
		sm.counterparties[counterparty] = struct{}{}
	}
}

// RecordCancel counts a cancelled order.
func (m *Metrics) RecordCancel(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(symbol).cancels++
}

// RecordHoldingTime appends a position holding time, evicting the
// oldest sample past the cap of 100.
func (m *Metrics) RecordHoldingTime(symbol string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm := m.get(symbol)
	sm.holdingTimes = append(sm.holdingTimes, d)
	if len(sm.holdingTimes) > holdingTimeCap {
		sm.holdingTimes = sm.holdingTimes[1:]
	}
}

// MakerRatio returns maker fills over total fills, or the warm-up
// prior when nothing has filled yet.
func (m *Metrics) MakerRatio(symbol string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, ok := m.symbols[symbol]
	if !ok || sm.makerFills+sm.takerFills == 0 {
		return priorMakerRatio
	}
	total := sm.makerFills + sm.takerFills
	return float64(sm.makerFills) / float64(total)
}

// CancelsPerFill returns cancels over fills, or the warm-up prior when
// nothing has filled yet.
func (m *Metrics) CancelsPerFill(symbol string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, ok := m.symbols[symbol]
	if !ok || sm.fills == 0 {
		return priorCancelsPerFill
	}
	return float64(sm.cancels) / float64(sm.fills)
}

// AvgHoldingTime returns the mean of the retained holding times, or 0
// with no samples.
func (m *Metrics) AvgHoldingTime(symbol string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, ok := m.symbols[symbol]
	if !ok || len(sm.holdingTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range sm.holdingTimes {
		sum += d
	}
	return sum / time.Duration(len(sm.holdingTimes))
}

// CounterpartyCount returns the number of distinct counterparties seen.
func (m *Metrics) CounterpartyCount(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, ok := m.symbols[symbol]
	if !ok {
		return 0
	}
	return len(sm.counterparties)
}
