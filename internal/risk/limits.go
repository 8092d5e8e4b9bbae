package risk

import (
	"log/slog"
	"math"
	"sync"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

// Manager runs the pre-trade risk checks. It is side-effect-free apart
// from logging; position and P&L state mutate only through the explicit
// Update* calls made by the fill-handling path. Thread-safe.
type Manager struct {
	cfg infra.RiskConfig

	mu               sync.RWMutex
	minQuoteNotional float64
	dailyLoss        float64
	positions        map[string]float64 // symbol -> signed notional
}

// notionalEps absorbs the rounding of sizing a leg as notional/price
// and then checking price*size, which can land one ulp under the floor.
const notionalEps = 1e-6

// NewManager creates a risk manager.
func NewManager(cfg infra.RiskConfig, minQuoteNotional float64) *Manager {
	return &Manager{
		cfg:              cfg,
		minQuoteNotional: minQuoteNotional,
		positions:        make(map[string]float64),
	}
}

// PretradeOK runs the checks in order; the first failure rejects the
// quote for this tick. The limit boundary is inclusive: a position
// exactly at max_symbol_notional rejects.
func (m *Manager) PretradeOK(symbol string, q *domain.Quote) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	notional := math.Abs(m.positions[symbol])
	if notional >= m.cfg.MaxSymbolNotional {
		slog.Warn("risk: symbol at notional limit",
			slog.String("symbol", symbol),
			slog.Float64("notional", notional),
			slog.Float64("limit", m.cfg.MaxSymbolNotional))
		return false
	}

	// Hard stop. Only an explicit ResetDaily clears it.
	if m.dailyLoss >= m.cfg.DailyLossLimitUSD {
		slog.Error("risk: daily loss limit reached",
			slog.Float64("loss", m.dailyLoss),
			slog.Float64("limit", m.cfg.DailyLossLimitUSD))
		return false
	}

	if q.BidNotional() < m.minQuoteNotional-notionalEps || q.AskNotional() < m.minQuoteNotional-notionalEps {
		slog.Warn("risk: quote below min notional",
			slog.String("symbol", symbol),
			slog.Float64("bid_notional", q.BidNotional()),
			slog.Float64("ask_notional", q.AskNotional()),
			slog.Float64("min", m.minQuoteNotional))
		return false
	}

	return true
}

// UpdatePosition sets the signed position notional for a symbol.
func (m *Manager) UpdatePosition(symbol string, notional float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = notional
}

// UpdateDailyPnL records cumulative daily P&L; only the loss side
// counts toward the limit.
func (m *Manager) UpdateDailyPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLoss = math.Max(0, -pnl)
}

// DailyLoss returns the accumulated loss for reporting.
func (m *Manager) DailyLoss() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dailyLoss
}

// ResetDaily clears the accumulated daily loss. Never called
// automatically within a process run.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLoss = 0
	slog.Info("risk: daily loss reset")
}
