package risk

import (
	"testing"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

func testManager() *Manager {
	cfg := infra.RiskConfig{
		MaxSymbolNotional: 2000,
		DailyLossLimitUSD: 200,
	}
	return NewManager(cfg, 20)
}

func okQuote() *domain.Quote {
	return &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 0.5, AskSz: 0.5}
}

func TestManager_AcceptsHealthyQuote(t *testing.T) {
	m := testManager()
	if !m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("expected healthy quote to pass")
	}
}

func TestManager_NotionalLimitBoundary(t *testing.T) {
	m := testManager()

	// Exactly at the limit rejects (inclusive boundary).
	m.UpdatePosition("BTC-PERP", 2000)
	if m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("position exactly at limit must reject")
	}

	// Just below accepts.
	m.UpdatePosition("BTC-PERP", 1999.99)
	if !m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("position below limit must accept")
	}

	// Short exposure counts by absolute value.
	m.UpdatePosition("BTC-PERP", -2000)
	if m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("short position at limit must reject")
	}
}

func TestManager_DailyLossHardStop(t *testing.T) {
	m := testManager()

	m.UpdateDailyPnL(-199)
	if !m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("loss below limit must accept")
	}

	m.UpdateDailyPnL(-200)
	if m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("loss at limit must reject")
	}

	// Profit does not accrue a negative loss.
	m.UpdateDailyPnL(500)
	if m.DailyLoss() != 0 {
		t.Errorf("profit should leave loss at 0, got %f", m.DailyLoss())
	}

	// Only an explicit reset clears the stop.
	m.UpdateDailyPnL(-200)
	m.ResetDaily()
	if !m.PretradeOK("BTC-PERP", okQuote()) {
		t.Error("reset must clear the hard stop")
	}
}

func TestManager_MinNotional(t *testing.T) {
	m := testManager()

	thin := &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 0.1, AskSz: 0.5}
	if m.PretradeOK("BTC-PERP", thin) {
		t.Error("bid leg below min notional must reject")
	}

	thin = &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 0.5, AskSz: 0.1}
	if m.PretradeOK("BTC-PERP", thin) {
		t.Error("ask leg below min notional must reject")
	}
}
