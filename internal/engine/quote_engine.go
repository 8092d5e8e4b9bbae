package engine

import (
	"log/slog"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
	"perp_patrol/pkg/safe"
)

// QuoteEngine derives a two-sided maker quote from the current book,
// realized volatility and inventory. It fails closed by returning a
// degenerate zero quote only when handed a book that is not ready;
// callers are expected to check readiness first.
type QuoteEngine struct {
	cfg  infra.StrategyConfig
	vols map[string]*VolEstimator
}

// NewQuoteEngine creates an engine with one volatility estimator per
// tracked symbol, allocated lazily.
func NewQuoteEngine(cfg infra.StrategyConfig) *QuoteEngine {
	return &QuoteEngine{
		cfg:  cfg,
		vols: make(map[string]*VolEstimator),
	}
}

// ComputeQuotes builds the quote for one symbol and tick.
//
// Half-width scales with realized volatility and price level, floored
// at a small epsilon so a dead market still produces a nonzero width.
// Inventory skew leans the quote against current exposure; imbalance
// skew leans toward the heavier side of the book. The skew sum is
// intentionally not clamped: under extreme inputs the legs can invert,
// and the executor rejects crossed quotes rather than the engine
// silently fixing them.
func (e *QuoteEngine) ComputeQuotes(symbol string, book *domain.OrderBookSnapshot, inventoryNotional float64) domain.Quote {
	if !book.Ready() {
		return domain.Quote{}
	}

	mid := book.Mid()
	vol := e.vol(symbol)
	vol.Update(mid)
	rv := vol.Realized()

	halfWidth := safe.ClampMin(e.cfg.WidthVolMult*rv*mid, 1e-6)

	invSkew := e.cfg.InvSkewStrength * safe.PosDiv(inventoryNotional, e.cfg.MaxInventoryUSD)
	imbSkew := e.cfg.ImbalanceSkewStrength * -book.Imbalance()
	skew := invSkew + imbSkew

	bid := mid - halfWidth*(1+skew)
	ask := mid + halfWidth*(1-skew)

	q := domain.Quote{
		BidPx: bid,
		AskPx: ask,
		BidSz: safe.ClampMin(safe.PosDiv(e.cfg.MinQuoteNotional, bid), e.cfg.BaseOrderSize),
		AskSz: safe.ClampMin(safe.PosDiv(e.cfg.MinQuoteNotional, ask), e.cfg.BaseOrderSize),
	}

	if q.Crossed() {
		slog.Warn("quote engine produced crossed quote",
			slog.String("symbol", symbol),
			slog.Float64("skew", skew),
			slog.Float64("bid", q.BidPx),
			slog.Float64("ask", q.AskPx))
	}
	return q
}

func (e *QuoteEngine) vol(symbol string) *VolEstimator {
	v, ok := e.vols[symbol]
	if !ok {
		v = NewVolEstimator(defaultVolWindow)
		e.vols[symbol] = v
	}
	return v
}
