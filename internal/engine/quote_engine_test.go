package engine

import (
	"testing"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

func testStrategyConfig() infra.StrategyConfig {
	return infra.StrategyConfig{
		WidthVolMult:          1.5,
		InvSkewStrength:       0.3,
		ImbalanceSkewStrength: 0.2,
		BaseOrderSize:         0.001,
		MinQuoteNotional:      20,
		MaxInventoryUSD:       1000,
	}
}

func testBook() *domain.OrderBookSnapshot {
	return &domain.OrderBookSnapshot{
		Symbol: "BTC-PERP",
		Bids:   []domain.PriceLevel{{Price: 100, Size: 1}},
		Asks:   []domain.PriceLevel{{Price: 101, Size: 1}},
	}
}

func TestQuoteEngine_BasicQuote(t *testing.T) {
	e := NewQuoteEngine(testStrategyConfig())

	q := e.ComputeQuotes("BTC-PERP", testBook(), 0)

	mid := 100.5
	if !(q.BidPx < mid && mid < q.AskPx) {
		t.Errorf("expected bid < mid < ask, got bid=%f ask=%f", q.BidPx, q.AskPx)
	}
	if q.Crossed() {
		t.Error("flat-inventory quote must not cross")
	}
	if q.BidNotional() < 20 || q.AskNotional() < 20 {
		t.Errorf("leg notionals must clear the floor: bid=%f ask=%f",
			q.BidNotional(), q.AskNotional())
	}
}

func TestQuoteEngine_NotReadyFailsClosed(t *testing.T) {
	e := NewQuoteEngine(testStrategyConfig())

	q := e.ComputeQuotes("BTC-PERP", &domain.OrderBookSnapshot{Symbol: "BTC-PERP"}, 0)
	if q.BidPx != 0 || q.AskPx != 0 || q.BidSz != 0 || q.AskSz != 0 {
		t.Errorf("not-ready book must yield a degenerate quote, got %+v", q)
	}
}

func TestQuoteEngine_InventorySkewLeansQuote(t *testing.T) {
	flat := NewQuoteEngine(testStrategyConfig())
	long := NewQuoteEngine(testStrategyConfig())

	qFlat := flat.ComputeQuotes("BTC-PERP", testBook(), 0)
	qLong := long.ComputeQuotes("BTC-PERP", testBook(), 800) // near the cap

	// A long book should quote lower on both legs to favor selling.
	if qLong.BidPx >= qFlat.BidPx {
		t.Errorf("long inventory should lower the bid: flat=%f long=%f", qFlat.BidPx, qLong.BidPx)
	}
	if qLong.AskPx >= qFlat.AskPx {
		t.Errorf("long inventory should lower the ask: flat=%f long=%f", qFlat.AskPx, qLong.AskPx)
	}
}

func TestQuoteEngine_ImbalanceSkewTradesAgainstFlow(t *testing.T) {
	heavyBids := &domain.OrderBookSnapshot{
		Symbol: "BTC-PERP",
		Bids:   []domain.PriceLevel{{Price: 100, Size: 10}},
		Asks:   []domain.PriceLevel{{Price: 101, Size: 1}},
	}

	neutral := NewQuoteEngine(testStrategyConfig())
	leaned := NewQuoteEngine(testStrategyConfig())

	qNeutral := neutral.ComputeQuotes("BTC-PERP", testBook(), 0)
	qLeaned := leaned.ComputeQuotes("BTC-PERP", heavyBids, 0)

	// Heavy bid depth gives negative skew: both legs shift up, leaning
	// the quote toward the liquid side.
	if qLeaned.BidPx <= qNeutral.BidPx {
		t.Errorf("bid-heavy book should raise the bid: neutral=%f leaned=%f",
			qNeutral.BidPx, qLeaned.BidPx)
	}
}

func TestQuoteEngine_ExtremeSkewNeverCrosses(t *testing.T) {
	// The skew sum is unclamped on purpose, but the formula shifts
	// both legs by the same skew term, so the spread stays exactly
	// twice the half width regardless of magnitude. Even an absurd
	// skew strength cannot cross the legs; the executor's crossed
	// check guards against hand-made quotes, not engine output.
	for _, strength := range []float64{0, 1, 1000, 1e9} {
		cfg := testStrategyConfig()
		cfg.ImbalanceSkewStrength = strength

		e := NewQuoteEngine(cfg)
		book := &domain.OrderBookSnapshot{
			Symbol: "BTC-PERP",
			Bids:   []domain.PriceLevel{{Price: 100, Size: 100}},
			Asks:   []domain.PriceLevel{{Price: 101, Size: 0.0001}},
		}
		// Two updates so realized vol, and with it the half width, is nonzero.
		e.ComputeQuotes("BTC-PERP", book, 0)
		book2 := &domain.OrderBookSnapshot{
			Symbol: "BTC-PERP",
			Bids:   []domain.PriceLevel{{Price: 110, Size: 100}},
			Asks:   []domain.PriceLevel{{Price: 111, Size: 0.0001}},
		}
		q := e.ComputeQuotes("BTC-PERP", book2, 0)

		if q.Crossed() {
			t.Errorf("strength %g: engine output must never cross, got bid=%f ask=%f",
				strength, q.BidPx, q.AskPx)
		}
	}
}

func TestQuoteEngine_SizingClearsNotionalFloor(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MinQuoteNotional = 500
	e := NewQuoteEngine(cfg)

	q := e.ComputeQuotes("BTC-PERP", testBook(), 0)

	// 500 / ~100 = ~5, far above base size 0.001.
	if q.BidSz < 4.9 {
		t.Errorf("expected sizing to grow to meet notional floor, got %f", q.BidSz)
	}
	if q.BidNotional() < 500-1e-9 {
		t.Errorf("bid notional %f below floor", q.BidNotional())
	}
}
