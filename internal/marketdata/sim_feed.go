package marketdata

import (
	"math/rand"
	"sync"
	"time"

	"perp_patrol/internal/domain"
)

// SimFeed synthesizes order books from a geometric random walk per
// symbol: each step the mid moves by a gaussian shock and the spread
// tracks the mid's volatility. Used in SIM mode and backtests.
type SimFeed struct {
	mu    sync.Mutex
	mids  map[string]float64
	vol   float64
	rng   *rand.Rand
	nowMS func() int64
}

// NewSimFeed creates a feed starting every symbol at mid 100.0 with
// the given per-step volatility.
func NewSimFeed(symbols []string, vol float64, seed int64) *SimFeed {
	mids := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		mids[s] = 100.0
	}
	return &SimFeed{
		mids:  mids,
		vol:   vol,
		rng:   rand.New(rand.NewSource(seed)),
		nowMS: func() int64 { return time.Now().UnixMilli() },
	}
}

// GetSnapshot advances the walk one step for the symbol and returns
// the resulting book.
func (f *SimFeed) GetSnapshot(symbol string) (*domain.OrderBookSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mid, ok := f.mids[symbol]
	if !ok {
		return nil, false
	}

	shock := f.rng.NormFloat64() * f.vol
	mid *= 1.0 + shock
	f.mids[symbol] = mid

	spread := 0.6 * mid * f.vol
	if spread < 0.1 {
		spread = 0.1
	}

	return &domain.OrderBookSnapshot{
		Symbol: symbol,
		Bids:   []domain.PriceLevel{{Price: mid - spread/2, Size: 1.2}},
		Asks:   []domain.PriceLevel{{Price: mid + spread/2, Size: 1.1}},
		TsMs:   f.nowMS(),
	}, true
}
