package domain

import "math"

// PriceLevel is one (price, size) rung of an order book side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is a point-in-time view of the top of a book.
// Bids are sorted descending, asks ascending. Snapshots are immutable
// once handed to the control loop and discarded after the tick.
type OrderBookSnapshot struct {
	Symbol string
	Bids   []PriceLevel
	Asks   []PriceLevel
	TsMs   int64
}

// Ready reports whether both sides have at least one level.
// Consumers must skip a symbol whose snapshot is not ready.
func (b *OrderBookSnapshot) Ready() bool {
	return len(b.Bids) > 0 && len(b.Asks) > 0
}

// Mid returns the midpoint of the best bid and ask, or 0 when not ready.
func (b *OrderBookSnapshot) Mid() float64 {
	if !b.Ready() {
		return 0
	}
	return (b.Bids[0].Price + b.Asks[0].Price) / 2
}

// Spread returns best ask minus best bid, clamped at zero.
// Returns +Inf when the book is not ready.
func (b *OrderBookSnapshot) Spread() float64 {
	if !b.Ready() {
		return math.Inf(1)
	}
	return math.Max(0, b.Asks[0].Price-b.Bids[0].Price)
}

// Imbalance returns the top-5 depth imbalance in [-1, 1].
// Positive means more resting bid liquidity than ask liquidity.
// Returns 0 when both sides are empty.
func (b *OrderBookSnapshot) Imbalance() float64 {
	bidSz := depth(b.Bids, 5)
	askSz := depth(b.Asks, 5)
	tot := bidSz + askSz
	if tot == 0 {
		return 0
	}
	return (bidSz - askSz) / tot
}

func depth(levels []PriceLevel, n int) float64 {
	if len(levels) < n {
		n = len(levels)
	}
	var sum float64
	for _, lv := range levels[:n] {
		sum += lv.Size
	}
	return sum
}
