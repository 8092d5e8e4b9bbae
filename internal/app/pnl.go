package app

import (
	"math"

	"perp_patrol/internal/domain"
)

// pnlTracker derives realized P&L from the fill stream using average
// entry prices. Reducing fills realize the difference against the
// average entry; extending fills only move the average.
type pnlTracker struct {
	positions map[string]*entry
	realized  float64
}

type entry struct {
	qty   float64 // signed base quantity, positive long
	avgPx float64
}

// newPnLTracker starts from a realized base, normally 0; after a
// restart the journaled daily P&L is passed in so the first fill
// extends the day's running total instead of restarting it.
func newPnLTracker(realized float64) *pnlTracker {
	return &pnlTracker{positions: make(map[string]*entry), realized: realized}
}

// Apply folds one fill in and returns the cumulative realized P&L.
func (t *pnlTracker) Apply(f *domain.Fill) float64 {
	e, ok := t.positions[f.Symbol]
	if !ok {
		e = &entry{}
		t.positions[f.Symbol] = e
	}

	qty := f.Size
	if f.Side == domain.SideSell {
		qty = -qty
	}

	switch {
	case e.qty == 0 || sameSign(e.qty, qty):
		// Extending: weighted-average entry.
		total := e.qty + qty
		e.avgPx = (e.avgPx*math.Abs(e.qty) + f.Price*math.Abs(qty)) / math.Abs(total)
		e.qty = total

	default:
		// Reducing (possibly through zero).
		closed := math.Min(math.Abs(qty), math.Abs(e.qty))
		direction := 1.0
		if e.qty < 0 {
			direction = -1.0
		}
		t.realized += (f.Price - e.avgPx) * closed * direction

		e.qty += qty
		if e.qty == 0 {
			e.avgPx = 0
		} else if !sameSign(e.qty, direction) {
			// Flipped: the remainder opened at the fill price.
			e.avgPx = f.Price
		}
	}

	return t.realized
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
