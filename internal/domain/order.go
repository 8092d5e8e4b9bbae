package domain

// Side identifies one leg of a two-sided quote.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// RestingOrder tracks the one live maker order per (symbol, side).
// Owned exclusively by the executor; never shared with gates or tuner.
type RestingOrder struct {
	OrderID string
	Price   float64
	Size    float64
}
