package domain

// Quote is a two-sided maker quote produced by the engine for one symbol.
// The tuner may adjust it in place before gating; gates and the executor
// treat it as read-only.
type Quote struct {
	BidPx float64
	AskPx float64
	BidSz float64
	AskSz float64
}

// BidNotional returns price times size for the bid leg.
func (q *Quote) BidNotional() float64 { return q.BidPx * q.BidSz }

// AskNotional returns price times size for the ask leg.
func (q *Quote) AskNotional() float64 { return q.AskPx * q.AskSz }

// Crossed reports whether the quote's legs have inverted.
// The engine does not clamp skew, so extreme inventory or imbalance
// can produce ask <= bid; the executor refuses to send such quotes.
func (q *Quote) Crossed() bool { return q.AskPx <= q.BidPx }
