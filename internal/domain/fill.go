package domain

// Fill is a confirmed execution delivered by the fill-notification
// boundary. The control loop applies fills to position, compliance and
// metrics state; nothing in the core infers fills on its own.
type Fill struct {
	Symbol       string
	Side         Side
	Price        float64
	Size         float64
	IsMaker      bool
	Counterparty string
	TsMs         int64
}

// Notional returns the signed notional of the fill: positive for a
// buy (exposure up), negative for a sell.
func (f *Fill) Notional() float64 {
	n := f.Price * f.Size
	if f.Side == SideSell {
		return -n
	}
	return n
}
