package compliance

// LoopDetector prevents back-and-forth trading against recently filled
// positions by enforcing a minimum holding time between a fill and the
// next quote. Pure comparison, no state.
type LoopDetector struct {
	minHoldingMS int64
}

// NewLoopDetector creates a detector with the given minimum holding
// time in milliseconds.
func NewLoopDetector(minHoldingMS int64) *LoopDetector {
	return &LoopDetector{minHoldingMS: minHoldingMS}
}

// OK reports whether enough time has passed since the last fill.
// The boundary is inclusive: a gap of exactly the minimum passes.
func (d *LoopDetector) OK(lastFillMS, nowMS int64) bool {
	return nowMS-lastFillMS >= d.minHoldingMS
}
