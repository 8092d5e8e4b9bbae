package engine

import "math"

const defaultVolWindow = 50

// VolEstimator tracks a bounded window of recent mid prices and
// produces a realized-volatility estimate as the mean absolute log
// return between consecutive mids. It is a deliberately simple,
// equally-weighted lagging estimator; the quote-width formula depends
// on this exact arithmetic.
//
// Not safe for concurrent use; the control loop owns it.
type VolEstimator struct {
	window int
	mids   []float64
}

// NewVolEstimator creates an estimator with the given window size.
// window <= 0 falls back to the default of 50.
func NewVolEstimator(window int) *VolEstimator {
	if window <= 0 {
		window = defaultVolWindow
	}
	return &VolEstimator{
		window: window,
		mids:   make([]float64, 0, window),
	}
}

// Update appends a new mid price, evicting the oldest when the window
// is full, and returns the instantaneous absolute log return against
// the previous mid. Returns 0 on the first sample or when mid is not
// positive.
func (v *VolEstimator) Update(mid float64) float64 {
	var ret float64
	if len(v.mids) > 0 && mid > 0 {
		ret = math.Abs(math.Log(mid / v.mids[len(v.mids)-1]))
	}
	v.push(mid)
	return ret
}

// Realized returns the mean absolute log return across the stored
// window, or 0 with fewer than 2 samples.
func (v *VolEstimator) Realized() float64 {
	if len(v.mids) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(v.mids); i++ {
		sum += math.Abs(math.Log(v.mids[i] / v.mids[i-1]))
	}
	return sum / float64(len(v.mids)-1)
}

func (v *VolEstimator) push(mid float64) {
	if len(v.mids) == v.window {
		copy(v.mids, v.mids[1:])
		v.mids = v.mids[:v.window-1]
	}
	v.mids = append(v.mids, mid)
}
