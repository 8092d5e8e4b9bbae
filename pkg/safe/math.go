package safe

import "math"

// Finite reports whether f is a usable number (not NaN, not Inf).
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FiniteOr returns f if it is finite, otherwise the fallback.
func FiniteOr(f, fallback float64) float64 {
	if Finite(f) {
		return f
	}
	return fallback
}

// ClampMin returns f, raised to min if below it.
func ClampMin(f, min float64) float64 {
	if f < min {
		return min
	}
	return f
}

// Clamp bounds f to [lo, hi].
func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// PosDiv divides a by b, guarding b with a small positive floor to
// avoid division by zero in sizing arithmetic.
func PosDiv(a, b float64) float64 {
	const eps = 1e-9
	if b < eps {
		b = eps
	}
	return a / b
}
