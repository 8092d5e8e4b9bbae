package safe

import (
	"math"
	"testing"
)

func TestFinite(t *testing.T) {
	cases := []struct {
		in   float64
		want bool
	}{
		{0, true},
		{-1.5, true},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, c := range cases {
		if got := Finite(c.in); got != c.want {
			t.Errorf("Finite(%f) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFiniteOr(t *testing.T) {
	if got := FiniteOr(2.5, 0); got != 2.5 {
		t.Errorf("expected 2.5, got %f", got)
	}
	if got := FiniteOr(math.NaN(), 1.0); got != 1.0 {
		t.Errorf("expected fallback 1.0, got %f", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 1); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := Clamp(-5, 0, 1); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := ClampMin(0.5, 1.0); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestPosDiv(t *testing.T) {
	if got := PosDiv(10, 2); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
	// Zero divisor must not produce Inf.
	if got := PosDiv(1, 0); math.IsInf(got, 0) {
		t.Error("PosDiv with zero divisor produced Inf")
	}
}
