package compliance

import "testing"

func TestLoopDetector(t *testing.T) {
	d := NewLoopDetector(1500)

	if d.OK(1000, 2000) {
		t.Error("1000ms gap must be blocked")
	}
	if !d.OK(1000, 2600) {
		t.Error("1600ms gap must pass")
	}
	// Inclusive boundary: exactly the minimum passes.
	if !d.OK(1000, 2500) {
		t.Error("exactly 1500ms gap must pass")
	}
}
