package engine

import (
	"math"
	"testing"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
	"perp_patrol/internal/telemetry"
)

type hintSpy struct{ calls int }

func (h *hintSpy) JitterUp() { h.calls++ }

func tunerFixture(target, maxCancel float64) (*Tuner, *telemetry.Metrics) {
	m := telemetry.NewMetrics()
	tn := NewTuner(infra.TIProxyConfig{
		TargetMakerRatio: target,
		MaxCancelPerFill: maxCancel,
	}, m)
	return tn, m
}

func TestTuner_WidensOnLowMakerRatio(t *testing.T) {
	tn, m := tunerFixture(0.8, 10)

	// 1 maker, 1 taker: ratio 0.5, below target.
	m.RecordFill("BTC-PERP", true, "")
	m.RecordFill("BTC-PERP", false, "")

	q := &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 1, AskSz: 1}
	h := &hintSpy{}
	out := tn.Nudge("BTC-PERP", testBook(), q, h)

	if out != q {
		t.Error("Nudge must mutate and return the same quote")
	}
	if math.Abs(q.BidPx-100*0.999) > 1e-12 {
		t.Errorf("expected bid widened to %f, got %f", 100*0.999, q.BidPx)
	}
	if math.Abs(q.AskPx-101*1.001) > 1e-12 {
		t.Errorf("expected ask widened to %f, got %f", 101*1.001, q.AskPx)
	}
	if h.calls != 0 {
		t.Error("cancel ratio is fine, no refresh hint expected")
	}
}

func TestTuner_SlowsRefreshOnCancelChurn(t *testing.T) {
	tn, m := tunerFixture(0.1, 2)

	// 1 maker fill, 3 cancels: ratio 3 > 2; maker ratio 1.0 is healthy.
	m.RecordFill("BTC-PERP", true, "")
	m.RecordCancel("BTC-PERP")
	m.RecordCancel("BTC-PERP")
	m.RecordCancel("BTC-PERP")

	q := &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 1, AskSz: 1}
	h := &hintSpy{}
	tn.Nudge("BTC-PERP", testBook(), q, h)

	if h.calls != 1 {
		t.Errorf("expected one refresh hint, got %d", h.calls)
	}
	if q.BidPx != 100 || q.AskPx != 101 {
		t.Error("cancel-ratio response must not touch prices")
	}
}

func TestTuner_BothAdjustmentsSameTick(t *testing.T) {
	tn, m := tunerFixture(0.9, 1)

	m.RecordFill("BTC-PERP", true, "")
	m.RecordFill("BTC-PERP", false, "")
	m.RecordCancel("BTC-PERP")
	m.RecordCancel("BTC-PERP")
	m.RecordCancel("BTC-PERP")

	q := &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 1, AskSz: 1}
	h := &hintSpy{}
	tn.Nudge("BTC-PERP", testBook(), q, h)

	if q.BidPx == 100 {
		t.Error("expected widen to apply")
	}
	if h.calls != 1 {
		t.Error("expected refresh hint to apply in the same tick")
	}
}
