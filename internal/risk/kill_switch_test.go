package risk

import (
	"testing"
	"time"
)

func TestKillSwitch_ErrorBurst(t *testing.T) {
	now := time.Unix(1000, 0)
	k := NewKillSwitch()
	k.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		k.RecordError()
	}
	if k.Tripped() {
		t.Error("10 errors should not trip (threshold is >10)")
	}

	k.RecordError()
	if !k.Tripped() {
		t.Error("11 errors within the window must trip")
	}

	// Level-triggered: after an explicit reset it disarms.
	k.ResetErrors()
	if k.Tripped() {
		t.Error("reset must clear the error burst")
	}
}

func TestKillSwitch_ErrorBurstWindowExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	k := NewKillSwitch()
	k.now = func() time.Time { return now }

	for i := 0; i < 11; i++ {
		k.RecordError()
	}

	// Outside the 60s trailing window the burst no longer trips.
	now = now.Add(61 * time.Second)
	if k.Tripped() {
		t.Error("stale error burst should not trip")
	}
}

func TestKillSwitch_NewBurstAfterStaleErrors(t *testing.T) {
	now := time.Unix(1000, 0)
	k := NewKillSwitch()
	k.now = func() time.Time { return now }

	// A handful of errors, then a long quiet period.
	for i := 0; i < 5; i++ {
		k.RecordError()
	}
	now = now.Add(2 * time.Minute)

	// A dense storm well past the old window must start a fresh burst
	// and trip on its own.
	for i := 0; i < 20; i++ {
		k.RecordError()
	}
	if !k.Tripped() {
		t.Error("dense error storm after a stale burst must trip")
	}
}

func TestKillSwitch_MarketDataStaleness(t *testing.T) {
	now := time.Unix(1000, 0)
	k := NewKillSwitch()
	k.now = func() time.Time { return now }

	// No update ever recorded: the staleness check stays disarmed.
	if k.Tripped() {
		t.Error("no recorded update should not trip")
	}

	k.MarkMarketUpdate()
	now = now.Add(29 * time.Second)
	if k.Tripped() {
		t.Error("fresh data should not trip")
	}

	now = now.Add(2 * time.Second)
	if !k.Tripped() {
		t.Error("31s of silence must trip")
	}

	if k.State() != "TRIPPED" {
		t.Errorf("expected state TRIPPED, got %s", k.State())
	}
}
