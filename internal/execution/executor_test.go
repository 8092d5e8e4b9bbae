package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"perp_patrol/internal/domain"
)

// fakeClient counts exchange interactions and can be told to fail.
type fakeClient struct {
	mu       sync.Mutex
	places   int
	replaces int
	cancels  int
	nextID   int
	failNext bool
}

func (f *fakeClient) Place(ctx context.Context, symbol string, side domain.Side, price, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return "", errors.New("simulated transport failure")
	}
	f.places++
	f.nextID++
	return fmt.Sprintf("ord-%d", f.nextID), nil
}

func (f *fakeClient) Replace(ctx context.Context, orderID string, price, size float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return "", errors.New("simulated transport failure")
	}
	f.replaces++
	return orderID, nil
}

func (f *fakeClient) Cancel(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeClient) Positions(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{}, nil
}

type errSpy struct{ count int }

func (e *errSpy) RecordError() { e.count++ }

type amendSpy struct{ count int }

func (a *amendSpy) RecordAmend(symbol string) { a.count++ }

type cancelSpy struct{ count int }

func (c *cancelSpy) RecordCancel(symbol string) { c.count++ }

func fixture(refresh time.Duration) (*Executor, *fakeClient, *errSpy, *amendSpy, *time.Time) {
	client := &fakeClient{}
	errs := &errSpy{}
	amends := &amendSpy{}
	now := time.Unix(1000, 0)
	e := NewExecutor(client, errs, amends, refresh)
	e.now = func() time.Time { return now }
	return e, client, errs, amends, &now
}

func quote() *domain.Quote {
	return &domain.Quote{BidPx: 100, AskPx: 101, BidSz: 1, AskSz: 1}
}

func TestExecutor_PlaceThenReplace(t *testing.T) {
	e, client, _, amends, now := fixture(300 * time.Millisecond)
	ctx := context.Background()

	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if client.places != 2 || client.replaces != 0 {
		t.Errorf("first sync should place both sides: places=%d replaces=%d",
			client.places, client.replaces)
	}

	*now = now.Add(400 * time.Millisecond)
	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if client.places != 2 || client.replaces != 2 {
		t.Errorf("second sync should replace, not re-place: places=%d replaces=%d",
			client.places, client.replaces)
	}
	if amends.count != 4 {
		t.Errorf("expected 4 recorded amends, got %d", amends.count)
	}
}

func TestExecutor_GlobalRefreshThrottle(t *testing.T) {
	e, client, _, _, now := fixture(300 * time.Millisecond)
	ctx := context.Background()

	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	interactions := client.places + client.replaces

	// Within the window: a no-op, even for a different symbol, because
	// the throttle timer is shared across all symbols.
	*now = now.Add(100 * time.Millisecond)
	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("throttled sync: %v", err)
	}
	if err := e.SyncQuotes(ctx, "ETH-PERP", quote()); err != nil {
		t.Fatalf("throttled sync other symbol: %v", err)
	}
	if got := client.places + client.replaces; got != interactions {
		t.Errorf("throttled syncs must not touch the exchange: %d -> %d", interactions, got)
	}
}

func TestExecutor_JitterUpCapped(t *testing.T) {
	e, _, _, _, _ := fixture(1 * time.Second)

	for i := 0; i < 20; i++ {
		e.JitterUp()
	}
	if got := e.RefreshMin(); got != 1500*time.Millisecond {
		t.Errorf("expected refresh capped at 1.5s, got %v", got)
	}
}

func TestExecutor_FailureDoesNotAdvanceState(t *testing.T) {
	e, client, errs, _, now := fixture(300 * time.Millisecond)
	ctx := context.Background()

	// Bid place fails; ask succeeds.
	client.failNext = true
	err := e.SyncQuotes(ctx, "BTC-PERP", quote())
	if err == nil {
		t.Fatal("expected an error from the failed leg")
	}
	if errs.count != 1 {
		t.Errorf("failure must reach the error recorder, got %d", errs.count)
	}

	// Next tick the bid slot is still empty, so it is placed, while
	// the ask slot replaces.
	*now = now.Add(400 * time.Millisecond)
	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("recovery sync: %v", err)
	}
	if client.places != 2 {
		t.Errorf("expected the failed slot re-placed (2 places total), got %d", client.places)
	}
	if client.replaces != 1 {
		t.Errorf("expected the surviving slot replaced once, got %d", client.replaces)
	}
}

func TestExecutor_RejectsCrossedQuote(t *testing.T) {
	e, client, _, _, _ := fixture(0)
	ctx := context.Background()

	crossed := &domain.Quote{BidPx: 101, AskPx: 100, BidSz: 1, AskSz: 1}
	err := e.SyncQuotes(ctx, "BTC-PERP", crossed)
	if !errors.Is(err, ErrCrossedQuote) {
		t.Fatalf("expected ErrCrossedQuote, got %v", err)
	}
	if client.places+client.replaces != 0 {
		t.Error("crossed quote must never reach the exchange")
	}
}

func TestExecutor_ApplyFillAndFlatten(t *testing.T) {
	e, client, _, _, _ := fixture(0)
	ctx := context.Background()

	if err := e.SyncQuotes(ctx, "BTC-PERP", quote()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	e.ApplyFill(&domain.Fill{Symbol: "BTC-PERP", Side: domain.SideBuy, Price: 100, Size: 2})
	if got := e.PositionNotional("BTC-PERP"); got != 200 {
		t.Errorf("expected position 200, got %f", got)
	}

	cancels := &cancelSpy{}
	e.CancelAll(ctx, cancels)
	if client.cancels != 2 {
		t.Errorf("expected both resting orders cancelled, got %d", client.cancels)
	}
	if cancels.count != 2 {
		t.Errorf("expected 2 recorded cancels, got %d", cancels.count)
	}

	placesBefore := client.places
	e.FlattenAll(ctx)
	if client.places != placesBefore+1 {
		t.Errorf("expected one offsetting order, got %d new", client.places-placesBefore)
	}
	if got := e.PositionNotional("BTC-PERP"); got != 0 {
		t.Errorf("expected flat position, got %f", got)
	}
}
