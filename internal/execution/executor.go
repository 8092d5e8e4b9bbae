package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"perp_patrol/internal/domain"
)

// ErrCrossedQuote is returned when a quote's legs have inverted.
// The engine deliberately leaves skew unclamped; the executor is the
// chosen place to refuse the result instead of sending it.
var ErrCrossedQuote = errors.New("crossed quote rejected")

const (
	callTimeout       = 2 * time.Second
	refreshJitterStep = 1.1
	refreshMaxSeconds = 1.5
)

// Executor owns per-symbol resting-order state and synchronizes
// accepted quotes to the exchange. It enforces a single refresh-
// interval throttle shared across all symbols, keeps at most one
// resting order per (symbol, side), and never advances order state on
// a failed exchange call.
type Executor struct {
	client ExchangeClient
	errs   ErrorRecorder
	amends AmendRecorder

	mu         sync.Mutex
	orders     map[string]map[domain.Side]*domain.RestingOrder
	positions  map[string]float64
	lastQuotes map[string]domain.Quote
	lastSync   time.Time
	refreshMin time.Duration

	now func() time.Time // test hook
}

// NewExecutor creates an executor. refreshMin is the initial minimum
// interval between synchronizations across all symbols.
func NewExecutor(client ExchangeClient, errs ErrorRecorder, amends AmendRecorder, refreshMin time.Duration) *Executor {
	return &Executor{
		client:     client,
		errs:       errs,
		amends:     amends,
		orders:     make(map[string]map[domain.Side]*domain.RestingOrder),
		positions:  make(map[string]float64),
		lastQuotes: make(map[string]domain.Quote),
		refreshMin: refreshMin,
		now:        time.Now,
	}
}

// PositionNotional returns the signed position notional for a symbol.
func (e *Executor) PositionNotional(symbol string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positions[symbol]
}

// JitterUp multiplicatively slows the shared refresh interval, capped
// at 1.5s. Monotonic until an external reset; used by the tuner when
// the cancel-to-fill ratio runs hot.
func (e *Executor) JitterUp() {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := time.Duration(float64(e.refreshMin) * refreshJitterStep)
	max := time.Duration(refreshMaxSeconds * float64(time.Second))
	if next > max {
		next = max
	}
	e.refreshMin = next
}

// RefreshMin returns the current shared refresh interval.
func (e *Executor) RefreshMin() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshMin
}

// SyncQuotes places or amends the resting orders for one symbol so
// they match the accepted quote. A call arriving before the shared
// refresh interval has elapsed is a silent no-op. Each side keeps
// exactly one outstanding order: replace, never cancel-then-place,
// in normal operation.
func (e *Executor) SyncQuotes(ctx context.Context, symbol string, q *domain.Quote) error {
	if q.Crossed() {
		slog.Warn("executor: refusing crossed quote",
			slog.String("symbol", symbol),
			slog.Float64("bid", q.BidPx),
			slog.Float64("ask", q.AskPx))
		return ErrCrossedQuote
	}

	e.mu.Lock()
	now := e.now()
	if now.Sub(e.lastSync) < e.refreshMin {
		e.mu.Unlock()
		return nil
	}
	e.lastSync = now
	e.lastQuotes[symbol] = *q
	e.mu.Unlock()

	var errs []error
	if err := e.syncSide(ctx, symbol, domain.SideBuy, q.BidPx, q.BidSz); err != nil {
		errs = append(errs, fmt.Errorf("bid: %w", err))
	}
	if err := e.syncSide(ctx, symbol, domain.SideSell, q.AskPx, q.AskSz); err != nil {
		errs = append(errs, fmt.Errorf("ask: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Executor) syncSide(ctx context.Context, symbol string, side domain.Side, price, size float64) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	e.mu.Lock()
	resting := e.sideMap(symbol)[side]
	e.mu.Unlock()

	if resting != nil {
		id, err := e.client.Replace(ctx, resting.OrderID, price, size)
		if err != nil {
			// State stays put; the next tick retries naturally.
			e.errs.RecordError()
			slog.Warn("executor: replace failed",
				slog.String("symbol", symbol),
				slog.String("side", string(side)),
				slog.Any("err", err))
			return err
		}
		e.mu.Lock()
		e.sideMap(symbol)[side] = &domain.RestingOrder{OrderID: id, Price: price, Size: size}
		e.mu.Unlock()
		e.amends.RecordAmend(symbol)
		return nil
	}

	id, err := e.client.Place(ctx, symbol, side, price, size)
	if err != nil {
		e.errs.RecordError()
		slog.Warn("executor: place failed",
			slog.String("symbol", symbol),
			slog.String("side", string(side)),
			slog.Any("err", err))
		return err
	}
	e.mu.Lock()
	e.sideMap(symbol)[side] = &domain.RestingOrder{OrderID: id, Price: price, Size: size}
	e.mu.Unlock()
	e.amends.RecordAmend(symbol)
	return nil
}

// sideMap must be called with the mutex held.
func (e *Executor) sideMap(symbol string) map[domain.Side]*domain.RestingOrder {
	sm, ok := e.orders[symbol]
	if !ok {
		sm = make(map[domain.Side]*domain.RestingOrder)
		e.orders[symbol] = sm
	}
	return sm
}

// RestorePositions seeds position state at startup, typically from
// the fill journal.
func (e *Executor) RestorePositions(positions map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for symbol, notional := range positions {
		e.positions[symbol] = notional
	}
}

// ApplyFill adjusts the position for a confirmed fill. Called only
// from the fill-notification path.
func (e *Executor) ApplyFill(f *domain.Fill) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions[f.Symbol] += f.Notional()
}

// CancelAll cancels every resting order. Failures are surfaced to the
// error recorder and the slot is kept, so a later retry can still
// reach the order.
func (e *Executor) CancelAll(ctx context.Context, cancels CancelRecorder) {
	e.mu.Lock()
	type slot struct {
		symbol string
		side   domain.Side
		id     string
	}
	var slots []slot
	for symbol, sides := range e.orders {
		for side, o := range sides {
			slots = append(slots, slot{symbol, side, o.OrderID})
		}
	}
	e.mu.Unlock()

	for _, s := range slots {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err := e.client.Cancel(callCtx, s.id)
		cancel()
		if err != nil {
			e.errs.RecordError()
			slog.Warn("executor: cancel failed",
				slog.String("symbol", s.symbol),
				slog.Any("err", err))
			continue
		}
		if cancels != nil {
			cancels.RecordCancel(s.symbol)
		}
		e.mu.Lock()
		delete(e.orders[s.symbol], s.side)
		e.mu.Unlock()
	}
}

// FlattenAll closes every open position with an offsetting order at
// the last quoted price on the aggressive side. Part of the staged
// kill-switch shutdown; best effort, failures go to the error recorder.
func (e *Executor) FlattenAll(ctx context.Context) {
	e.mu.Lock()
	type target struct {
		symbol string
		side   domain.Side
		price  float64
		size   float64
	}
	var targets []target
	for symbol, notional := range e.positions {
		if notional == 0 {
			continue
		}
		q, ok := e.lastQuotes[symbol]
		if !ok || q.BidPx <= 0 || q.AskPx <= 0 {
			slog.Error("executor: cannot flatten without a reference price",
				slog.String("symbol", symbol),
				slog.Float64("notional", notional))
			continue
		}
		side := domain.SideSell
		price := q.BidPx // sell into the bid to exit a long
		if notional < 0 {
			side = domain.SideBuy
			price = q.AskPx
		}
		targets = append(targets, target{symbol, side, price, math.Abs(notional) / price})
	}
	e.mu.Unlock()

	for _, tg := range targets {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		_, err := e.client.Place(callCtx, tg.symbol, tg.side, tg.price, tg.size)
		cancel()
		if err != nil {
			e.errs.RecordError()
			slog.Error("executor: flatten order failed",
				slog.String("symbol", tg.symbol),
				slog.Any("err", err))
			continue
		}
		e.mu.Lock()
		e.positions[tg.symbol] = 0
		e.mu.Unlock()
		slog.Info("executor: position flattened",
			slog.String("symbol", tg.symbol),
			slog.String("side", string(tg.side)),
			slog.Float64("size", tg.size))
	}
}
