package execution

import (
	"context"

	"perp_patrol/internal/domain"
)

// ExchangeClient is the exchange connectivity boundary. Calls may fail
// or time out; callers must treat a late response as a failure and
// must never reuse a defaulted value for risk decisions.
type ExchangeClient interface {
	// Place submits a new maker order and returns its order ID.
	Place(ctx context.Context, symbol string, side domain.Side, price, size float64) (string, error)

	// Replace amends an existing order in its logical slot and returns
	// the (possibly new) order ID.
	Replace(ctx context.Context, orderID string, price, size float64) (string, error)

	// Cancel removes an order.
	Cancel(ctx context.Context, orderID string) error

	// Positions returns signed position notional per symbol.
	Positions(ctx context.Context) (map[string]float64, error)
}

// ErrorRecorder receives transport failures for kill-switch accounting.
type ErrorRecorder interface {
	RecordError()
}

// AmendRecorder counts successful exchange interactions toward the
// compliance amend window.
type AmendRecorder interface {
	RecordAmend(symbol string)
}

// CancelRecorder counts cancels toward the metrics registry.
type CancelRecorder interface {
	RecordCancel(symbol string)
}
