package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"perp_patrol/internal/domain"
)

// SimClient is an in-process exchange used in SIM mode and tests. It
// accepts every instruction immediately, tracks resting orders and
// positions, and can probabilistically fill resting orders so the
// fill-notification, compliance and metrics paths run end to end
// without credentials.
type SimClient struct {
	mu      sync.Mutex
	nextID  int
	orders  map[string]simOrder
	pos     map[string]float64
	fillPct float64
	fills   chan domain.Fill
	rng     *rand.Rand
}

type simOrder struct {
	symbol string
	side   domain.Side
	price  float64
	size   float64
}

// NewSimClient creates a simulated exchange. fillPct is the per-tick
// probability that a resting order fills during Step.
func NewSimClient(fillPct float64, seed int64) *SimClient {
	return &SimClient{
		orders:  make(map[string]simOrder),
		pos:     make(map[string]float64),
		fillPct: fillPct,
		fills:   make(chan domain.Fill, 256),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Fills exposes the simulated fill-notification stream.
func (s *SimClient) Fills() <-chan domain.Fill { return s.fills }

// Place implements ExchangeClient.
func (s *SimClient) Place(ctx context.Context, symbol string, side domain.Side, price, size float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("sim-%d", s.nextID)
	s.orders[id] = simOrder{symbol: symbol, side: side, price: price, size: size}
	slog.Debug("sim: placed", slog.String("id", id), slog.String("symbol", symbol), slog.String("side", string(side)))
	return id, nil
}

// Replace implements ExchangeClient. The order keeps its ID.
func (s *SimClient) Replace(ctx context.Context, orderID string, price, size float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return "", fmt.Errorf("sim: unknown order %s", orderID)
	}
	o.price, o.size = price, size
	s.orders[orderID] = o
	return orderID, nil
}

// Cancel implements ExchangeClient.
func (s *SimClient) Cancel(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("sim: unknown order %s", orderID)
	}
	delete(s.orders, orderID)
	return nil
}

// Positions implements ExchangeClient.
func (s *SimClient) Positions(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(s.pos))
	for k, v := range s.pos {
		out[k] = v
	}
	return out, nil
}

// Step advances the simulation one tick: each resting order fills with
// probability fillPct, at its resting price, as a maker. Fills land on
// the notification channel; a full channel drops the fill with a log
// so Step never blocks the tick.
func (s *SimClient) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.orders {
		if s.rng.Float64() >= s.fillPct {
			continue
		}
		delete(s.orders, id)

		notional := o.price * o.size
		if o.side == domain.SideSell {
			notional = -notional
		}
		s.pos[o.symbol] += notional

		fill := domain.Fill{
			Symbol:       o.symbol,
			Side:         o.side,
			Price:        o.price,
			Size:         o.size,
			IsMaker:      true,
			Counterparty: fmt.Sprintf("sim-cp-%d", s.rng.Intn(8)),
			TsMs:         time.Now().UnixMilli(),
		}
		select {
		case s.fills <- fill:
		default:
			slog.Warn("sim: fill channel full, dropping fill", slog.String("symbol", o.symbol))
		}
	}
}

// OpenOrders returns the number of currently resting orders.
func (s *SimClient) OpenOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
