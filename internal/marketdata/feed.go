package marketdata

import (
	"sync"

	"perp_patrol/internal/domain"
)

// Feed delivers the latest order-book snapshot per symbol. A missing
// snapshot and a not-ready one are treated identically by consumers:
// skip the symbol this tick.
type Feed interface {
	GetSnapshot(symbol string) (*domain.OrderBookSnapshot, bool)
}

// Store is the shared snapshot buffer between a feed's I/O path and
// the control loop. Writers replace whole snapshots; readers get the
// current pointer, and snapshots are immutable after publication.
type Store struct {
	mu    sync.RWMutex
	books map[string]*domain.OrderBookSnapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{books: make(map[string]*domain.OrderBookSnapshot)}
}

// Set publishes a snapshot for its symbol.
func (s *Store) Set(book *domain.OrderBookSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.Symbol] = book
}

// GetSnapshot returns the latest snapshot for a symbol, if any.
func (s *Store) GetSnapshot(symbol string) (*domain.OrderBookSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	return b, ok
}
