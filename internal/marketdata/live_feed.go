package marketdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

// LiveFeed consumes per-symbol order-book topics over a websocket and
// publishes snapshots into a Store. Connection lifecycle (reconnect,
// backoff, ping, read deadlines) is owned by the BaseWSWorker.
type LiveFeed struct {
	url     string
	symbols []string
	store   *Store
	worker  *infra.BaseWSWorker
}

// NewLiveFeed creates the feed; Start must be called to connect.
func NewLiveFeed(url string, symbols []string, store *Store) *LiveFeed {
	f := &LiveFeed{url: url, symbols: symbols, store: store}
	f.worker = infra.NewBaseWSWorker(f)
	return f
}

// Start begins the connection loop.
func (f *LiveFeed) Start(ctx context.Context) { f.worker.Start(ctx) }

// Stop tears the connection down.
func (f *LiveFeed) Stop() { f.worker.Stop() }

// GetSnapshot implements Feed by reading the store.
func (f *LiveFeed) GetSnapshot(symbol string) (*domain.OrderBookSnapshot, bool) {
	return f.store.GetSnapshot(symbol)
}

// GetURL implements infra.WebSocketHandler.
func (f *LiveFeed) GetURL() string { return f.url }

// ID implements infra.WebSocketHandler.
func (f *LiveFeed) ID() string { return "woofi-orderbook" }

// OnConnect subscribes to the order-book topic for every symbol.
func (f *LiveFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	for _, symbol := range f.symbols {
		sub := map[string]string{
			"event": "subscribe",
			"topic": symbol + "@orderbook",
		}
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// OnPing implements infra.WebSocketHandler.
func (f *LiveFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping"}`))
}

type bookMessage struct {
	Topic string `json:"topic"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Bids [][2]float64 `json:"bids"` // [price, size], descending
		Asks [][2]float64 `json:"asks"` // ascending
	} `json:"data"`
}

// OnMessage parses an order-book update and publishes the snapshot.
// Unknown topics and malformed payloads are dropped with a debug log;
// the staleness kill switch covers a feed that stops producing
// anything parseable.
func (f *LiveFeed) OnMessage(ctx context.Context, msg []byte) {
	var m bookMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Debug("live feed: unparseable message", slog.Any("err", err))
		return
	}

	symbol, ok := strings.CutSuffix(m.Topic, "@orderbook")
	if !ok {
		return
	}

	book := &domain.OrderBookSnapshot{
		Symbol: symbol,
		Bids:   toLevels(m.Data.Bids),
		Asks:   toLevels(m.Data.Asks),
		TsMs:   m.Ts,
	}
	if book.TsMs == 0 {
		book.TsMs = time.Now().UnixMilli()
	}
	f.store.Set(book)
}

func toLevels(raw [][2]float64) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		levels = append(levels, domain.PriceLevel{Price: r[0], Size: r[1]})
	}
	return levels
}
