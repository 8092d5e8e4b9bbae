package woofi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"perp_patrol/internal/domain"
	"perp_patrol/internal/infra"
)

// Client is the WOOFi Pro REST client for order execution. Order
// endpoints run behind a token-bucket rate limiter and a circuit
// breaker; every call honors the caller's context deadline.
type Client struct {
	baseURL string
	signer  *Signer
	http    *http.Client
	limiter *infra.RateLimiter
	breaker *infra.CircuitBreaker
}

// NewClient creates a client. Conservative defaults: 10 req/s with a
// burst of 5 on order endpoints.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  NewSigner(apiKey, apiSecret),
		http:    &http.Client{},
		limiter: infra.NewRateLimiter(5, 10),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("woofi-orders")),
	}
}

// Close wipes credentials.
func (c *Client) Close() {
	c.signer.Wipe()
}

// Place submits a post-only limit order.
func (c *Client) Place(ctx context.Context, symbol string, side domain.Side, price, size float64) (string, error) {
	req := orderRequest{
		Symbol:    symbol,
		Side:      string(side),
		OrderType: "POST_ONLY",
		Price:     formatNumber(price),
		Quantity:  formatNumber(size),
	}

	var resp orderResponse
	if err := c.doOrderCall(ctx, http.MethodPost, "/v1/order", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("woofi: place rejected: %s", resp.Message)
	}
	return resp.OrderID, nil
}

// Replace amends an order in place.
func (c *Client) Replace(ctx context.Context, orderID string, price, size float64) (string, error) {
	req := orderRequest{
		Price:    formatNumber(price),
		Quantity: formatNumber(size),
	}

	var resp orderResponse
	path := "/v1/order/" + orderID
	if err := c.doOrderCall(ctx, http.MethodPut, path, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("woofi: replace rejected: %s", resp.Message)
	}
	if resp.OrderID == "" {
		return orderID, nil
	}
	return resp.OrderID, nil
}

// Cancel removes an order.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	var resp orderResponse
	path := "/v1/order/" + orderID
	if err := c.doOrderCall(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("woofi: cancel rejected: %s", resp.Message)
	}
	return nil
}

// Positions returns signed position notional per symbol.
func (c *Client) Positions(ctx context.Context) (map[string]float64, error) {
	var resp positionsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/positions", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("woofi: positions request failed")
	}

	out := make(map[string]float64, len(resp.Rows))
	for _, row := range resp.Rows {
		out[row.Symbol] = row.Notional
	}
	return out, nil
}

// doOrderCall wraps do with the order-endpoint rate limiter and
// circuit breaker.
func (c *Client) doOrderCall(ctx context.Context, method, path string, body any, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("woofi: circuit breaker open")
	}
	if !c.limiter.TryAcquire() {
		return fmt.Errorf("woofi: order rate limit reached")
	}

	err := c.do(ctx, method, path, body, out)
	if err != nil {
		c.breaker.RecordFailure()
		return err
	}
	c.breaker.RecordSuccess()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("woofi: marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("woofi: build request: %w", err)
	}
	for k, v := range c.signer.GenerateHeaders(method, path, string(payload)) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("woofi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("woofi: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("woofi: %s %s: status %d: %s", method, path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("woofi: decode response: %w", err)
		}
	}
	return nil
}

// formatNumber renders a price or size as an exact decimal string.
// %f-style float formatting can introduce representation noise that
// exchanges reject.
func formatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}
