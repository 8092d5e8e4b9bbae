package woofi

// orderRequest is the order placement / amendment payload.
type orderRequest struct {
	Symbol    string `json:"symbol,omitempty"`
	Side      string `json:"side,omitempty"`
	OrderType string `json:"order_type,omitempty"`
	Price     string `json:"order_price"`
	Quantity  string `json:"order_quantity"`
}

// orderResponse is the order placement / amendment result.
type orderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// positionsResponse wraps the positions listing.
type positionsResponse struct {
	Success bool `json:"success"`
	Rows    []struct {
		Symbol   string  `json:"symbol"`
		Holding  float64 `json:"holding"`
		MarkPx   float64 `json:"mark_price"`
		Notional float64 `json:"notional"`
	} `json:"rows"`
}
