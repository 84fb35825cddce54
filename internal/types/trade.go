package types

import "time"

type TradeStatus string

const (
	TradeFilled   TradeStatus = "FILLED"
	TradeRejected TradeStatus = "REJECTED"
	// TradeNoOp records an accepted signal that required no order.
	TradeNoOp TradeStatus = "NOOP"
)

type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
	OrderNone OrderSide = "NONE"
)

// Trade is one immutable execution attempt.
type Trade struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           OrderSide   `json:"side"`
	Quantity       float64     `json:"quantity"`
	RequestedPrice float64     `json:"requested_price"`
	ExecutedPrice  *float64    `json:"executed_price,omitempty"`
	Status         TradeStatus `json:"status"`
	Fee            *float64    `json:"fee,omitempty"`
	Leverage       int         `json:"leverage"`
	OrderID        string      `json:"order_id,omitempty"`
	SignalRef      string      `json:"signal_ref"`
	PositionRef    string      `json:"position_ref,omitempty"`
	Note           string      `json:"note,omitempty"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	ExecutedAt     *time.Time  `json:"executed_at,omitempty"`
}
