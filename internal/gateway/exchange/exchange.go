// Package exchange is the order gateway the execution coordinator talks to.
package exchange

import (
	"context"
	"errors"
	"time"

	"quorum/internal/types"
)

// ErrExchange wraps every failure reported by a gateway implementation.
var ErrExchange = errors.New("exchange error")

// Constraints are the venue limits the coordinator sizes orders against.
type Constraints struct {
	MaxLeverage  int     `json:"max_leverage"`
	MinOrderSize float64 `json:"min_order_size"`
	LotPrecision int32   `json:"lot_precision"`
	TakerFee     float64 `json:"taker_fee"`
}

func DefaultConstraints() Constraints {
	return Constraints{MaxLeverage: 125, MinOrderSize: 0.001, LotPrecision: 3, TakerFee: 0.0004}
}

// OrderRequest is a market order. ReferencePrice is the cycle snapshot
// price; simulated venues fill at it.
type OrderRequest struct {
	ClientID       string
	Symbol         string
	Side           types.OrderSide
	Quantity       float64
	Leverage       int
	ReduceOnly     bool
	ReferencePrice float64
}

type Fill struct {
	OrderID       string    `json:"order_id"`
	ExecutedPrice float64   `json:"executed_price"`
	ExecutedQty   float64   `json:"executed_qty"`
	Fee           float64   `json:"fee"`
	FilledAt      time.Time `json:"filled_at"`
}

// Gateway reads the account and places market orders.
type Gateway interface {
	Name() string
	Account(ctx context.Context) (types.AccountSnapshot, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
}
