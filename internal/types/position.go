package types

import (
	"time"
)

type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Position is a holding in one symbol. At most one is open per symbol.
type Position struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Side          Side       `json:"side"`
	Quantity      float64    `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	RealizedPnL   float64    `json:"realized_pnl"`
	Leverage      int        `json:"leverage"`
	StopLoss      *float64   `json:"stop_loss,omitempty"`
	TakeProfit    *float64   `json:"take_profit,omitempty"`
	IsOpen        bool       `json:"is_open"`
	SignalRef     string     `json:"signal_ref,omitempty"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// PnLAt is the profit of the position if it were closed at price.
func (p Position) PnLAt(price float64) float64 {
	diff := price - p.EntryPrice
	if p.Side == Short {
		diff = -diff
	}
	return diff * p.Quantity
}

// AccountSnapshot is a read-only view of the account at cycle time.
type AccountSnapshot struct {
	AvailableBalance float64   `json:"available_balance"`
	TotalBalance     float64   `json:"total_balance"`
	DailyRealizedPnL float64   `json:"daily_realized_pnl"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	Currency         string    `json:"currency"`
	UpdatedAt        time.Time `json:"updated_at"`
}
