// Package market holds the snapshot handed to advisory sources each cycle.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrNotAvailable is returned when no snapshot can be produced this cycle.
var ErrNotAvailable = errors.New("market data not available")

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Snapshot is the market state for one symbol at one instant.
type Snapshot struct {
	Symbol      string     `json:"symbol"`
	Price       float64    `json:"price"`
	Change24h   float64    `json:"change_24h_pct"`
	Volume24h   float64    `json:"volume_24h"`
	High24h     float64    `json:"high_24h"`
	Low24h      float64    `json:"low_24h"`
	Interval    string     `json:"interval"`
	Candles     []Candle   `json:"-"`
	Indicators  Indicators `json:"indicators"`
	CollectedAt time.Time  `json:"collected_at"`
}

// Provider supplies the latest snapshot for a symbol.
type Provider interface {
	Latest(ctx context.Context, symbol string) (Snapshot, error)
}
