package store

import (
	"context"
	"time"

	"quorum/internal/store/model"
	"quorum/internal/types"
)

// Summary is the all-time trading summary derived from the records.
type Summary struct {
	TotalTrades   int              `json:"total_trades"`
	WinningTrades int              `json:"winning_trades"`
	LosingTrades  int              `json:"losing_trades"`
	WinRate       float64          `json:"win_rate"`
	RealizedPnL   float64          `json:"realized_pnl"`
	Fees          float64          `json:"fees"`
	Fills         int              `json:"fills"`
	Rejections    int              `json:"rejections"`
	Signals       int              `json:"signals"`
	Accepted      int              `json:"accepted_signals"`
	OpenPositions []types.Position `json:"open_positions"`
	UnrealizedPnL float64          `json:"unrealized_pnl"`
}

// PnLPoint is one step of the cumulative realized P&L curve.
type PnLPoint struct {
	At         time.Time `json:"at"`
	Symbol     string    `json:"symbol"`
	PnL        float64   `json:"pnl"`
	Cumulative float64   `json:"cumulative"`
}

func Summarize(ctx context.Context, s Store) (Summary, error) {
	var (
		closes  []model.PositionEventModel
		trades  []model.TradeModel
		signals []model.SignalModel
		out     Summary
	)
	err := Read(ctx, s, func(uow UnitOfWork) error {
		var err error
		if closes, err = uow.Positions().ListClosed(ctx, Query{}); err != nil {
			return err
		}
		if trades, err = uow.Trades().List(ctx, Query{}); err != nil {
			return err
		}
		if signals, err = uow.Signals().List(ctx, Query{}); err != nil {
			return err
		}
		out.OpenPositions, err = uow.Positions().LoadOpen(ctx)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	for _, day := range summarize(closes, trades) {
		out.TotalTrades += day.TotalTrades
		out.WinningTrades += day.WinningTrades
		out.LosingTrades += day.LosingTrades
		out.RealizedPnL += day.RealizedPnL
		out.Fees += day.Fees
		out.Fills += day.Fills
		out.Rejections += day.Rejections
	}
	if out.TotalTrades > 0 {
		out.WinRate = float64(out.WinningTrades) / float64(out.TotalTrades)
	}
	out.Signals = len(signals)
	for _, sig := range signals {
		if sig.Accepted {
			out.Accepted++
		}
	}
	for _, p := range out.OpenPositions {
		out.UnrealizedPnL += p.UnrealizedPnL
	}
	return out, nil
}

// PnLCurve returns the cumulative realized P&L, oldest first.
func PnLCurve(ctx context.Context, s Store, since time.Time) ([]PnLPoint, error) {
	var closes []model.PositionEventModel
	err := Read(ctx, s, func(uow UnitOfWork) error {
		var err error
		closes, err = uow.Positions().ListClosed(ctx, Query{Since: since})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]PnLPoint, 0, len(closes))
	cum := 0.0
	for i := len(closes) - 1; i >= 0; i-- {
		ev := closes[i]
		cum += ev.RealizedPnL
		out = append(out, PnLPoint{
			At:         time.UnixMilli(ev.CreatedAtUnix).UTC(),
			Symbol:     ev.Symbol,
			PnL:        ev.RealizedPnL,
			Cumulative: cum,
		})
	}
	return out, nil
}
