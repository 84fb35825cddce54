package store

import (
	"context"
	"sort"
	"time"

	"quorum/internal/store/model"
	"quorum/internal/types"
)

// DailyStats summarizes closed positions and fills of one UTC day.
type DailyStats struct {
	Date          string  `json:"date"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	RealizedPnL   float64 `json:"realized_pnl"`
	Fees          float64 `json:"fees"`
	Fills         int     `json:"fills"`
	Rejections    int     `json:"rejections"`
}

const dayLayout = "2006-01-02"

// CollectDailyStats groups the last days of activity (today included) by
// UTC date, newest first. Days without activity are omitted.
func CollectDailyStats(ctx context.Context, s Store, now time.Time, days int) ([]DailyStats, error) {
	if days <= 0 {
		days = 1
	}
	today := now.UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	var closes []model.PositionEventModel
	var trades []model.TradeModel
	err := Read(ctx, s, func(uow UnitOfWork) error {
		var err error
		if closes, err = uow.Positions().ListClosed(ctx, Query{Since: since}); err != nil {
			return err
		}
		trades, err = uow.Trades().List(ctx, Query{Since: since})
		return err
	})
	if err != nil {
		return nil, err
	}
	return summarize(closes, trades), nil
}

func summarize(closes []model.PositionEventModel, trades []model.TradeModel) []DailyStats {
	byDay := make(map[string]*DailyStats)
	get := func(ms int64) *DailyStats {
		key := time.UnixMilli(ms).UTC().Format(dayLayout)
		st, ok := byDay[key]
		if !ok {
			st = &DailyStats{Date: key}
			byDay[key] = st
		}
		return st
	}
	for _, ev := range closes {
		st := get(ev.CreatedAtUnix)
		st.TotalTrades++
		st.RealizedPnL += ev.RealizedPnL
		switch {
		case ev.RealizedPnL > 0:
			st.WinningTrades++
		case ev.RealizedPnL < 0:
			st.LosingTrades++
		}
	}
	for _, tr := range trades {
		st := get(tr.CreatedAtUnix)
		switch tr.Status {
		case string(types.TradeFilled):
			st.Fills++
			if tr.Fee != nil {
				st.Fees += *tr.Fee
			}
		case string(types.TradeRejected):
			st.Rejections++
		}
	}
	out := make([]DailyStats, 0, len(byDay))
	for _, st := range byDay {
		if st.TotalTrades > 0 {
			st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
