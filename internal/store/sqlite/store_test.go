package sqlite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := OpenDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestStore_SignalsAndTrades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sig := types.TradeSignal{
		ID: "sig-1", Symbol: "BTCUSDT", Direction: advisory.Buy, Confidence: 0.73,
		PositionSize: 6, RiskLevel: 4, Horizon: advisory.Horizon1h, Leverage: 1,
		StopLoss: ptr(49000), CreatedAt: base,
		Detail: types.FusionDetail{RawDirection: advisory.Buy, Margin: 0.5},
	}
	trade := types.Trade{
		ID: "tr-1", Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 0.02, RequestedPrice: 50000,
		ExecutedPrice: ptr(50000), Status: types.TradeFilled, Fee: ptr(0.4), SignalRef: "sig-1", CreatedAt: base.Add(time.Second),
	}
	require.NoError(t, store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		row := model.FromSignal(sig, true, "")
		if err := uow.Signals().Insert(ctx, &row); err != nil {
			return err
		}
		tr := model.FromTrade(trade)
		return uow.Trades().Insert(ctx, &tr)
	}))

	require.NoError(t, store.Read(ctx, s, func(uow store.UnitOfWork) error {
		sigs, err := uow.Signals().List(ctx, store.Query{Symbol: "btcusdt"})
		require.NoError(t, err)
		require.Len(t, sigs, 1)
		got := sigs[0].ToDomain()
		assert.Equal(t, sig.ID, got.ID)
		assert.Equal(t, advisory.Buy, got.Direction)
		assert.True(t, got.CreatedAt.Equal(base))
		assert.InDelta(t, 0.5, got.Detail.Margin, 1e-9)
		require.NotNil(t, got.StopLoss)
		assert.True(t, sigs[0].Accepted)

		trades, err := uow.Trades().List(ctx, store.Query{Limit: 10})
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, types.TradeFilled, trades[0].ToDomain().Status)
		return nil
	}))
}

func TestStore_AtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	err := store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		tr := model.FromTrade(types.Trade{ID: "tr-x", Symbol: "BTCUSDT", Status: types.TradeFilled, CreatedAt: time.Now()})
		if err := uow.Trades().Insert(ctx, &tr); err != nil {
			return err
		}
		return uow.Positions().Append(ctx, &model.PositionEventModel{})
	})
	require.Error(t, err)

	require.NoError(t, store.Read(ctx, s, func(uow store.UnitOfWork) error {
		trades, err := uow.Trades().List(ctx, store.Query{})
		require.NoError(t, err)
		assert.Empty(t, trades)
		return nil
	}))
}

func TestStore_LoadOpenPositions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	btc := types.Position{ID: "pos-btc", Symbol: "BTCUSDT", Side: types.Long, Quantity: 0.02, EntryPrice: 50000, Leverage: 2, IsOpen: true, OpenedAt: at}
	eth := types.Position{ID: "pos-eth", Symbol: "ETHUSDT", Side: types.Short, Quantity: 1, EntryPrice: 3000, IsOpen: true, OpenedAt: at}
	require.NoError(t, store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		for _, p := range []types.Position{btc, eth} {
			ev := model.NewPositionEvent(model.PositionOpened, p, "tr-"+p.ID, at)
			if err := uow.Positions().Append(ctx, &ev); err != nil {
				return err
			}
		}
		closed := eth
		closed.IsOpen = false
		closed.CurrentPrice = 2900
		closed.RealizedPnL = 100
		ev := model.NewPositionEvent(model.PositionClosed, closed, "tr-close", at.Add(time.Hour))
		return uow.Positions().Append(ctx, &ev)
	}))

	require.NoError(t, store.Read(ctx, s, func(uow store.UnitOfWork) error {
		open, err := uow.Positions().LoadOpen(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "pos-btc", open[0].ID)
		assert.Equal(t, 2, open[0].Leverage)
		assert.True(t, open[0].IsOpen)

		closed, err := uow.Positions().ListClosed(ctx, store.Query{})
		require.NoError(t, err)
		require.Len(t, closed, 1)
		require.NotNil(t, closed[0].ExitPrice)
		assert.InDelta(t, 2900, *closed[0].ExitPrice, 1e-9)
		assert.InDelta(t, 100, closed[0].RealizedPnL, 1e-9)
		return nil
	}))
}

func TestStore_AdvisoryCallsAndNotifications(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		calls := []model.AdvisoryCallModel{
			{CycleID: "c1", Source: "technical", Present: true, Direction: "BUY", Confidence: 0.7, CreatedAtUnix: now.UnixMilli()},
			{CycleID: "c1", Source: "gpt", Error: "advisory timeout", CreatedAtUnix: now.UnixMilli()},
		}
		if err := uow.AdvisoryCalls().InsertBatch(ctx, calls); err != nil {
			return err
		}
		n := model.NotificationModel{Category: "RISK_ALERT", Title: "Risk alert", Delivered: true, CreatedAtUnix: now.UnixMilli()}
		return uow.Notifications().Insert(ctx, &n)
	}))
	require.NoError(t, store.Read(ctx, s, func(uow store.UnitOfWork) error {
		calls, err := uow.AdvisoryCalls().ListByCycle(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, calls, 2)
		assert.Equal(t, "technical", calls[0].Source)
		assert.False(t, calls[1].Present)

		notes, err := uow.Notifications().List(ctx, store.Query{})
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "RISK_ALERT", notes[0].Category)
		return nil
	}))
}

func TestCollectDailyStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	require.NoError(t, store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		for i, pnl := range []float64{20, -5, 10} {
			p := types.Position{ID: fmt.Sprintf("p%d", i), Symbol: "BTCUSDT", Side: types.Long, Quantity: 1, EntryPrice: 100, CurrentPrice: 100 + pnl, RealizedPnL: pnl}
			at := now
			if i == 2 {
				at = yesterday
			}
			ev := model.NewPositionEvent(model.PositionClosed, p, "", at)
			if err := uow.Positions().Append(ctx, &ev); err != nil {
				return err
			}
		}
		for i, st := range []types.TradeStatus{types.TradeFilled, types.TradeFilled, types.TradeRejected} {
			tr := model.FromTrade(types.Trade{ID: fmt.Sprintf("t%d", i), Symbol: "BTCUSDT", Status: st, Fee: ptr(0.5), CreatedAt: now})
			if err := uow.Trades().Insert(ctx, &tr); err != nil {
				return err
			}
		}
		return nil
	}))

	stats, err := store.CollectDailyStats(ctx, s, now, 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	today := stats[0]
	assert.Equal(t, "2024-05-02", today.Date)
	assert.Equal(t, 2, today.TotalTrades)
	assert.Equal(t, 1, today.WinningTrades)
	assert.Equal(t, 1, today.LosingTrades)
	assert.InDelta(t, 0.5, today.WinRate, 1e-9)
	assert.InDelta(t, 15, today.RealizedPnL, 1e-9)
	assert.Equal(t, 2, today.Fills)
	assert.Equal(t, 1, today.Rejections)
	assert.InDelta(t, 1.0, today.Fees, 1e-9)
	assert.Equal(t, "2024-05-01", stats[1].Date)
}

func TestSummarizeAndPnLCurve(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Atomic(ctx, s, func(uow store.UnitOfWork) error {
		for i, pnl := range []float64{30, -10} {
			p := types.Position{ID: fmt.Sprintf("c%d", i), Symbol: "BTCUSDT", Side: types.Long, Quantity: 1, EntryPrice: 100, RealizedPnL: pnl}
			ev := model.NewPositionEvent(model.PositionClosed, p, "", base.Add(time.Duration(i)*time.Hour))
			if err := uow.Positions().Append(ctx, &ev); err != nil {
				return err
			}
		}
		open := types.Position{ID: "o1", Symbol: "ETHUSDT", Side: types.Long, Quantity: 1, EntryPrice: 3000, UnrealizedPnL: 12, IsOpen: true}
		ev := model.NewPositionEvent(model.PositionOpened, open, "", base)
		if err := uow.Positions().Append(ctx, &ev); err != nil {
			return err
		}
		accepted := model.FromSignal(types.TradeSignal{ID: "s1", Symbol: "BTCUSDT", Direction: advisory.Buy, CreatedAt: base}, true, "")
		rejected := model.FromSignal(types.TradeSignal{ID: "s2", Symbol: "BTCUSDT", Direction: advisory.Buy, CreatedAt: base}, false, "RISK_TOO_HIGH")
		if err := uow.Signals().Insert(ctx, &accepted); err != nil {
			return err
		}
		return uow.Signals().Insert(ctx, &rejected)
	}))

	sum, err := store.Summarize(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalTrades)
	assert.Equal(t, 1, sum.WinningTrades)
	assert.InDelta(t, 20, sum.RealizedPnL, 1e-9)
	assert.InDelta(t, 0.5, sum.WinRate, 1e-9)
	assert.Equal(t, 2, sum.Signals)
	assert.Equal(t, 1, sum.Accepted)
	require.Len(t, sum.OpenPositions, 1)
	assert.InDelta(t, 12, sum.UnrealizedPnL, 1e-9)

	curve, err := store.PnLCurve(ctx, s, time.Time{})
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.InDelta(t, 30, curve[0].Cumulative, 1e-9)
	assert.InDelta(t, 20, curve[1].Cumulative, 1e-9)
}
