package exchange

import (
	"context"
	"errors"
	"testing"

	"quorum/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaper_OpenAndCloseLong(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(1000, 0.0004)

	fill, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 2, Leverage: 2, ReferencePrice: 100})
	require.NoError(t, err)
	assert.Equal(t, 100.0, fill.ExecutedPrice)
	assert.InDelta(t, 0.08, fill.Fee, 1e-9)

	acct, err := p.Account(ctx)
	require.NoError(t, err)
	// 200 notional at 2x locks 100 margin
	assert.InDelta(t, 999.92-100, acct.AvailableBalance, 1e-9)

	closeFill, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: types.OrderSell, Quantity: 2, ReduceOnly: true, ReferencePrice: 110})
	require.NoError(t, err)
	assert.InDelta(t, 0.088, closeFill.Fee, 1e-9)

	acct, err = p.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000-0.08+20-0.088, acct.TotalBalance, 1e-9)
	assert.InDelta(t, acct.TotalBalance, acct.AvailableBalance, 1e-9)
	assert.InDelta(t, 20-0.08-0.088, acct.DailyRealizedPnL, 1e-9)
}

func TestPaper_Rejections(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(10, 0.0004)

	_, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 1, ReferencePrice: 0})
	assert.True(t, errors.Is(err, ErrExchange))

	_, err = p.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 1, Leverage: 1, ReferencePrice: 100})
	assert.True(t, errors.Is(err, ErrExchange))

	_, err = p.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: types.OrderSell, Quantity: 1, ReduceOnly: true, ReferencePrice: 100})
	assert.True(t, errors.Is(err, ErrExchange))
}

func TestPaper_SeedAllowsClosingRecoveredPosition(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(1000, 0)
	p.Seed([]types.Position{{Symbol: "ethusdt", Side: types.Long, Quantity: 1, EntryPrice: 100, Leverage: 1}})

	acct, err := p.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 900, acct.AvailableBalance, 1e-9)

	_, err = p.PlaceOrder(ctx, OrderRequest{Symbol: "ETHUSDT", Side: types.OrderSell, Quantity: 1, ReduceOnly: true, ReferencePrice: 120})
	require.NoError(t, err)
	acct, err = p.Account(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1020, acct.TotalBalance, 1e-9)
	assert.InDelta(t, 20, acct.DailyRealizedPnL, 1e-9)
}
