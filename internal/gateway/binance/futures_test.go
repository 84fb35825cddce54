package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quorum/internal/gateway/exchange"
	"quorum/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFapi struct {
	mu       sync.Mutex
	leverage []string
	orders   []map[string]string
	failOrd  bool
}

func (f *fakeFapi) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.URL.Path == "/fapi/v1/leverage":
			f.leverage = append(f.leverage, r.Form.Get("symbol")+"x"+r.Form.Get("leverage"))
			_, _ = w.Write([]byte(`{"leverage":3,"maxNotionalValue":"1000000","symbol":"BTCUSDT"}`))
		case r.URL.Path == "/fapi/v1/order":
			if f.failOrd {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
				return
			}
			f.orders = append(f.orders, map[string]string{
				"symbol":     r.Form.Get("symbol"),
				"side":       r.Form.Get("side"),
				"type":       r.Form.Get("type"),
				"quantity":   r.Form.Get("quantity"),
				"reduceOnly": r.Form.Get("reduceOnly"),
			})
			_, _ = w.Write([]byte(`{"orderId":9001,"symbol":"BTCUSDT","status":"FILLED","avgPrice":"50010.0","executedQty":"0.002","updateTime":1714557600000}`))
		case strings.HasSuffix(r.URL.Path, "/account"):
			_, _ = w.Write([]byte(`{"availableBalance":"900.5","totalWalletBalance":"1000","totalUnrealizedProfit":"3.2","assets":[],"positions":[]}`))
		case r.URL.Path == "/fapi/v1/income":
			if r.Form.Get("incomeType") == "COMMISSION" {
				_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","incomeType":"COMMISSION","income":"-0.4","asset":"USDT"}]`))
				return
			}
			_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","incomeType":"REALIZED_PNL","income":"-5.5","asset":"USDT"},{"symbol":"ETHUSDT","incomeType":"REALIZED_PNL","income":"2","asset":"USDT"}]`))
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestFutures(t *testing.T, fake *fakeFapi) *Futures {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	f, err := NewFutures(Config{RESTBaseURL: srv.URL, APIKey: "k", SecretKey: "s"}, exchange.DefaultConstraints())
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestFutures_PlaceOrder(t *testing.T) {
	fake := &fakeFapi{}
	f := newTestFutures(t, fake)

	fill, err := f.PlaceOrder(context.Background(), exchange.OrderRequest{
		ClientID: "sig-1", Symbol: "btc/usdt", Side: types.OrderBuy, Quantity: 0.00204, Leverage: 3, ReferencePrice: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, "9001", fill.OrderID)
	assert.InDelta(t, 50010, fill.ExecutedPrice, 1e-9)
	assert.InDelta(t, 0.002, fill.ExecutedQty, 1e-12)
	assert.InDelta(t, 50010*0.002*0.0004, fill.Fee, 1e-8)
	assert.Equal(t, int64(1714557600000), fill.FilledAt.UnixMilli())

	require.Equal(t, []string{"BTCUSDTx3"}, fake.leverage)
	require.Len(t, fake.orders, 1)
	assert.Equal(t, "BUY", fake.orders[0]["side"])
	assert.Equal(t, "MARKET", fake.orders[0]["type"])
	assert.Equal(t, "0.002", fake.orders[0]["quantity"])
}

func TestFutures_CloseSkipsLeverage(t *testing.T) {
	fake := &fakeFapi{}
	f := newTestFutures(t, fake)

	_, err := f.PlaceOrder(context.Background(), exchange.OrderRequest{
		Symbol: "BTCUSDT", Side: types.OrderSell, Quantity: 0.002, Leverage: 3, ReduceOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, fake.leverage)
	assert.Equal(t, "true", fake.orders[0]["reduceOnly"])
}

func TestFutures_OrderRejected(t *testing.T) {
	fake := &fakeFapi{failOrd: true}
	f := newTestFutures(t, fake)

	_, err := f.PlaceOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 0.01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, exchange.ErrExchange))
	assert.Contains(t, err.Error(), "Margin is insufficient")
}

func TestFutures_Account(t *testing.T) {
	f := newTestFutures(t, &fakeFapi{})

	acct, err := f.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 900.5, acct.AvailableBalance, 1e-9)
	assert.InDelta(t, 1000, acct.TotalBalance, 1e-9)
	assert.InDelta(t, 3.2, acct.UnrealizedPnL, 1e-9)
	assert.InDelta(t, -3.9, acct.DailyRealizedPnL, 1e-9)
	assert.Equal(t, "binance", f.Name())
}
