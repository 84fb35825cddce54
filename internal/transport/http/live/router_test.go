package livehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/ledger"
	"quorum/internal/market"
	"quorum/internal/orchestrator"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/store/sqlite"
	"quorum/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	err error
}

func (f *fakeEngine) Status() orchestrator.Status {
	return orchestrator.Status{Running: true, Symbol: "BTCUSDT", Interval: "1m0s"}
}

func (f *fakeEngine) Analyze(_ context.Context, symbol string) (types.TradeSignal, error) {
	if f.err != nil {
		return types.TradeSignal{}, f.err
	}
	return types.TradeSignal{ID: "a1", Symbol: symbol, Direction: advisory.Hold, Confidence: 0.5}, nil
}

func newTestRouter(t *testing.T, engine Engine) (*gin.Engine, *ledger.Ledger, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := sqlite.OpenDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	l := ledger.New()
	return newEngine(Deps{Engine: engine, Ledger: l, Store: st, Symbols: []string{"BTCUSDT", "ETHUSDT"}}), l, st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Atomic(ctx, st, func(uow store.UnitOfWork) error {
		sig := model.FromSignal(types.TradeSignal{ID: "s1", Symbol: "BTCUSDT", Direction: advisory.Buy, Confidence: 0.8, PositionSize: 5, RiskLevel: 4, CreatedAt: at}, false, "POSITION_SIZE_EXCEEDED")
		if err := uow.Signals().Insert(ctx, &sig); err != nil {
			return err
		}
		tr := model.FromTrade(types.Trade{ID: "t1", Symbol: "BTCUSDT", Side: types.OrderBuy, Quantity: 0.1, Status: types.TradeFilled, SignalRef: "s1", CreatedAt: at})
		if err := uow.Trades().Insert(ctx, &tr); err != nil {
			return err
		}
		closed := types.Position{ID: "p1", Symbol: "BTCUSDT", Side: types.Long, Quantity: 0.1, EntryPrice: 50000, CurrentPrice: 51000, RealizedPnL: 100}
		ev := model.NewPositionEvent(model.PositionClosed, closed, "t1", at)
		return uow.Positions().Append(ctx, &ev)
	}))
}

func TestHealthAndStatus(t *testing.T) {
	h, _, _ := newTestRouter(t, &fakeEngine{})
	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st orchestrator.Status
	decode(t, rec, &st)
	assert.True(t, st.Running)
	assert.Equal(t, "BTCUSDT", st.Symbol)
}

func TestStatusWithoutEngine(t *testing.T) {
	h, _, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/status").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/analysis/BTCUSDT").Code)
}

func TestPositionsFromLedger(t *testing.T) {
	h, l, _ := newTestRouter(t, nil)
	require.NoError(t, l.Open(types.Position{ID: "p1", Symbol: "BTCUSDT", Side: types.Long, Quantity: 0.1, EntryPrice: 50000, IsOpen: true}))
	l.Mark("BTCUSDT", 51000)

	rec := get(t, h, "/api/v1/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Positions     []types.Position `json:"positions"`
		UnrealizedPnL float64          `json:"unrealized_pnl"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Positions, 1)
	assert.InDelta(t, 100, body.UnrealizedPnL, 1e-9)
}

func TestHistoryEndpoints(t *testing.T) {
	h, _, st := newTestRouter(t, nil)
	seed(t, st)

	rec := get(t, h, "/api/v1/trades?symbol=btcusdt&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades struct {
		Trades []types.Trade `json:"trades"`
		Count  int           `json:"count"`
	}
	decode(t, rec, &trades)
	assert.Equal(t, 1, trades.Count)
	assert.Equal(t, "t1", trades.Trades[0].ID)

	rec = get(t, h, "/api/v1/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	var signals struct {
		Signals []signalView `json:"signals"`
	}
	decode(t, rec, &signals)
	require.Len(t, signals.Signals, 1)
	assert.False(t, signals.Signals[0].Accepted)
	assert.Equal(t, "POSITION_SIZE_EXCEEDED", signals.Signals[0].RejectReason)

	rec = get(t, h, "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum store.Summary
	decode(t, rec, &sum)
	assert.Equal(t, 1, sum.TotalTrades)
	assert.InDelta(t, 100, sum.RealizedPnL, 1e-9)

	rec = get(t, h, "/api/v1/stats/daily?days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var daily struct {
		Stats []store.DailyStats `json:"stats"`
	}
	decode(t, rec, &daily)
	assert.NotEmpty(t, daily.Stats)
}

func TestAnalysis(t *testing.T) {
	h, _, _ := newTestRouter(t, &fakeEngine{})
	rec := get(t, h, "/api/v1/analysis/ethusdt")
	require.Equal(t, http.StatusOK, rec.Code)
	var sig types.TradeSignal
	decode(t, rec, &sig)
	assert.Equal(t, "ETHUSDT", sig.Symbol)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/analysis/DOGEUSDT").Code)

	h, _, _ = newTestRouter(t, &fakeEngine{err: fmt.Errorf("x: %w", market.ErrNotAvailable)})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/analysis/BTCUSDT").Code)
}

func TestPnLReport(t *testing.T) {
	h, _, st := newTestRouter(t, nil)
	seed(t, st)
	rec := get(t, h, "/api/v1/report/pnl?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}
