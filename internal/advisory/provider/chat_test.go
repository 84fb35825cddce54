package provider

import (
	"context"
	"errors"
	"testing"

	"quorum/internal/advisory"
	"quorum/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func sampleSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol:    "BTCUSDT",
		Price:     50000,
		Change24h: 1.2,
		Interval:  "1h",
		Indicators: market.Indicators{
			Ready: true, RSI: 55, MACD: 12, MACDSignal: 10, MACDHist: 2,
			BBUpper: 51000, BBMiddle: 49500, BBLower: 48000, SMA20: 49500, SMA50: 49000, ATR: 500,
		},
	}
}

func TestChatAdvisor_Advise(t *testing.T) {
	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return req.ExpectJSON && req.System == advisorSystemPrompt &&
			assert.Contains(t, req.User, "Symbol: BTCUSDT") &&
			assert.Contains(t, req.User, "Trend: BULLISH")
	})).Return("```json\n{\"decision\":\"buy\",\"confidence\":0.8,\"position_size\":6,\"risk_level\":4,\"stop_loss\":\"49000\",\"timeframe\":\"4h\"}\n```", nil)

	set, err := NewChatAdvisor("gpt", m).Advise(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, advisory.Buy, set.Direction)
	assert.InDelta(t, 0.8, set.Confidence, 1e-9)
	assert.Equal(t, 6, set.SuggestedSize)
	require.NotNil(t, set.StopLoss)
	assert.InDelta(t, 49000, *set.StopLoss, 1e-9)
	assert.Equal(t, advisory.Horizon4h, set.Horizon)
	m.AssertExpectations(t)
}

func TestChatAdvisor_Errors(t *testing.T) {
	t.Run("transport failure is unavailable", func(t *testing.T) {
		m := &mockCompleter{}
		m.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
		_, err := NewChatAdvisor("gpt", m).Advise(context.Background(), sampleSnapshot())
		assert.ErrorIs(t, err, advisory.ErrUnavailable)
	})
	t.Run("deadline is timeout", func(t *testing.T) {
		m := &mockCompleter{}
		m.On("Complete", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)
		_, err := NewChatAdvisor("gpt", m).Advise(context.Background(), sampleSnapshot())
		assert.ErrorIs(t, err, advisory.ErrTimeout)
	})
	t.Run("prose answer is unavailable", func(t *testing.T) {
		m := &mockCompleter{}
		m.On("Complete", mock.Anything, mock.Anything).Return("I think you should buy.", nil)
		_, err := NewChatAdvisor("gpt", m).Advise(context.Background(), sampleSnapshot())
		assert.ErrorIs(t, err, advisory.ErrUnavailable)
	})
}

func TestChatSentiment_Advise(t *testing.T) {
	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.MatchedBy(func(req ChatRequest) bool {
		return assert.Contains(t, req.User, "Symbol: ETHUSDT")
	})).Return(`{"sentiment":"NEGATIVE","confidence":0.7,"market_impact":"HIGH","summary":"ETF outflows"}`, nil)

	out, err := NewChatSentiment("perplexity", m).Advise(context.Background(), "ETHUSDT", 3000)
	require.NoError(t, err)
	assert.Equal(t, advisory.Negative, out.Sentiment)
	assert.Equal(t, advisory.ImpactHigh, out.MarketImpact)
	assert.Equal(t, "ETF outflows", out.Summary)
}

func TestDescribeSituation(t *testing.T) {
	snap := sampleSnapshot()
	snap.Indicators.ATR = 2000
	for i := 0; i < 20; i++ {
		vol := 10.0
		if i >= 15 {
			vol = 20
		}
		snap.Candles = append(snap.Candles, market.Candle{Volume: vol})
	}
	sit := describeSituation(snap)
	assert.Equal(t, Situation{Trend: "BULLISH", Volatility: "HIGH", VolumeTrend: "INCREASING"}, sit)

	assert.Equal(t, Situation{Trend: "NEUTRAL", Volatility: "MEDIUM", VolumeTrend: "STABLE"}, describeSituation(market.Snapshot{}))
}
