package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"quorum/internal/advisory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fearGreedBody = `{
  "name": "Fear and Greed Index",
  "data": [
    {"value": "80", "value_classification": "Extreme Greed", "timestamp": "1714521600", "time_until_update": "3600"},
    {"value": "72", "value_classification": "Greed", "timestamp": "1714435200"}
  ],
  "metadata": {"error": null}
}`

func TestFearGreed_AdviseCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(fearGreedBody))
	}))
	defer srv.Close()

	fg := NewFearGreed(srv.URL, time.Second)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fg.now = func() time.Time { return now }

	out, err := fg.Advise(context.Background(), "BTCUSDT", 60000)
	require.NoError(t, err)
	assert.Equal(t, advisory.Positive, out.Sentiment)
	assert.Equal(t, advisory.ImpactHigh, out.MarketImpact)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	assert.Contains(t, out.Summary, "80 (Extreme Greed), previous 72")

	_, err = fg.Advise(context.Background(), "ETHUSDT", 3000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	now = now.Add(time.Hour)
	_, err = fg.Advise(context.Background(), "BTCUSDT", 60000)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFearGreed_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fg := NewFearGreed(srv.URL, time.Second)
	_, err := fg.Advise(context.Background(), "BTCUSDT", 60000)
	assert.ErrorIs(t, err, advisory.ErrUnavailable)
}

func TestSentimentFromIndex(t *testing.T) {
	cases := []struct {
		value     int
		sentiment advisory.Sentiment
		impact    advisory.Impact
	}{
		{value: 10, sentiment: advisory.Negative, impact: advisory.ImpactHigh},
		{value: 35, sentiment: advisory.Negative, impact: advisory.ImpactMedium},
		{value: 50, sentiment: advisory.Neutral, impact: advisory.ImpactLow},
		{value: 60, sentiment: advisory.Positive, impact: advisory.ImpactLow},
	}
	for _, tc := range cases {
		out := sentimentFromIndex(FearGreedData{Value: tc.value})
		assert.Equal(t, tc.sentiment, out.Sentiment, tc.value)
		assert.Equal(t, tc.impact, out.MarketImpact, tc.value)
	}
}
