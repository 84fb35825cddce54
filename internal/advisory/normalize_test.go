package advisory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestNormalize_EmptyRawUsesNeutralDefaults(t *testing.T) {
	got := Normalize(Raw{})
	assert.Equal(t, Hold, got.Direction)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, 5, got.SuggestedSize)
	assert.Equal(t, 5, got.RiskLevel)
	assert.Equal(t, Horizon1h, got.Horizon)
	assert.Nil(t, got.StopLoss)
	assert.Nil(t, got.TakeProfit)
}

func TestNormalize_InvalidValues(t *testing.T) {
	got := Normalize(Raw{
		Direction:  "moon",
		Confidence: f(math.NaN()),
		Size:       f(42),
		Risk:       f(-3),
		StopLoss:   f(-1),
		TakeProfit: f(math.Inf(1)),
		Horizon:    "3w",
	})
	assert.Equal(t, Hold, got.Direction)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, 10, got.SuggestedSize)
	assert.Equal(t, 1, got.RiskLevel)
	assert.Nil(t, got.StopLoss)
	assert.Nil(t, got.TakeProfit)
	assert.Equal(t, Horizon1h, got.Horizon)
}

func TestNormalize_ValidValues(t *testing.T) {
	got := Normalize(Raw{
		Direction:      " long ",
		Confidence:     f(0.82),
		Size:           f(6.5),
		Risk:           f(4.49),
		ExpectedReturn: f(0.03),
		StopLoss:       f(95),
		TakeProfit:     f(120),
		Horizon:        "4H",
		Rationale:      "  breakout  ",
	})
	assert.Equal(t, Buy, got.Direction)
	assert.Equal(t, 0.82, got.Confidence)
	// round half up
	assert.Equal(t, 7, got.SuggestedSize)
	assert.Equal(t, 4, got.RiskLevel)
	assert.Equal(t, 0.03, got.ExpectedReturn)
	require.NotNil(t, got.StopLoss)
	assert.Equal(t, 95.0, *got.StopLoss)
	assert.Equal(t, Horizon4h, got.Horizon)
	assert.Equal(t, "breakout", got.Rationale)
}

func TestNormalize_PercentConfidence(t *testing.T) {
	assert.InDelta(t, 0.85, Normalize(Raw{Confidence: f(85)}).Confidence, 1e-9)
	assert.Equal(t, 0.5, Normalize(Raw{Confidence: f(250)}).Confidence)
}

func TestNormalizeSentiment(t *testing.T) {
	got := NormalizeSentiment(RawSentiment{Sentiment: "Bullish", Confidence: f(0.6), Impact: "HIGH"})
	assert.Equal(t, Positive, got.Sentiment)
	assert.Equal(t, ImpactHigh, got.MarketImpact)

	def := NormalizeSentiment(RawSentiment{})
	assert.Equal(t, Neutral, def.Sentiment)
	assert.Equal(t, 0.5, def.Confidence)
	assert.Equal(t, ImpactLow, def.MarketImpact)
}

func TestParseImpact(t *testing.T) {
	assert.Equal(t, ImpactHigh, ParseImpact(" High "))
	assert.Equal(t, ImpactMedium, ParseImpact("moderate"))
	assert.Equal(t, ImpactLow, ParseImpact("LOW"))
	assert.Equal(t, DefaultImpact, ParseImpact(""))
	assert.Equal(t, ImpactMedium, ParseImpact("severe"))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 5, RoundHalfUp(4.5))
	assert.Equal(t, 4, RoundHalfUp(4.49))
	assert.Equal(t, 7, RoundHalfUp(6.5))
	assert.Equal(t, 1, RoundHalfUp(0.5))
}

func TestHorizon(t *testing.T) {
	m, ok := Horizon4h.Minutes()
	assert.True(t, ok)
	assert.Equal(t, 240, m)
	_, ok = Horizon("2h").Minutes()
	assert.False(t, ok)

	assert.Equal(t, Horizon1h, HorizonFromMinutes(60))
	assert.Equal(t, Horizon1h, HorizonFromMinutes(90))
	assert.Equal(t, Horizon4h, HorizonFromMinutes(200))
	assert.Equal(t, Horizon1m, HorizonFromMinutes(0))
	assert.Equal(t, Horizon1d, HorizonFromMinutes(5000))
}
