package fusion

import (
	"math"
	"testing"
	"time"

	"quorum/internal/advisory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(Options{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "sig-1" },
	})
}

func ptr(v float64) *float64 { return &v }

func set(dir advisory.Direction, conf float64, size, risk int) *advisory.AdvisorySet {
	return &advisory.AdvisorySet{Direction: dir, Confidence: conf, SuggestedSize: size, RiskLevel: risk, Horizon: advisory.Horizon1h}
}

var canonical = Weights{Primary: 0.5, Secondary: 0.3, Sentiment: 0.2}

func TestFuseTriple_AgreeingBuy(t *testing.T) {
	e := newTestEngine()
	primary := set(advisory.Buy, 0.8, 7, 4)
	secondary := set(advisory.Buy, 0.7, 6, 5)
	sentiment := &advisory.SentimentAdvisory{Sentiment: advisory.Positive, Confidence: 0.6, MarketImpact: advisory.ImpactMedium}

	sig := e.FuseTriple("btcusdt", 100, primary, secondary, sentiment, canonical)

	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, advisory.Buy, sig.Direction)
	// 0.8*0.5 + 0.7*0.3 + 0.6*0.2
	assert.InDelta(t, 0.73, sig.Confidence, 1e-9)
	// 7*0.5 + 6*0.3 + 5*0.2 = 6.3
	assert.Equal(t, 6, sig.PositionSize)
	// 4*0.5 + 5*0.3 + 3*0.2 = 4.1
	assert.Equal(t, 4, sig.RiskLevel)
	assert.InDelta(t, 0.2*0.05, sig.ExpectedReturn, 1e-9)
	assert.Equal(t, advisory.Buy, sig.Detail.RawDirection)
	assert.Empty(t, sig.Detail.HoldOverride)
	assert.Equal(t, "sig-1", sig.ID)
	assert.Equal(t, fixedNow, sig.CreatedAt)
	assert.Equal(t, 1, sig.Leverage)
}

func TestFuse_RoundsHalfUp(t *testing.T) {
	e := newTestEngine()
	// equal weights, no sentiment: size (7+6)/2 = 6.5, risk (4+5)/2 = 4.5
	sig := e.Fuse("ETHUSDT", 0, []Input{
		{Source: "a", Weight: 0.5, Advisory: set(advisory.Buy, 0.8, 7, 4)},
		{Source: "b", Weight: 0.5, Advisory: set(advisory.Buy, 0.7, 6, 5)},
	}, nil)
	assert.Equal(t, 7, sig.PositionSize)
	assert.Equal(t, 5, sig.RiskLevel)
	assert.InDelta(t, 0.75, sig.Confidence, 1e-9)
}

func TestFuse_AllAbsentIsCanonicalNeutral(t *testing.T) {
	e := newTestEngine()
	sig := e.FuseTriple("BTCUSDT", 100, nil, nil, nil, canonical)
	assert.Equal(t, advisory.Hold, sig.Direction)
	assert.Equal(t, 0.5, sig.Confidence)
	assert.Equal(t, 5, sig.PositionSize)
	assert.Equal(t, 5, sig.RiskLevel)
	assert.Equal(t, advisory.Horizon1h, sig.Horizon)
	assert.Equal(t, OverrideNoAdvisories, sig.Detail.HoldOverride)
	assert.Len(t, sig.Detail.Sources, 3)
	for _, src := range sig.Detail.Sources {
		assert.False(t, src.Present)
	}
}

func TestFuse_AbsentWeightIsRedistributed(t *testing.T) {
	e := newTestEngine()
	sig := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.9, 8, 3), nil, nil, canonical)
	assert.Equal(t, advisory.Buy, sig.Direction)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)
	assert.Equal(t, 8, sig.PositionSize)
	assert.Equal(t, 3, sig.RiskLevel)
	require.Len(t, sig.Detail.Sources, 3)
	assert.InDelta(t, 1.0, sig.Detail.Sources[0].EffectiveWeight, 1e-9)
	assert.False(t, sig.Detail.Sources[1].Present)
}

func TestFuse_OneAbsentKeepsRatio(t *testing.T) {
	e := newTestEngine()
	sent := &advisory.SentimentAdvisory{Sentiment: advisory.Positive, Confidence: 0.6, MarketImpact: advisory.ImpactMedium}

	sig := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.9, 8, 3), nil, sent, canonical)
	require.Len(t, sig.Detail.Sources, 3)
	p, s := sig.Detail.Sources[0], sig.Detail.Sources[2]
	assert.False(t, sig.Detail.Sources[1].Present)
	assert.InDelta(t, 1.0, p.EffectiveWeight+s.EffectiveWeight, 1e-9)
	assert.InDelta(t, 0.5/0.2, p.EffectiveWeight/s.EffectiveWeight, 1e-9)
	// (0.9*0.5 + 0.6*0.2) / 0.7
	assert.InDelta(t, 0.57/0.7, sig.Confidence, 1e-9)

	noSent := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.9, 8, 3), set(advisory.Buy, 0.7, 6, 5), nil, canonical)
	require.Len(t, noSent.Detail.Sources, 3)
	a, b := noSent.Detail.Sources[0], noSent.Detail.Sources[1]
	assert.InDelta(t, 1.0, a.EffectiveWeight+b.EffectiveWeight, 1e-9)
	assert.InDelta(t, 0.5/0.3, a.EffectiveWeight/b.EffectiveWeight, 1e-9)
	assert.False(t, noSent.Detail.Sources[2].Present)
}

func TestFuse_PermutationInvariant(t *testing.T) {
	e := newTestEngine()
	a := Input{Source: "a", Weight: 0.6, Advisory: set(advisory.Sell, 0.9, 3, 6)}
	b := Input{Source: "b", Weight: 0.4, Advisory: set(advisory.Buy, 0.4, 8, 2)}
	s1 := e.Fuse("X", 1, []Input{a, b}, nil)
	s2 := e.Fuse("X", 1, []Input{b, a}, nil)
	assert.Equal(t, s1.Direction, s2.Direction)
	assert.InDelta(t, s1.Confidence, s2.Confidence, 1e-12)
	assert.Equal(t, s1.PositionSize, s2.PositionSize)
	assert.Equal(t, s1.RiskLevel, s2.RiskLevel)
}

func TestFuse_LowConfidenceForcesHold(t *testing.T) {
	e := newTestEngine()
	sig := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.5, 5, 5), set(advisory.Buy, 0.5, 5, 5), nil, canonical)
	assert.Equal(t, advisory.Hold, sig.Direction)
	assert.Equal(t, advisory.Buy, sig.Detail.RawDirection)
	assert.Equal(t, OverrideLowConfidence, sig.Detail.HoldOverride)
}

func TestFuse_NarrowMarginForcesHold(t *testing.T) {
	e := newTestEngine()
	// buy score 0.9*0.5 = 0.45, sell score 0.9*0.5 = 0.45
	sig := e.Fuse("BTCUSDT", 100, []Input{
		{Source: "a", Weight: 0.5, Advisory: set(advisory.Buy, 0.9, 5, 5)},
		{Source: "b", Weight: 0.5, Advisory: set(advisory.Sell, 0.9, 5, 5)},
	}, nil)
	assert.Equal(t, advisory.Hold, sig.Direction)
	assert.Equal(t, OverrideNarrowMargin, sig.Detail.HoldOverride)
	assert.InDelta(t, 0, sig.Detail.Margin, 1e-9)
}

func TestFuse_ThresholdsAreConfigurable(t *testing.T) {
	e := newTestEngine()
	e.SetThresholds(Thresholds{ConfidenceFloor: 0.4, TieMargin: 0.05})
	sig := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.5, 5, 5), set(advisory.Buy, 0.5, 5, 5), nil, canonical)
	assert.Equal(t, advisory.Buy, sig.Direction)
}

func TestFuse_StopLossTakeProfitAndHorizon(t *testing.T) {
	e := newTestEngine()
	a := set(advisory.Buy, 0.9, 5, 5)
	a.StopLoss, a.TakeProfit, a.Horizon = ptr(90), ptr(120), advisory.Horizon4h
	b := set(advisory.Buy, 0.9, 5, 5)
	b.StopLoss, b.Horizon = ptr(94), advisory.Horizon15m

	sig := e.FuseTriple("BTCUSDT", 100, a, b, nil, canonical)
	require.NotNil(t, sig.StopLoss)
	assert.InDelta(t, 92, *sig.StopLoss, 1e-9)
	require.NotNil(t, sig.TakeProfit)
	assert.InDelta(t, 120, *sig.TakeProfit, 1e-9)
	assert.Equal(t, advisory.Horizon15m, sig.Horizon)

	none := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.9, 5, 5), nil, nil, canonical)
	assert.Nil(t, none.StopLoss)
	assert.Nil(t, none.TakeProfit)
}

func TestFuse_RationaleTags(t *testing.T) {
	e := newTestEngine()
	a := set(advisory.Buy, 0.9, 5, 5)
	a.Rationale = "breakout"
	b := set(advisory.Buy, 0.9, 5, 5)
	s := &advisory.SentimentAdvisory{Sentiment: advisory.Neutral, Confidence: 0.5, Summary: "quiet news"}
	sig := e.FuseTriple("BTCUSDT", 100, a, b, s, canonical)
	assert.Equal(t, "primary: breakout | sentiment: quiet news", sig.Rationale)

	empty := e.FuseTriple("BTCUSDT", 100, set(advisory.Buy, 0.9, 5, 5), nil, nil, canonical)
	assert.Empty(t, empty.Rationale)
}

func TestFuse_MalformedInputNeverEscapesBounds(t *testing.T) {
	e := newTestEngine()
	bad := &advisory.AdvisorySet{Direction: "JUMP", Confidence: math.NaN(), SuggestedSize: 99, RiskLevel: -4, StopLoss: ptr(-1)}
	sig := e.Fuse("BTCUSDT", 100, []Input{
		{Source: "bad", Weight: 1, Advisory: bad},
		{Source: "nan", Weight: math.NaN(), Advisory: set(advisory.Buy, 1, 10, 10)},
	}, nil)
	assert.Equal(t, advisory.Hold, sig.Direction)
	assert.True(t, sig.Confidence >= 0 && sig.Confidence <= 1)
	assert.Equal(t, 10, sig.PositionSize)
	assert.Equal(t, 1, sig.RiskLevel)
	assert.Nil(t, sig.StopLoss)
}

func TestSentimentRisk(t *testing.T) {
	assert.Equal(t, 3, SentimentRisk(advisory.Positive, advisory.ImpactMedium))
	assert.Equal(t, 2, SentimentRisk(advisory.Positive, advisory.ImpactLow))
	assert.Equal(t, 8, SentimentRisk(advisory.Neutral, advisory.ImpactHigh))
	assert.Equal(t, 10, SentimentRisk(advisory.Negative, advisory.ImpactHigh))
	assert.Equal(t, 6, SentimentRisk(advisory.Negative, advisory.ImpactLow))
}
