package advisory

import (
	"math"
	"strings"
)

// Raw carries loosely typed fields as a source reported them. Nil pointers
// mean the field was absent.
type Raw struct {
	Direction      string
	Confidence     *float64
	Size           *float64
	Risk           *float64
	ExpectedReturn *float64
	StopLoss       *float64
	TakeProfit     *float64
	Horizon        string
	Rationale      string
}

// RawSentiment is the loosely typed counterpart of SentimentAdvisory.
type RawSentiment struct {
	Sentiment  string
	Confidence *float64
	Impact     string
	Summary    string
}

// Normalize maps raw fields to a valid AdvisorySet. It never fails: each
// missing or invalid field falls back to its neutral default.
func Normalize(raw Raw) AdvisorySet {
	return AdvisorySet{
		Direction:      ParseDirection(raw.Direction),
		Confidence:     normalizeConfidence(raw.Confidence),
		SuggestedSize:  normalizeScale(raw.Size, DefaultSize),
		RiskLevel:      normalizeScale(raw.Risk, DefaultRisk),
		ExpectedReturn: finiteOr(raw.ExpectedReturn, 0),
		StopLoss:       positiveOrNil(raw.StopLoss),
		TakeProfit:     positiveOrNil(raw.TakeProfit),
		Horizon:        horizonOrDefault(raw.Horizon),
		Rationale:      strings.TrimSpace(raw.Rationale),
	}
}

// NormalizeSentiment maps raw sentiment fields the same way.
func NormalizeSentiment(raw RawSentiment) SentimentAdvisory {
	return SentimentAdvisory{
		Sentiment:    ParseSentiment(raw.Sentiment),
		Confidence:   normalizeConfidence(raw.Confidence),
		MarketImpact: ParseImpact(raw.Impact),
		Summary:      strings.TrimSpace(raw.Summary),
	}
}

// ParseDirection folds the common action spellings onto BUY/SELL/HOLD.
// Unknown values become HOLD.
func ParseDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long", "open_long", "bullish", "strong_buy":
		return Buy
	case "sell", "short", "open_short", "bearish", "strong_sell", "close_long":
		return Sell
	default:
		return DefaultDirection
	}
}

func ParseSentiment(raw string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "bullish", "greed", "extreme_greed":
		return Positive
	case "negative", "bearish", "fear", "extreme_fear":
		return Negative
	default:
		return Neutral
	}
}

// ParseImpact maps a missing impact to DefaultImpact and an unrecognised one
// to MEDIUM, which leaves the sentiment risk base unscaled.
func ParseImpact(raw string) Impact {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return DefaultImpact
	case "high":
		return ImpactHigh
	case "medium", "med", "moderate":
		return ImpactMedium
	case "low":
		return ImpactLow
	default:
		return ImpactMedium
	}
}

// RoundHalfUp rounds x to the nearest integer, .5 going up.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ClampScale bounds v to the 1..10 scale used for size and risk.
func ClampScale(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// normalizeConfidence accepts [0,1] as is and (1,100] as a percentage.
func normalizeConfidence(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return DefaultConfidence
	}
	c := *v
	if c > 1 {
		if c > 100 {
			return DefaultConfidence
		}
		c /= 100
	}
	return c
}

func normalizeScale(v *float64, def int) int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return ClampScale(RoundHalfUp(*v))
}

func finiteOr(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return def
	}
	return *v
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

func horizonOrDefault(raw string) Horizon {
	if h, ok := ParseHorizon(raw); ok {
		return h
	}
	return DefaultHorizon
}
