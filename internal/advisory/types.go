// Package advisory defines the normalized shape every advisory source
// produces and the boundary normalization applied to raw outputs.
package advisory

import (
	"context"
	"errors"

	"quorum/internal/market"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

func (d Direction) Valid() bool {
	switch d {
	case Buy, Sell, Hold:
		return true
	}
	return false
}

type Sentiment string

const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
	Neutral  Sentiment = "NEUTRAL"
)

type Impact string

const (
	ImpactLow    Impact = "LOW"
	ImpactMedium Impact = "MEDIUM"
	ImpactHigh   Impact = "HIGH"
)

// Neutral defaults substituted for missing or invalid fields.
const (
	DefaultDirection  = Hold
	DefaultConfidence = 0.5
	DefaultSize       = 5
	DefaultRisk       = 5
	DefaultHorizon    = Horizon1h
	DefaultImpact     = ImpactLow
)

// AdvisorySet is the normalized recommendation of one directional source.
type AdvisorySet struct {
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	SuggestedSize  int       `json:"suggested_size"`
	RiskLevel      int       `json:"risk_level"`
	ExpectedReturn float64   `json:"expected_return"`
	StopLoss       *float64  `json:"stop_loss,omitempty"`
	TakeProfit     *float64  `json:"take_profit,omitempty"`
	Horizon        Horizon   `json:"horizon"`
	Rationale      string    `json:"rationale"`
}

// SentimentAdvisory is the normalized output of the sentiment source.
type SentimentAdvisory struct {
	Sentiment    Sentiment `json:"sentiment"`
	Confidence   float64   `json:"confidence"`
	MarketImpact Impact    `json:"market_impact"`
	Summary      string    `json:"summary"`
}

var (
	// ErrUnavailable marks a source that could not produce an advisory.
	ErrUnavailable = errors.New("advisory unavailable")
	// ErrTimeout marks a source that exceeded its deadline.
	ErrTimeout = errors.New("advisory timeout")
)

// Generator produces a directional advisory for a market snapshot.
type Generator interface {
	Name() string
	Advise(ctx context.Context, snap market.Snapshot) (AdvisorySet, error)
}

// SentimentGenerator produces the sentiment advisory for a symbol.
type SentimentGenerator interface {
	Name() string
	Advise(ctx context.Context, symbol string, price float64) (SentimentAdvisory, error)
}
