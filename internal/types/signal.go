package types

import (
	"time"

	"quorum/internal/advisory"
)

// TradeSignal is the single fused decision of a cycle. It is built once by
// the fusion engine and only passed by value afterwards.
type TradeSignal struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	Direction      advisory.Direction `json:"direction"`
	Confidence     float64            `json:"confidence"`
	PositionSize   int                `json:"position_size"`
	RiskLevel      int                `json:"risk_level"`
	ExpectedReturn float64            `json:"expected_return"`
	StopLoss       *float64           `json:"stop_loss,omitempty"`
	TakeProfit     *float64           `json:"take_profit,omitempty"`
	Horizon        advisory.Horizon   `json:"horizon"`
	Leverage       int                `json:"leverage"`
	Rationale      string             `json:"rationale"`
	Detail         FusionDetail       `json:"detail"`
	Price          float64            `json:"price"`
	CreatedAt      time.Time          `json:"created_at"`
}

// SourceContribution records how one advisory entered the fusion.
type SourceContribution struct {
	Source           string             `json:"source"`
	Kind             string             `json:"kind"`
	Present          bool               `json:"present"`
	Direction        advisory.Direction `json:"direction,omitempty"`
	Confidence       float64            `json:"confidence,omitempty"`
	ConfiguredWeight float64            `json:"configured_weight"`
	EffectiveWeight  float64            `json:"effective_weight"`
}

// FusionDetail explains a fused signal.
type FusionDetail struct {
	Sources         []SourceContribution           `json:"sources"`
	Scores          map[advisory.Direction]float64 `json:"scores"`
	RawDirection    advisory.Direction             `json:"raw_direction"`
	Margin          float64                        `json:"margin"`
	HoldOverride    string                         `json:"hold_override,omitempty"`
	SentimentRisk   int                            `json:"sentiment_risk,omitempty"`
	SentimentReturn float64                        `json:"sentiment_return,omitempty"`
}
