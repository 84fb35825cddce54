// Package risk decides whether a fused signal may be executed.
package risk

import (
	"fmt"
	"math"

	"quorum/internal/advisory"
	"quorum/internal/types"
)

type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonMalformedSignal      Reason = "MALFORMED_SIGNAL"
	ReasonInvalidDirection     Reason = "INVALID_DIRECTION"
	ReasonLowConfidence        Reason = "LOW_CONFIDENCE"
	ReasonDailyLossLimit       Reason = "DAILY_LOSS_LIMIT_EXCEEDED"
	ReasonPositionSizeExceeded Reason = "POSITION_SIZE_EXCEEDED"
	ReasonRiskTooHigh          Reason = "RISK_TOO_HIGH"
	ReasonInsufficientBalance  Reason = "INSUFFICIENT_BALANCE"
)

// Limits are the thresholds the gate enforces.
type Limits struct {
	MinConfidence        float64 `json:"min_confidence"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`
	MaxPositionSizeScale float64 `json:"max_position_size_scale"`
	MaxRiskLevel         int     `json:"max_risk_level"`
	MinBalanceThreshold  float64 `json:"min_balance_threshold"`
}

func DefaultLimits() Limits {
	return Limits{
		MinConfidence:        0.3,
		MaxDailyLoss:         100,
		MaxPositionSizeScale: 0.1,
		MaxRiskLevel:         8,
		MinBalanceThreshold:  100,
	}
}

// Verdict is the gate outcome. Reason is empty when Accepted.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func (v Verdict) String() string {
	if v.Accepted {
		return "ACCEPTED"
	}
	return fmt.Sprintf("REJECTED(%s): %s", v.Reason, v.Detail)
}

func accept() Verdict { return Verdict{Accepted: true} }

func reject(reason Reason, format string, args ...any) Verdict {
	return Verdict{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Gate is stateless; the same inputs always give the same verdict.
type Gate struct{}

func NewGate() *Gate { return &Gate{} }

// Admit checks the signal in a fixed order and returns the first failure.
// Signal validity and the confidence floor apply to every direction; a HOLD
// that passes them is accepted without looking at the account.
func (g *Gate) Admit(sig types.TradeSignal, limits Limits, account types.AccountSnapshot) Verdict {
	if sig.Direction == "" || !finite(sig.Confidence) || sig.Confidence < 0 || sig.Confidence > 1 ||
		sig.PositionSize < 1 || sig.PositionSize > 10 || sig.RiskLevel < 1 || sig.RiskLevel > 10 {
		return reject(ReasonMalformedSignal, "signal fields missing or out of range")
	}
	if !sig.Direction.Valid() {
		return reject(ReasonInvalidDirection, "direction %q is not BUY, SELL or HOLD", sig.Direction)
	}
	if sig.Confidence < limits.MinConfidence {
		return reject(ReasonLowConfidence, "confidence %.2f below %.2f", sig.Confidence, limits.MinConfidence)
	}
	if sig.Direction == advisory.Hold {
		return accept()
	}
	if account.DailyRealizedPnL < -limits.MaxDailyLoss {
		return reject(ReasonDailyLossLimit, "daily pnl %.2f below -%.2f", account.DailyRealizedPnL, limits.MaxDailyLoss)
	}
	if maxSize := limits.MaxPositionSizeScale * 10; float64(sig.PositionSize) > maxSize {
		return reject(ReasonPositionSizeExceeded, "position size %d above %.1f", sig.PositionSize, maxSize)
	}
	if sig.RiskLevel > limits.MaxRiskLevel {
		return reject(ReasonRiskTooHigh, "risk level %d above %d", sig.RiskLevel, limits.MaxRiskLevel)
	}
	if account.AvailableBalance < limits.MinBalanceThreshold {
		return reject(ReasonInsufficientBalance, "available balance %.2f below %.2f", account.AvailableBalance, limits.MinBalanceThreshold)
	}
	return accept()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
