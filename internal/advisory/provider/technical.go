package provider

import (
	"context"
	"fmt"
	"math"
	"strings"

	"quorum/internal/advisory"
	"quorum/internal/market"
)

// Technical scores RSI, MACD, moving average alignment and Bollinger band
// position into a directional advisory. It needs no network access.
type Technical struct {
	name string
}

func NewTechnical(name string) *Technical {
	if strings.TrimSpace(name) == "" {
		name = "technical"
	}
	return &Technical{name: name}
}

func (t *Technical) Name() string { return t.name }

func (t *Technical) Advise(ctx context.Context, snap market.Snapshot) (advisory.AdvisorySet, error) {
	if err := ctx.Err(); err != nil {
		return advisory.AdvisorySet{}, fmt.Errorf("%s: %w", t.name, advisory.ErrTimeout)
	}
	ind := snap.Indicators
	if !ind.Ready || snap.Price <= 0 {
		return advisory.AdvisorySet{}, fmt.Errorf("%s: %w: indicators not ready", t.name, advisory.ErrUnavailable)
	}

	score := 0
	var reasons []string
	switch {
	case ind.RSI > 0 && ind.RSI < 30:
		score++
		reasons = append(reasons, fmt.Sprintf("RSI %.1f oversold", ind.RSI))
	case ind.RSI > 70:
		score--
		reasons = append(reasons, fmt.Sprintf("RSI %.1f overbought", ind.RSI))
	}
	switch {
	case ind.MACDHist > 0:
		score++
		reasons = append(reasons, "MACD above signal")
	case ind.MACDHist < 0:
		score--
		reasons = append(reasons, "MACD below signal")
	}
	switch {
	case snap.Price > ind.SMA20 && ind.SMA20 > ind.SMA50:
		score++
		reasons = append(reasons, "price above SMA20 above SMA50")
	case snap.Price < ind.SMA20 && ind.SMA20 < ind.SMA50:
		score--
		reasons = append(reasons, "price below SMA20 below SMA50")
	}
	switch {
	case ind.BBLower > 0 && snap.Price <= ind.BBLower:
		score++
		reasons = append(reasons, "price at lower band")
	case ind.BBUpper > 0 && snap.Price >= ind.BBUpper:
		score--
		reasons = append(reasons, "price at upper band")
	}

	direction := "HOLD"
	switch {
	case score >= 2:
		direction = "BUY"
	case score <= -2:
		direction = "SELL"
	}
	strength := math.Abs(float64(score))
	confidence := 0.5 + 0.1*strength
	size := 3 + strength
	atrPct := ind.ATR / snap.Price * 100
	risk := 3 + math.Round(atrPct*2)

	raw := advisory.Raw{
		Direction:  direction,
		Confidence: &confidence,
		Size:       &size,
		Risk:       &risk,
		Horizon:    snap.Interval,
		Rationale:  strings.Join(reasons, "; "),
	}
	if ind.ATR > 0 && direction != "HOLD" {
		sign := 1.0
		if direction == "SELL" {
			sign = -1
		}
		sl := snap.Price - sign*2*ind.ATR
		tp := snap.Price + sign*3*ind.ATR
		ret := 1.5 * ind.ATR / snap.Price
		raw.StopLoss, raw.TakeProfit, raw.ExpectedReturn = &sl, &tp, &ret
	}
	return advisory.Normalize(raw), nil
}
