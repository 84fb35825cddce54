// Package fusion combines the advisories of one cycle into a TradeSignal.
//
// Every present advisory contributes to a direction score with its
// confidence times its effective weight, where effective weights are the
// configured weights renormalized over the advisories that actually arrived.
// The sentiment advisory votes BUY/SELL/HOLD for POSITIVE/NEGATIVE/NEUTRAL.
// The top direction wins unless the fused confidence is below the floor or
// the lead over the runner-up is below the tie margin, in which case the
// signal is HOLD.
package fusion

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/types"

	"github.com/google/uuid"
)

const (
	DefaultConfidenceFloor = 0.6
	DefaultTieMargin       = 0.1

	sentimentSize = 5
	epsilon       = 1e-9
)

// Override reasons recorded in FusionDetail.HoldOverride.
const (
	OverrideLowConfidence = "low_confidence"
	OverrideNarrowMargin  = "narrow_margin"
	OverrideNoAdvisories  = "no_advisories"
)

// Input is one directional source. A nil Advisory means it was absent.
type Input struct {
	Source   string
	Kind     string
	Weight   float64
	Advisory *advisory.AdvisorySet
}

// SentimentInput is the sentiment source. A nil Advisory means it was absent.
type SentimentInput struct {
	Source   string
	Weight   float64
	Advisory *advisory.SentimentAdvisory
}

// Weights for the canonical primary/secondary/sentiment arrangement.
type Weights struct {
	Primary   float64
	Secondary float64
	Sentiment float64
}

type Thresholds struct {
	ConfidenceFloor float64
	TieMargin       float64
}

type Options struct {
	Thresholds      Thresholds
	DefaultLeverage int
	Now             func() time.Time
	NewID           func() string
}

type Engine struct {
	thresholds atomic.Pointer[Thresholds]
	leverage   int
	now        func() time.Time
	newID      func() string
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		leverage: opts.DefaultLeverage,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if e.leverage < 1 {
		e.leverage = 1
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	e.SetThresholds(opts.Thresholds)
	return e
}

// SetThresholds swaps the hold thresholds. Zero values fall back to the
// defaults.
func (e *Engine) SetThresholds(t Thresholds) {
	if t.ConfidenceFloor <= 0 {
		t.ConfidenceFloor = DefaultConfidenceFloor
	}
	if t.TieMargin <= 0 {
		t.TieMargin = DefaultTieMargin
	}
	e.thresholds.Store(&t)
}

func (e *Engine) Thresholds() Thresholds {
	return *e.thresholds.Load()
}

// FuseTriple fuses the canonical primary, secondary and sentiment advisories.
func (e *Engine) FuseTriple(symbol string, price float64, primary, secondary *advisory.AdvisorySet, sentiment *advisory.SentimentAdvisory, w Weights) types.TradeSignal {
	return e.Fuse(symbol, price,
		[]Input{
			{Source: "primary", Weight: w.Primary, Advisory: primary},
			{Source: "secondary", Weight: w.Secondary, Advisory: secondary},
		},
		&SentimentInput{Source: "sentiment", Weight: w.Sentiment, Advisory: sentiment},
	)
}

// Fuse combines any number of directional inputs and an optional sentiment
// input. It is total: malformed or missing input degrades to HOLD.
func (e *Engine) Fuse(symbol string, price float64, inputs []Input, sentiment *SentimentInput) types.TradeSignal {
	th := e.Thresholds()
	detail := types.FusionDetail{
		Scores: map[advisory.Direction]float64{advisory.Buy: 0, advisory.Sell: 0, advisory.Hold: 0},
	}

	total := 0.0
	for _, in := range inputs {
		if in.Advisory != nil && usableWeight(in.Weight) {
			total += in.Weight
		}
	}
	sentimentPresent := sentiment != nil && sentiment.Advisory != nil && usableWeight(sentiment.Weight)
	if sentimentPresent {
		total += sentiment.Weight
	}

	sig := types.TradeSignal{
		ID:        e.newID(),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Leverage:  e.leverage,
		Price:     price,
		CreatedAt: e.now().UTC(),
	}

	if total <= 0 {
		for _, in := range inputs {
			detail.Sources = append(detail.Sources, absentContribution(in.Source, in.Kind, in.Weight))
		}
		if sentiment != nil {
			detail.Sources = append(detail.Sources, absentContribution(sentiment.Source, "sentiment", sentiment.Weight))
		}
		detail.RawDirection = advisory.Hold
		detail.HoldOverride = OverrideNoAdvisories
		sig.Direction = advisory.Hold
		sig.Confidence = advisory.DefaultConfidence
		sig.PositionSize = advisory.DefaultSize
		sig.RiskLevel = advisory.DefaultRisk
		sig.Horizon = advisory.DefaultHorizon
		sig.Detail = detail
		return sig
	}

	var (
		confidence, size, risk, ret float64
		stops, targets              []float64
		horizonMin                  = math.MaxInt
		rationale                   []string
	)
	for _, in := range inputs {
		if in.Advisory == nil || !usableWeight(in.Weight) {
			detail.Sources = append(detail.Sources, absentContribution(in.Source, in.Kind, in.Weight))
			continue
		}
		a := sanitize(*in.Advisory)
		eff := in.Weight / total
		detail.Scores[a.Direction] += a.Confidence * eff
		confidence += a.Confidence * eff
		size += float64(a.SuggestedSize) * eff
		risk += float64(a.RiskLevel) * eff
		ret += a.ExpectedReturn * eff
		if a.StopLoss != nil {
			stops = append(stops, *a.StopLoss)
		}
		if a.TakeProfit != nil {
			targets = append(targets, *a.TakeProfit)
		}
		if m, ok := a.Horizon.Minutes(); ok && m < horizonMin {
			horizonMin = m
		}
		if a.Rationale != "" {
			rationale = append(rationale, in.Source+": "+a.Rationale)
		}
		detail.Sources = append(detail.Sources, types.SourceContribution{
			Source:           in.Source,
			Kind:             in.Kind,
			Present:          true,
			Direction:        a.Direction,
			Confidence:       a.Confidence,
			ConfiguredWeight: in.Weight,
			EffectiveWeight:  eff,
		})
	}
	if sentiment != nil {
		if !sentimentPresent {
			detail.Sources = append(detail.Sources, absentContribution(sentiment.Source, "sentiment", sentiment.Weight))
		} else {
			s := sanitizeSentiment(*sentiment.Advisory)
			eff := sentiment.Weight / total
			dir := SentimentDirection(s.Sentiment)
			sRisk := SentimentRisk(s.Sentiment, s.MarketImpact)
			sRet := SentimentReturn(s.Sentiment)
			detail.Scores[dir] += s.Confidence * eff
			detail.SentimentRisk = sRisk
			detail.SentimentReturn = sRet
			confidence += s.Confidence * eff
			size += sentimentSize * eff
			risk += float64(sRisk) * eff
			ret += sRet * eff
			if s.Summary != "" {
				rationale = append(rationale, sentiment.Source+": "+s.Summary)
			}
			detail.Sources = append(detail.Sources, types.SourceContribution{
				Source:           sentiment.Source,
				Kind:             "sentiment",
				Present:          true,
				Direction:        dir,
				Confidence:       s.Confidence,
				ConfiguredWeight: sentiment.Weight,
				EffectiveWeight:  eff,
			})
		}
	}

	top, margin := rank(detail.Scores)
	detail.RawDirection = top
	detail.Margin = margin
	direction := top
	switch {
	case confidence < th.ConfidenceFloor-epsilon:
		direction = advisory.Hold
		detail.HoldOverride = OverrideLowConfidence
	case margin < th.TieMargin-epsilon:
		direction = advisory.Hold
		detail.HoldOverride = OverrideNarrowMargin
	}

	sig.Direction = direction
	sig.Confidence = clamp01(confidence)
	sig.PositionSize = advisory.ClampScale(advisory.RoundHalfUp(size))
	sig.RiskLevel = advisory.ClampScale(advisory.RoundHalfUp(risk))
	sig.ExpectedReturn = ret
	sig.StopLoss = mean(stops)
	sig.TakeProfit = mean(targets)
	sig.Horizon = advisory.DefaultHorizon
	if horizonMin != math.MaxInt {
		sig.Horizon = advisory.HorizonFromMinutes(horizonMin)
	}
	sig.Rationale = strings.Join(rationale, " | ")
	sig.Detail = detail
	return sig
}

// SentimentDirection maps a sentiment onto the direction it votes for.
func SentimentDirection(s advisory.Sentiment) advisory.Direction {
	switch s {
	case advisory.Positive:
		return advisory.Buy
	case advisory.Negative:
		return advisory.Sell
	default:
		return advisory.Hold
	}
}

// SentimentRisk is base{POS 3, NEU 5, NEG 7} scaled by impact
// {HIGH 1.5, MEDIUM 1.0, LOW 0.8}, rounded and clamped to 1..10.
func SentimentRisk(s advisory.Sentiment, impact advisory.Impact) int {
	base := 5.0
	switch s {
	case advisory.Positive:
		base = 3
	case advisory.Negative:
		base = 7
	}
	mult := 0.8
	switch impact {
	case advisory.ImpactHigh:
		mult = 1.5
	case advisory.ImpactMedium:
		mult = 1.0
	}
	return advisory.ClampScale(advisory.RoundHalfUp(base * mult))
}

func SentimentReturn(s advisory.Sentiment) float64 {
	switch s {
	case advisory.Positive:
		return 0.05
	case advisory.Negative:
		return -0.05
	default:
		return 0
	}
}

// rank returns the leading direction and its lead over the runner-up.
// Equal scores resolve BUY, SELL, HOLD in that order.
func rank(scores map[advisory.Direction]float64) (advisory.Direction, float64) {
	order := []advisory.Direction{advisory.Buy, advisory.Sell, advisory.Hold}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	return order[0], scores[order[0]] - scores[order[1]]
}

// sanitize re-applies the value ranges so a hand-built AdvisorySet cannot
// push the fused signal out of bounds.
func sanitize(a advisory.AdvisorySet) advisory.AdvisorySet {
	if !a.Direction.Valid() {
		a.Direction = advisory.DefaultDirection
	}
	if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
		a.Confidence = advisory.DefaultConfidence
	}
	if a.SuggestedSize == 0 {
		a.SuggestedSize = advisory.DefaultSize
	}
	a.SuggestedSize = advisory.ClampScale(a.SuggestedSize)
	if a.RiskLevel == 0 {
		a.RiskLevel = advisory.DefaultRisk
	}
	a.RiskLevel = advisory.ClampScale(a.RiskLevel)
	if math.IsNaN(a.ExpectedReturn) || math.IsInf(a.ExpectedReturn, 0) {
		a.ExpectedReturn = 0
	}
	if a.StopLoss != nil && (math.IsNaN(*a.StopLoss) || *a.StopLoss <= 0) {
		a.StopLoss = nil
	}
	if a.TakeProfit != nil && (math.IsNaN(*a.TakeProfit) || *a.TakeProfit <= 0) {
		a.TakeProfit = nil
	}
	return a
}

func sanitizeSentiment(s advisory.SentimentAdvisory) advisory.SentimentAdvisory {
	switch s.Sentiment {
	case advisory.Positive, advisory.Negative, advisory.Neutral:
	default:
		s.Sentiment = advisory.Neutral
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		s.Confidence = advisory.DefaultConfidence
	}
	return s
}

func absentContribution(source, kind string, weight float64) types.SourceContribution {
	return types.SourceContribution{Source: source, Kind: kind, ConfiguredWeight: weight}
}

func usableWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
