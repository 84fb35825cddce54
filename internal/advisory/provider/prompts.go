package provider

import (
	"fmt"
	"math"
	"strings"

	"quorum/internal/market"
)

const advisorSystemPrompt = "You are a professional investment analyst. Provide accurate and objective analysis. Answer with a single JSON object."

const advisorAnswerFormat = `Respond with this JSON format:
{
  "decision": "BUY/SELL/HOLD",
  "confidence": 0.0-1.0,
  "position_size": 1-10,
  "risk_level": 1-10,
  "expected_return": 0.0-1.0,
  "reasoning": "analysis rationale",
  "stop_loss": "stop loss price",
  "take_profit": "take profit price",
  "timeframe": "1m/5m/15m/30m/1h/4h/1d"
}`

const sentimentSystemPrompt = "You analyze crypto news flow and market sentiment. Answer with a single JSON object."

const sentimentAnswerFormat = `Respond with this JSON format:
{
  "sentiment": "POSITIVE/NEGATIVE/NEUTRAL",
  "confidence": 0.0-1.0,
  "key_news": ["headline 1", "headline 2"],
  "market_impact": "HIGH/MEDIUM/LOW",
  "trend_prediction": "BULLISH/BEARISH/NEUTRAL",
  "risk_factors": ["risk 1"],
  "opportunities": ["opportunity 1"],
  "summary": "overall summary"
}`

// Situation is a coarse reading of the snapshot used in prompts.
type Situation struct {
	Trend       string
	Volatility  string
	VolumeTrend string
}

func describeSituation(snap market.Snapshot) Situation {
	out := Situation{Trend: "NEUTRAL", Volatility: "MEDIUM", VolumeTrend: "STABLE"}
	ind := snap.Indicators
	if ind.Ready {
		switch {
		case snap.Price > ind.SMA20 && ind.SMA20 > ind.SMA50:
			out.Trend = "BULLISH"
		case snap.Price < ind.SMA20 && ind.SMA20 < ind.SMA50:
			out.Trend = "BEARISH"
		}
		if snap.Price > 0 && ind.ATR > 0 {
			pct := ind.ATR / snap.Price * 100
			switch {
			case pct >= 3:
				out.Volatility = "HIGH"
			case pct < 1:
				out.Volatility = "LOW"
			}
		}
	}
	if n := len(snap.Candles); n >= 20 {
		var recent, base float64
		for _, c := range snap.Candles[n-5:] {
			recent += c.Volume
		}
		for _, c := range snap.Candles[n-20:] {
			base += c.Volume
		}
		recent /= 5
		base /= 20
		if base > 0 {
			switch ratio := recent / base; {
			case ratio >= 1.2:
				out.VolumeTrend = "INCREASING"
			case ratio <= 0.8:
				out.VolumeTrend = "DECREASING"
			}
		}
	}
	return out
}

func buildAdvisorPrompt(snap market.Snapshot) string {
	ind := snap.Indicators
	sit := describeSituation(snap)
	var b strings.Builder
	b.WriteString("Make an investment decision from the information below.\n\n")
	b.WriteString("Market data:\n")
	fmt.Fprintf(&b, "- Symbol: %s\n", snap.Symbol)
	fmt.Fprintf(&b, "- Price: %s\n", num(snap.Price))
	fmt.Fprintf(&b, "- Volume 24h: %s\n", num(snap.Volume24h))
	fmt.Fprintf(&b, "- Change 24h: %s%%\n", num(snap.Change24h))
	b.WriteString("\nTechnical indicators")
	if snap.Interval != "" {
		fmt.Fprintf(&b, " (%s)", snap.Interval)
	}
	b.WriteString(":\n")
	if ind.Ready {
		fmt.Fprintf(&b, "- RSI: %s\n", num(ind.RSI))
		fmt.Fprintf(&b, "- MACD: %s\n", num(ind.MACD))
		fmt.Fprintf(&b, "- MACD Signal: %s\n", num(ind.MACDSignal))
		fmt.Fprintf(&b, "- Bollinger Upper: %s\n", num(ind.BBUpper))
		fmt.Fprintf(&b, "- Bollinger Lower: %s\n", num(ind.BBLower))
		fmt.Fprintf(&b, "- SMA 20: %s\n", num(ind.SMA20))
		fmt.Fprintf(&b, "- SMA 50: %s\n", num(ind.SMA50))
	} else {
		b.WriteString("- not enough history\n")
	}
	b.WriteString("\nMarket situation:\n")
	fmt.Fprintf(&b, "- Trend: %s\n", sit.Trend)
	fmt.Fprintf(&b, "- Volatility: %s\n", sit.Volatility)
	fmt.Fprintf(&b, "- Volume trend: %s\n\n", sit.VolumeTrend)
	b.WriteString(advisorAnswerFormat)
	return b.String()
}

func buildSentimentPrompt(symbol string, price float64) string {
	var b strings.Builder
	b.WriteString("Analyze the latest news and market sentiment for this crypto symbol:\n\n")
	fmt.Fprintf(&b, "Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Price: %s\n\n", num(price))
	b.WriteString(sentimentAnswerFormat)
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1000:
		return fmt.Sprintf("%.2f", v)
	case abs >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}
