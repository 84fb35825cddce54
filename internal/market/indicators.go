package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

const minIndicatorCandles = 50

// Indicators are the last values of the standard studies over the candle
// closes. Ready is false when there were too few candles to compute them.
type Indicators struct {
	Ready      bool    `json:"ready"`
	RSI        float64 `json:"rsi_14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50"`
	ATR        float64 `json:"atr_14"`
}

// ComputeIndicators runs RSI(14), MACD(12,26,9), Bollinger(20,2), SMA 20/50
// and ATR(14) over candles.
func ComputeIndicators(candles []Candle) Indicators {
	if len(candles) < minIndicatorCandles {
		return Indicators{}
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	return Indicators{
		Ready:      true,
		RSI:        last(talib.Rsi(closes, 14)),
		MACD:       last(macd),
		MACDSignal: last(signal),
		MACDHist:   last(hist),
		BBUpper:    last(upper),
		BBMiddle:   last(middle),
		BBLower:    last(lower),
		SMA20:      last(talib.Sma(closes, 20)),
		SMA50:      last(talib.Sma(closes, 50)),
		ATR:        last(talib.Atr(highs, lows, closes, 14)),
	}
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
