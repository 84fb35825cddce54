package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func risingCandles(n int) []Candle {
	out := make([]Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = Candle{Open: p - 0.5, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return out
}

func TestComputeIndicators_NotEnoughCandles(t *testing.T) {
	ind := ComputeIndicators(risingCandles(minIndicatorCandles - 1))
	assert.False(t, ind.Ready)
	assert.Zero(t, ind.RSI)
}

func TestComputeIndicators_Uptrend(t *testing.T) {
	ind := ComputeIndicators(risingCandles(80))
	assert.True(t, ind.Ready)
	assert.Greater(t, ind.RSI, 70.0)
	assert.Greater(t, ind.SMA20, ind.SMA50)
	assert.Greater(t, ind.BBUpper, ind.BBLower)
	assert.Greater(t, ind.ATR, 0.0)
}
