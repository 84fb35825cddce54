package execution

import (
	"math"

	"quorum/internal/gateway/exchange"

	"github.com/shopspring/decimal"
)

// OrderQuantity sizes an entry: the committed notional is
// balance * min(size/10, scale), divided by price, raised to the venue
// minimum and rounded to its lot precision. A non-positive price yields the
// minimum order size.
func OrderQuantity(balance float64, size int, scale, price float64, c exchange.Constraints) float64 {
	minQty := decimal.NewFromFloat(c.MinOrderSize)
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		out, _ := minQty.Round(c.LotPrecision).Float64()
		return out
	}
	fraction := math.Min(float64(size)/10, scale)
	if fraction < 0 || math.IsNaN(fraction) {
		fraction = 0
	}
	if balance < 0 || math.IsNaN(balance) {
		balance = 0
	}
	qty := decimal.NewFromFloat(balance).
		Mul(decimal.NewFromFloat(fraction)).
		Div(decimal.NewFromFloat(price))
	if qty.LessThan(minQty) {
		qty = minQty
	}
	out, _ := qty.Round(c.LotPrecision).Float64()
	return out
}

// EffectiveLeverage caps the requested leverage at the venue maximum.
func EffectiveLeverage(requested int, c exchange.Constraints) int {
	lev := requested
	if c.MaxLeverage > 0 && lev > c.MaxLeverage {
		lev = c.MaxLeverage
	}
	if lev < 1 {
		lev = 1
	}
	return lev
}
