package advisory

import "strings"

type Horizon string

const (
	Horizon1m  Horizon = "1m"
	Horizon5m  Horizon = "5m"
	Horizon15m Horizon = "15m"
	Horizon30m Horizon = "30m"
	Horizon1h  Horizon = "1h"
	Horizon4h  Horizon = "4h"
	Horizon1d  Horizon = "1d"
)

var horizonMinutes = []struct {
	token   Horizon
	minutes int
}{
	{Horizon1m, 1},
	{Horizon5m, 5},
	{Horizon15m, 15},
	{Horizon30m, 30},
	{Horizon1h, 60},
	{Horizon4h, 240},
	{Horizon1d, 1440},
}

// Minutes returns the horizon length and whether the token is known.
func (h Horizon) Minutes() (int, bool) {
	for _, item := range horizonMinutes {
		if item.token == h {
			return item.minutes, true
		}
	}
	return 0, false
}

// HorizonFromMinutes maps a length back to the nearest token. Ties pick the
// shorter horizon.
func HorizonFromMinutes(minutes int) Horizon {
	best := horizonMinutes[0]
	bestDist := abs(minutes - best.minutes)
	for _, item := range horizonMinutes[1:] {
		if d := abs(minutes - item.minutes); d < bestDist {
			best, bestDist = item, d
		}
	}
	return best.token
}

// ParseHorizon accepts the canonical tokens plus a few spellings models tend
// to return ("60m", "1H", "24h", "daily").
func ParseHorizon(raw string) (Horizon, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
		return Horizon(s), true
	case "60m", "1hr", "hourly":
		return Horizon1h, true
	case "240m", "4hr":
		return Horizon4h, true
	case "24h", "daily", "1day":
		return Horizon1d, true
	}
	return "", false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
