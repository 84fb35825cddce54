package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// klineUnits maps the exchange kline interval suffixes to their length.
var klineUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseIntervalDuration converts a kline interval token such as "15m", "4h"
// or "1w" to its length. ok is false for anything else.
func ParseIntervalDuration(token string) (d time.Duration, ok bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 2 {
		return 0, false
	}
	unit, found := klineUnits[token[len(token)-1]]
	if !found {
		return 0, false
	}
	count, err := strconv.ParseUint(token[:len(token)-1], 10, 32)
	if err != nil || count == 0 {
		return 0, false
	}
	return time.Duration(count) * unit, true
}
