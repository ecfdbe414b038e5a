// Package pattern detects candlestick patterns on OHLC bars, grounded on
// original_source/src/candlestick.py. Patterns are optional entry filters,
// never required by the strategy unless explicitly enabled.
package pattern

import "github.com/rvora/eqtrader/internal/marketdata"

func bodySize(b marketdata.Bar) float64 {
	d := b.Close - b.Open
	if d < 0 {
		return -d
	}
	return d
}

func upperWick(b marketdata.Bar) float64 {
	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	return b.High - top
}

func lowerWick(b marketdata.Bar) float64 {
	bottom := b.Open
	if b.Close < bottom {
		bottom = b.Close
	}
	return bottom - b.Low
}

func rangeSize(b marketdata.Bar) float64 {
	r := b.High - b.Low
	if r > 0 {
		return r
	}
	return 1e-9
}

func isBullish(b marketdata.Bar) bool { return b.Close > b.Open }
func isBearish(b marketdata.Bar) bool { return b.Close < b.Open }

// BullishEngulfing reports whether the bar at idx is bullish and its body
// engulfs the previous bar's bearish body. A common reversal signal after a
// dip.
func BullishEngulfing(bars []marketdata.Bar, idx int) bool {
	if len(bars) < 2 || idx < 1 || idx >= len(bars) {
		return false
	}
	curr := bars[idx]
	prev := bars[idx-1]
	if !isBullish(curr) || !isBearish(prev) {
		return false
	}
	return curr.Close >= prev.Open && curr.Open <= prev.Close
}

// Hammer reports a small body near the top of the range with a long lower
// wick and little upper wick — bullish in a pullback.
func Hammer(bars []marketdata.Bar, idx int) bool {
	if len(bars) < 1 || idx < 0 || idx >= len(bars) {
		return false
	}
	const lowerWickRatio = 2.0
	b := bars[idx]
	body := bodySize(b)
	lower := lowerWick(b)
	upper := upperWick(b)
	if rangeSize(b) <= 0 || body <= 0 {
		return false
	}
	return isBullish(b) && lower >= body*lowerWickRatio && upper <= body*0.5
}

// DojiNearSupport reports a very small body (open ~= close): body/range <= 0.15.
func DojiNearSupport(bars []marketdata.Bar, idx int) bool {
	if len(bars) < 1 || idx < 0 || idx >= len(bars) {
		return false
	}
	const bodyRatio = 0.15
	b := bars[idx]
	body := bodySize(b)
	rng := rangeSize(b)
	return rng > 0 && body/rng <= bodyRatio
}

var detectors = map[string]func([]marketdata.Bar, int) bool{
	"bullish_engulfing": BullishEngulfing,
	"hammer":            Hammer,
	"doji":              DojiNearSupport,
}

// DetectAny returns true if any of the named patterns is present on the bar
// at idx (idx=-1 style "last bar" is expressed by the caller passing
// len(bars)-1). An empty pattern list is vacuously true.
func DetectAny(bars []marketdata.Bar, patterns []string, idx int) bool {
	if len(patterns) == 0 || len(bars) == 0 {
		return true
	}
	for _, name := range patterns {
		if fn, ok := detectors[name]; ok && fn(bars, idx) {
			return true
		}
	}
	return false
}
