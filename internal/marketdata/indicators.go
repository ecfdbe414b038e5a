package marketdata

import "math"

// TrueRange computes TR_t = max(high-low, |high-prevClose|, |low-prevClose|)
// for the bar at index i, using bars[i-1] as the previous close.
func TrueRange(bars []Bar, i int) float64 {
	curr := bars[i]
	prev := bars[i-1]
	tr1 := curr.High - curr.Low
	tr2 := math.Abs(curr.High - prev.Close)
	tr3 := math.Abs(curr.Low - prev.Close)
	return math.Max(tr1, math.Max(tr2, tr3))
}

// ATR is the rolling mean of true range over the trailing `period` bars,
// evaluated at the last bar. Returns 0 if there are not at least period+1 bars.
func ATR(bars []Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		sum += TrueRange(bars, i)
	}
	return sum / float64(period)
}

// ATRPct is ATR(period)/close*100 at the last bar. Returns 0 if there is
// insufficient data or the last close is non-positive.
func ATRPct(bars []Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}
	close := bars[len(bars)-1].Close
	if close <= 0 {
		return 0
	}
	return ATR(bars, period) / close * 100
}

// HasATRPct reports whether there is enough history to compute ATRPct,
// distinguishing "insufficient data" from a genuine zero reading.
func HasATRPct(bars []Bar, period int) bool {
	return len(bars) >= period+1
}

// SMA is the simple moving average of closes over the trailing `period`
// bars, evaluated at the last bar. Returns 0 if there are fewer than
// `period` bars.
func SMA(bars []Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// AverageVolume is the mean volume over the trailing `period` bars,
// evaluated at the last bar.
func AverageVolume(bars []Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Volume
	}
	return sum / float64(period)
}
