package pattern

import (
	"testing"

	"github.com/rvora/eqtrader/internal/marketdata"
)

func bar(o, h, l, c float64) marketdata.Bar {
	return marketdata.Bar{Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func TestBullishEngulfing(t *testing.T) {
	bars := []marketdata.Bar{
		bar(10, 10.5, 9, 9.2), // bearish
		bar(9, 10.6, 8.8, 10.4), // bullish, engulfs prior body
	}
	if !BullishEngulfing(bars, 1) {
		t.Error("expected bullish engulfing pattern")
	}
}

func TestBullishEngulfing_NotEnoughBars(t *testing.T) {
	bars := []marketdata.Bar{bar(10, 10.5, 9, 9.2)}
	if BullishEngulfing(bars, 0) {
		t.Error("expected false with fewer than 2 bars")
	}
}

func TestHammer(t *testing.T) {
	b := bar(10, 10.12, 8.0, 10.1) // small body, long lower wick, tiny upper wick
	if !Hammer([]marketdata.Bar{b}, 0) {
		t.Error("expected hammer pattern")
	}
}

func TestDojiNearSupport(t *testing.T) {
	b := bar(10.0, 10.5, 9.5, 10.02)
	if !DojiNearSupport([]marketdata.Bar{b}, 0) {
		t.Error("expected doji pattern")
	}
}

func TestDetectAny_EmptyPatternsVacuouslyTrue(t *testing.T) {
	bars := []marketdata.Bar{bar(10, 10.5, 9.5, 10)}
	if !DetectAny(bars, nil, 0) {
		t.Error("expected empty pattern list to be vacuously true")
	}
}

func TestDetectAny_NoMatch(t *testing.T) {
	bars := []marketdata.Bar{bar(10, 10.2, 9.9, 9.95)} // bearish, no pattern
	if DetectAny(bars, []string{"hammer", "bullish_engulfing"}, 0) {
		t.Error("expected no pattern match")
	}
}
