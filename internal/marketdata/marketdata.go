// Package marketdata provides the bar/quote data model and the rolling
// indicator calculations the gates and strategy consume.
//
// Bars are kept as a plain ordered slice rather than a dataframe; all
// reductions operate on contiguous tails, matching how the engine is
// actually driven (bars ordered oldest first; the last element is the most
// recent bar).
package marketdata

import (
	"fmt"
	"time"
)

// Bar is one OHLCV record for a fixed timeframe (daily or 1-minute).
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate checks the OHLC ordering and non-negative volume invariant.
func (b Bar) Validate() error {
	lo := min(b.Open, b.Close)
	hi := max(b.Open, b.Close)
	if b.Low > lo || lo > hi || hi > b.High {
		return fmt.Errorf("marketdata: bar %s violates low<=min(open,close)<=max(open,close)<=high", b.Timestamp)
	}
	if b.Volume < 0 {
		return fmt.Errorf("marketdata: bar %s has negative volume", b.Timestamp)
	}
	return nil
}

// Quote is a top-of-book snapshot.
type Quote struct {
	Bid float64
	Ask float64
}

// Valid reports whether the quote satisfies bid>0, ask>0, ask>=bid.
func (q Quote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Ask >= q.Bid
}

// Mid is the midpoint price.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// SpreadPct is the bid-ask spread as a percentage of mid.
func (q Quote) SpreadPct() float64 {
	mid := q.Mid()
	if mid <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / mid * 100
}
