// Package blackout implements the macro-event, earnings, and
// volatility-do-not-trade filters, grounded on
// original_source/src/trade_filters.py.
package blackout

import (
	"fmt"
	"time"
)

// Result is the outcome of a filter check.
type Result struct {
	Allowed bool
	Reason  string
}

func ok() Result { return Result{Allowed: true, Reason: "ok"} }

// Window is a per-date half-open time-of-day interval, wrap-past-midnight
// aware, matching SessionWindow's contains semantics.
type Window struct {
	Date  time.Time // only the date component is significant
	Start time.Time // only hour/minute significant
	End   time.Time
}

func minuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

func (w Window) containsTime(t time.Time) bool {
	m := minuteOfDay(t)
	start := minuteOfDay(w.Start)
	end := minuteOfDay(w.End)
	if start <= end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Macro implements the calendar-wide macro-event blackout: no trading on
// configured dates or time windows.
type Macro struct {
	Enabled  bool
	Dates    map[string]struct{} // YYYY-MM-DD
	Windows  []Window
}

// Check vetoes if dt's date is a blackout date, or falls in a blackout window.
func (m *Macro) Check(dt time.Time) Result {
	if !m.Enabled {
		return ok()
	}
	dateStr := dt.Format("2006-01-02")
	if _, blocked := m.Dates[dateStr]; blocked {
		return Result{Allowed: false, Reason: fmt.Sprintf("macro blackout date %s", dateStr)}
	}
	for _, w := range m.Windows {
		if !sameDate(dt, w.Date) {
			continue
		}
		if w.containsTime(dt) {
			return Result{
				Allowed: false,
				Reason: fmt.Sprintf("macro blackout window %s %02d:%02d-%02d:%02d",
					dateStr, w.Start.Hour(), w.Start.Minute(), w.End.Hour(), w.End.Minute()),
			}
		}
	}
	return ok()
}

// Earnings implements the per-symbol earnings blackout: no trading a symbol
// N calendar days before/after its earnings date.
type Earnings struct {
	Enabled       bool
	DaysBefore    int
	DaysAfter     int
	EarningsDates map[string][]time.Time // symbol (uppercase) -> dates
}

// Check vetoes if dt's date falls within [earnings - daysBefore, earnings +
// daysAfter] for any of the symbol's earnings dates.
func (e *Earnings) Check(symbol string, dt time.Time) Result {
	if !e.Enabled {
		return ok()
	}
	d := truncateToDate(dt)
	for _, ed := range e.EarningsDates[symbol] {
		start := ed.AddDate(0, 0, -e.DaysBefore)
		end := ed.AddDate(0, 0, e.DaysAfter)
		if !d.Before(start) && !d.After(end) {
			return Result{
				Allowed: false,
				Reason:  fmt.Sprintf("earnings blackout %s around %s", symbol, ed.Format("2006-01-02")),
			}
		}
	}
	return ok()
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// VolatilityDNT vetoes trading when ATR% or spread exceeds thresholds,
// independent of the market-quality gate (a distinct component per
// SPEC_FULL.md §4.12 step 7).
type VolatilityDNT struct {
	Enabled      bool
	MaxATRPct    float64
	MaxSpreadPct float64
}

// Check vetoes on the first of atrPct/spreadPct (when supplied) that
// exceeds its configured maximum.
func (v *VolatilityDNT) Check(atrPct, spreadPct *float64) Result {
	if !v.Enabled {
		return ok()
	}
	if atrPct != nil && *atrPct > v.MaxATRPct {
		return Result{Allowed: false, Reason: fmt.Sprintf("volatility DNT: ATR%% %.2f > %.2f", *atrPct, v.MaxATRPct)}
	}
	if spreadPct != nil && *spreadPct > v.MaxSpreadPct {
		return Result{Allowed: false, Reason: fmt.Sprintf("volatility DNT: spread %.2f%% > %.2f", *spreadPct, v.MaxSpreadPct)}
	}
	return ok()
}
