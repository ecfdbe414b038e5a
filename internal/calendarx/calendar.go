// Package calendarx handles market session awareness: which of pre-market,
// regular, after-hours, or closed a given instant falls in, and whether the
// venue's holiday calendar rules a date out entirely.
//
// Design rules (carried from the teacher's market package):
//   - System must know if today is a trading day.
//   - System must know what session the market is currently in.
//   - Do not rely only on weekday checks — an explicit holiday set overrides.
//   - One central Calendar component, venue timezone configurable.
package calendarx

import (
	"fmt"
	"time"
)

// SessionType classifies where a timestamp falls in the trading day.
type SessionType int

const (
	Closed SessionType = iota
	PreMarket
	Regular
	AfterHours
)

func (s SessionType) String() string {
	switch s {
	case PreMarket:
		return "pre_market"
	case Regular:
		return "regular"
	case AfterHours:
		return "after_hours"
	default:
		return "closed"
	}
}

// SessionWindow is a half-open time-of-day interval; Start > End denotes a
// window that wraps past midnight.
type SessionWindow struct {
	Start        time.Time // only hour/minute are significant
	End          time.Time
	TradeAllowed bool
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// contains reports whether the time-of-day component of t falls in the
// window, honoring midnight wraparound.
func (w SessionWindow) contains(t time.Time) bool {
	m := minuteOfDay(t)
	start := minuteOfDay(w.Start)
	end := minuteOfDay(w.End)
	if start <= end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// Calendar classifies instants into sessions and enforces the holiday set.
type Calendar struct {
	loc        *time.Location
	preMarket  SessionWindow
	regular    SessionWindow
	afterHours SessionWindow
	holidays   map[string]string // YYYY-MM-DD -> reason
}

// Config is the set of values needed to construct a Calendar; see
// SPEC_FULL.md §6 market_sessions/holidays.
type Config struct {
	Timezone   string // defaults to America/New_York
	PreMarket  SessionWindow
	Regular    SessionWindow
	AfterHours SessionWindow
	Holidays   map[string]string
}

// New builds a Calendar from a Config, loading the named IANA timezone.
func New(cfg Config) (*Calendar, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("calendarx: load timezone %q: %w", tz, err)
	}
	holidays := cfg.Holidays
	if holidays == nil {
		holidays = map[string]string{}
	}
	return &Calendar{
		loc:        loc,
		preMarket:  cfg.PreMarket,
		regular:    cfg.Regular,
		afterHours: cfg.AfterHours,
		holidays:   holidays,
	}, nil
}

// NewFromHolidays is a small test helper mirroring the teacher's
// NewCalendarFromHolidays, using the NYSE-standard regular session.
func NewFromHolidays(holidays map[string]string) *Calendar {
	loc, _ := time.LoadLocation("America/New_York")
	mk := func(h, m int) time.Time { return time.Date(0, 1, 1, h, m, 0, 0, time.UTC) }
	if holidays == nil {
		holidays = map[string]string{}
	}
	return &Calendar{
		loc: loc,
		preMarket: SessionWindow{
			Start: mk(4, 0), End: mk(9, 30), TradeAllowed: false,
		},
		regular: SessionWindow{
			Start: mk(9, 30), End: mk(16, 0), TradeAllowed: true,
		},
		afterHours: SessionWindow{
			Start: mk(16, 0), End: mk(20, 0), TradeAllowed: false,
		},
		holidays: holidays,
	}
}

// IsHoliday reports whether the calendar date (in venue time) is a holiday.
func (c *Calendar) IsHoliday(dt time.Time) bool {
	dateStr := dt.In(c.loc).Format("2006-01-02")
	_, ok := c.holidays[dateStr]
	return ok
}

// HolidayReason returns the configured reason for the holiday, or "" if the
// date is not a holiday.
func (c *Calendar) HolidayReason(dt time.Time) string {
	dateStr := dt.In(c.loc).Format("2006-01-02")
	return c.holidays[dateStr]
}

// SessionAt classifies dt into one of the four session types.
func (c *Calendar) SessionAt(dt time.Time) SessionType {
	t := dt.In(c.loc)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday || c.IsHoliday(t) {
		return Closed
	}
	if c.preMarket.contains(t) {
		return PreMarket
	}
	if c.regular.contains(t) {
		return Regular
	}
	if c.afterHours.contains(t) {
		return AfterHours
	}
	return Closed
}

// TradingAllowed reports whether an order may be placed at dt: the session
// must not be Closed, and the matching window's TradeAllowed flag must be set.
func (c *Calendar) TradingAllowed(dt time.Time) bool {
	switch c.SessionAt(dt) {
	case PreMarket:
		return c.preMarket.TradeAllowed
	case Regular:
		return c.regular.TradeAllowed
	case AfterHours:
		return c.afterHours.TradeAllowed
	default:
		return false
	}
}
