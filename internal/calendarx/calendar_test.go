package calendarx

import (
	"testing"
	"time"
)

func makeTestCalendar() *Calendar {
	return NewFromHolidays(map[string]string{
		"2026-01-01": "New Year's Day",
		"2026-07-04": "Independence Day",
		"2026-12-25": "Christmas Day",
	})
}

func TestSessionAt_WeekdayRegular(t *testing.T) {
	cal := makeTestCalendar()
	monday := time.Date(2026, 2, 2, 15, 0, 0, 0, time.UTC) // 10:00 New York (EST, UTC-5)
	if got := cal.SessionAt(monday); got != Regular {
		t.Errorf("expected Regular, got %v", got)
	}
}

func TestSessionAt_Weekend(t *testing.T) {
	cal := makeTestCalendar()
	saturday := time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	if cal.SessionAt(saturday) != Closed {
		t.Error("expected Saturday to be Closed")
	}
	if cal.SessionAt(sunday) != Closed {
		t.Error("expected Sunday to be Closed")
	}
}

func TestSessionAt_Holiday(t *testing.T) {
	cal := makeTestCalendar()
	christmas := time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC)
	if cal.SessionAt(christmas) != Closed {
		t.Error("expected Christmas to be Closed")
	}
	if reason := cal.HolidayReason(christmas); reason != "Christmas Day" {
		t.Errorf("expected 'Christmas Day', got %q", reason)
	}
}

func TestTradingAllowed_RegularSession(t *testing.T) {
	cal := makeTestCalendar()
	during := time.Date(2026, 2, 2, 15, 30, 0, 0, time.UTC) // 10:30 New York
	if !cal.TradingAllowed(during) {
		t.Error("expected trading allowed during regular session")
	}
}

func TestTradingAllowed_PreMarketNotAllowedByDefault(t *testing.T) {
	cal := makeTestCalendar()
	early := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC) // 05:00 New York
	if cal.SessionAt(early) != PreMarket {
		t.Fatalf("expected PreMarket session, got %v", cal.SessionAt(early))
	}
	if cal.TradingAllowed(early) {
		t.Error("expected pre-market trading to be disallowed by default")
	}
}

func TestTradingAllowed_Closed(t *testing.T) {
	cal := makeTestCalendar()
	midnight := time.Date(2026, 2, 2, 1, 0, 0, 0, time.UTC)
	if cal.SessionAt(midnight) != Closed {
		t.Fatalf("expected Closed, got %v", cal.SessionAt(midnight))
	}
	if cal.TradingAllowed(midnight) {
		t.Error("expected trading disallowed when closed")
	}
}

// Session-wrap invariant (testable property 9): a window with start=20:00,
// end=04:00 includes 23:00 and 02:00, excludes 05:00.
func TestSessionWindow_WrapPastMidnight(t *testing.T) {
	mk := func(h, m int) time.Time { return time.Date(0, 1, 1, h, m, 0, 0, time.UTC) }
	w := SessionWindow{Start: mk(20, 0), End: mk(4, 0), TradeAllowed: true}

	at := func(h, m int) time.Time { return time.Date(2026, 2, 2, h, m, 0, 0, time.UTC) }
	if !w.contains(at(23, 0)) {
		t.Error("expected 23:00 to be inside the wrapped window")
	}
	if !w.contains(at(2, 0)) {
		t.Error("expected 02:00 to be inside the wrapped window")
	}
	if w.contains(at(5, 0)) {
		t.Error("expected 05:00 to be outside the wrapped window")
	}
}
