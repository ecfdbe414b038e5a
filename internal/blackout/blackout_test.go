package blackout

import (
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestMacro_BlackoutDate(t *testing.T) {
	m := &Macro{Enabled: true, Dates: map[string]struct{}{"2025-03-15": {}}}
	r := m.Check(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))
	if r.Allowed {
		t.Fatal("expected blackout date veto")
	}
}

func TestMacro_BlackoutWindow(t *testing.T) {
	mk := func(h, mnt int) time.Time { return time.Date(0, 1, 1, h, mnt, 0, 0, time.UTC) }
	win := Window{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Start: mk(14, 0), End: mk(14, 30)}
	m := &Macro{Enabled: true, Windows: []Window{win}}
	r := m.Check(time.Date(2025, 3, 15, 14, 10, 0, 0, time.UTC))
	if r.Allowed {
		t.Fatal("expected blackout window veto")
	}
	if r.Reason != "macro blackout window 2025-03-15 14:00-14:30" {
		t.Errorf("unexpected reason: %q", r.Reason)
	}
}

func TestMacro_OutsideWindowAllowed(t *testing.T) {
	mk := func(h, mnt int) time.Time { return time.Date(0, 1, 1, h, mnt, 0, 0, time.UTC) }
	win := Window{Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Start: mk(14, 0), End: mk(14, 30)}
	m := &Macro{Enabled: true, Windows: []Window{win}}
	r := m.Check(time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC))
	if !r.Allowed {
		t.Fatal("expected allowed outside the window")
	}
}

func TestEarnings_WithinBlackout(t *testing.T) {
	e := &Earnings{
		Enabled: true, DaysBefore: 1, DaysAfter: 1,
		EarningsDates: map[string][]time.Time{"AAPL": {time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)}},
	}
	r := e.Check("AAPL", time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC))
	if r.Allowed {
		t.Fatal("expected earnings blackout veto")
	}
}

func TestEarnings_OutsideBlackout(t *testing.T) {
	e := &Earnings{
		Enabled: true, DaysBefore: 1, DaysAfter: 1,
		EarningsDates: map[string][]time.Time{"AAPL": {time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)}},
	}
	r := e.Check("AAPL", time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC))
	if !r.Allowed {
		t.Fatal("expected no earnings blackout")
	}
}

func TestVolatilityDNT_ATRVeto(t *testing.T) {
	v := &VolatilityDNT{Enabled: true, MaxATRPct: 2.5, MaxSpreadPct: 0.15}
	r := v.Check(f64(3.0), nil)
	if r.Allowed {
		t.Fatal("expected ATR% veto")
	}
}

func TestVolatilityDNT_SpreadVeto(t *testing.T) {
	v := &VolatilityDNT{Enabled: true, MaxATRPct: 2.5, MaxSpreadPct: 0.15}
	r := v.Check(nil, f64(0.20))
	if r.Allowed {
		t.Fatal("expected spread veto")
	}
}

func TestVolatilityDNT_Disabled(t *testing.T) {
	v := &VolatilityDNT{Enabled: false, MaxATRPct: 0.1, MaxSpreadPct: 0.01}
	r := v.Check(f64(99), f64(99))
	if !r.Allowed {
		t.Fatal("expected pass when disabled")
	}
}
