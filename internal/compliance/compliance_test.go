package compliance

import (
	"testing"
	"time"
)

func TestS5_PDTBlockThenEquityClears(t *testing.T) {
	c := New(Config{PDTEnabled: true, MarginAccount: true, PDTMinEquity: 25_000})
	s := NewState()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c.RecordDayTrade(s, today.AddDate(0, 0, -i))
	}

	allowed, reason := c.CanDayTrade(s, 20_000, today)
	if allowed {
		t.Fatal("expected PDT veto at equity 20,000 with 3 recent day trades")
	}
	if reason == "" {
		t.Error("expected a reason string")
	}

	allowed, _ = c.CanDayTrade(s, 25_000, today)
	if !allowed {
		t.Fatal("expected allow once equity reaches the PDT minimum")
	}
}

func TestCanDayTrade_DisabledOrCashAccountAlwaysAllows(t *testing.T) {
	today := time.Now()
	disabled := New(Config{PDTEnabled: false, MarginAccount: true})
	if allowed, _ := disabled.CanDayTrade(NewState(), 1000, today); !allowed {
		t.Error("expected allow when PDT disabled")
	}
	cash := New(Config{PDTEnabled: true, MarginAccount: false})
	if allowed, _ := cash.CanDayTrade(NewState(), 1000, today); !allowed {
		t.Error("expected allow on cash account")
	}
}

func TestCanDayTrade_OldTradesPruned(t *testing.T) {
	c := New(Config{PDTEnabled: true, MarginAccount: true, PDTMinEquity: 25_000})
	s := NewState()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c.RecordDayTrade(s, today.AddDate(0, 0, -20-i)) // well outside the 7-day window
	}
	allowed, _ := c.CanDayTrade(s, 20_000, today)
	if !allowed {
		t.Fatal("expected allow: all recorded day trades are outside the rolling window")
	}
}

func TestRecordDayTrade_TruncatesTo20(t *testing.T) {
	c := New(Config{})
	s := NewState()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		c.RecordDayTrade(s, base.AddDate(0, 0, i))
	}
	if len(s.DayTradeDates) != 20 {
		t.Fatalf("len = %d, want 20", len(s.DayTradeDates))
	}
	if !s.DayTradeDates[len(s.DayTradeDates)-1].Equal(base.AddDate(0, 0, 29)) {
		t.Error("expected the most recent 20 entries to be retained")
	}
}
