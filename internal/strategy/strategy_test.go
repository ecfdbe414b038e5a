package strategy

import (
	"testing"
	"time"

	"github.com/rvora/eqtrader/internal/marketdata"
)

// uptrendBars builds a clean uptrend of n daily bars starting at base,
// rising by step per bar, with the last close landing close to its MA.
func uptrendBars(n int, base, step float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := base
	for i := 0; i < n; i++ {
		o := price
		c := price + step
		hi := c + 0.1
		lo := o - 0.1
		bars[i] = marketdata.Bar{
			Timestamp: t.AddDate(0, 0, i),
			Open:      o, High: hi, Low: lo, Close: c, Volume: 1_000_000,
		}
		price = c
	}
	return bars
}

func TestGenerateEntry_HappyPath(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{MAFast: 5, MASlow: 20})
	bars := uptrendBars(60, 100, 0.2)
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{SpreadPct: 0.05, ATRMultipleNow: 1.0})
	if sig == nil {
		t.Fatalf("expected entry signal, got reject reason %q", reason)
	}
	if sig.Side != Long {
		t.Errorf("side = %v, want Long", sig.Side)
	}
	if sig.StopPct <= 0 {
		t.Errorf("stop pct = %v, want > 0", sig.StopPct)
	}
}

func TestGenerateEntry_InsufficientBars(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{MAFast: 5, MASlow: 50})
	bars := uptrendBars(10, 100, 0.2)
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{})
	if sig != nil {
		t.Fatalf("expected nil signal, got %+v", sig)
	}
	if reason == "" {
		t.Error("expected a reject reason")
	}
}

func TestGenerateEntry_BelowSlowMA(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{MAFast: 5, MASlow: 20})
	bars := uptrendBars(60, 100, -0.2) // downtrend: close will sit below MA_slow
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{})
	if sig != nil {
		t.Fatalf("expected reject, got %+v", sig)
	}
	if reason == "" {
		t.Error("expected a reject reason")
	}
}

func TestGenerateEntry_KillSwitchSpread(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{MAFast: 5, MASlow: 20, KSMaxSpreadPct: 0.1})
	bars := uptrendBars(60, 100, 0.2)
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{SpreadPct: 0.5})
	if sig != nil {
		t.Fatalf("expected reject on kill-switch spread, got %+v", sig)
	}
	if reason == "" {
		t.Error("expected a reject reason")
	}
}

func TestGenerateEntry_ExcessiveVolatility(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{MAFast: 5, MASlow: 20, MaxATRPctForEntry: 0.01})
	bars := uptrendBars(60, 100, 0.2)
	sig, _ := s.GenerateEntry("SPY", bars, EntryInputs{})
	if sig != nil {
		t.Fatalf("expected reject on ATR%% ceiling, got %+v", sig)
	}
}

func TestGenerateEntry_RetailOverrides(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{
		PlayerFocus: Retail, RetailMAFast: 5, RetailMASlow: 20, RetailTimeBarsExit: 7,
	})
	bars := uptrendBars(60, 100, 0.2)
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{})
	if sig == nil {
		t.Fatalf("expected entry, got reject %q", reason)
	}
	if sig.TimeBarsExit != 7 {
		t.Errorf("time_bars_exit = %d, want 7 (retail override)", sig.TimeBarsExit)
	}
}

func TestGenerateEntry_InstitutionalVolumeFilter(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{
		PlayerFocus: Institutional, MAFast: 5, MASlow: 20, InstMinVolumeRatio: 5.0,
	})
	bars := uptrendBars(60, 100, 0.2) // uniform volume -> ratio ~1.0, fails 5.0 minimum
	sig, reason := s.GenerateEntry("SPY", bars, EntryInputs{})
	if sig != nil {
		t.Fatalf("expected reject on institutional volume filter, got %+v", sig)
	}
	if reason == "" {
		t.Error("expected a reject reason")
	}
}

func TestCheckExit_Priority_StopBeatsTimeAndTarget(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{})
	takeProfit := 3.0
	sig := s.CheckExit(ExitInputs{
		Symbol: "SPY", EntryPrice: 100, CurrentPrice: 94, BarsHeld: 10,
		StopLossPct: 5, TakeProfitPct: &takeProfit, TimeBarsExit: 5,
	})
	if sig == nil || sig.Reason != StopLoss {
		t.Fatalf("exit = %+v, want STOP_LOSS", sig)
	}
}

func TestCheckExit_Priority_TakeProfitBeatsTime(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{})
	takeProfit := 3.0
	sig := s.CheckExit(ExitInputs{
		Symbol: "SPY", EntryPrice: 100, CurrentPrice: 104, BarsHeld: 10,
		StopLossPct: 5, TakeProfitPct: &takeProfit, TimeBarsExit: 5,
	})
	if sig == nil || sig.Reason != TakeProfit {
		t.Fatalf("exit = %+v, want TAKE_PROFIT", sig)
	}
}

func TestCheckExit_TimeExit(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{})
	sig := s.CheckExit(ExitInputs{
		Symbol: "SPY", EntryPrice: 100, CurrentPrice: 101, BarsHeld: 20,
		StopLossPct: 5, TimeBarsExit: 5,
	})
	if sig == nil || sig.Reason != TimeBars {
		t.Fatalf("exit = %+v, want TIME_BARS", sig)
	}
}

func TestCheckExit_KillSwitchSpread(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{KSMaxSpreadPct: 0.1})
	sig := s.CheckExit(ExitInputs{
		Symbol: "SPY", EntryPrice: 100, CurrentPrice: 101, BarsHeld: 1,
		StopLossPct: 50, TimeBarsExit: 100, SpreadPct: 1.0,
	})
	if sig == nil || sig.Reason != KillSwitch {
		t.Fatalf("exit = %+v, want KILL_SWITCH", sig)
	}
}

func TestCheckExit_NoExit(t *testing.T) {
	s := NewTrendFollowing(TrendFollowingConfig{KSMaxSpreadPct: 1.0, KSMaxATRMultiple: 5.0})
	sig := s.CheckExit(ExitInputs{
		Symbol: "SPY", EntryPrice: 100, CurrentPrice: 101, BarsHeld: 1,
		StopLossPct: 5, TimeBarsExit: 10, SpreadPct: 0.1, ATRMultiple: 1.0,
	})
	if sig != nil {
		t.Fatalf("expected no exit, got %+v", sig)
	}
}

func TestRetPct(t *testing.T) {
	cases := []struct {
		entry, current, want float64
	}{
		{100, 106, 6},
		{100, 94, -6},
		{0, 50, 0},
	}
	for _, c := range cases {
		if got := RetPct(c.entry, c.current); got != c.want {
			t.Errorf("RetPct(%v, %v) = %v, want %v", c.entry, c.current, got, c.want)
		}
	}
}
