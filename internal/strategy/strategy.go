// Package strategy implements the trend-following entry signal and the
// per-position exit state machine, grounded on original_source/src/strategy.py
// (TrendFollowingStrategy, EntrySignal, ExitSignal, ExitReason, PlayerFocus).
//
// This is the single strategy the engine runs; earlier drafts of this
// package carried a pluggable multi-strategy framework (momentum, macd,
// bollinger, breakout, mean-reversion, vwap, pullback, orb) lifted from the
// teacher repo, but original_source/src/strategy.py confirms the production
// system runs exactly one trend-following strategy with a pullback and
// volatility filter, so that framework was dropped rather than adapted.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rvora/eqtrader/internal/marketdata"
	"github.com/rvora/eqtrader/internal/pattern"
)

// Side is the direction of a position; the default strategy only emits Long.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// PlayerFocus selects which MA/time-exit overrides apply.
type PlayerFocus string

const (
	Neutral       PlayerFocus = "neutral"
	Institutional PlayerFocus = "institutional"
	Retail        PlayerFocus = "retail"
)

// ExitReason is the closed tag set of exit causes.
type ExitReason string

const (
	StopLoss   ExitReason = "STOP_LOSS"
	TakeProfit ExitReason = "TAKE_PROFIT"
	TimeBars   ExitReason = "TIME_BARS"
	KillSwitch ExitReason = "KILL_SWITCH"
	SignalExit ExitReason = "SIGNAL_EXIT"
)

// EntrySignal is emitted only by the strategy and is immutable once built.
type EntrySignal struct {
	Symbol        string
	Side          Side
	Strength      float64
	StopPct       float64
	TakeProfitPct *float64
	TimeBarsExit  int
	Metadata      map[string]any
}

// ExitSignal reports why an open position should be closed.
type ExitSignal struct {
	Symbol   string
	Reason   ExitReason
	Metadata map[string]any
}

// TrendFollowingConfig mirrors SPEC_FULL.md §6 strategy section.
type TrendFollowingConfig struct {
	PlayerFocus PlayerFocus

	MAFast                    int
	MASlow                    int
	PullbackTouchMAFast       bool
	VolatilityFilterATRPeriod int
	MaxATRPctForEntry         float64

	RetailMAFast       int
	RetailMASlow       int
	RetailTimeBarsExit int

	InstMinVolumeRatio float64

	StopLossPct      float64
	TakeProfitPct    *float64
	TimeBarsExit     int
	KSMaxSpreadPct   float64
	KSMaxATRMultiple float64

	CandlestickFilterEnabled bool
	CandlestickPatterns      []string
}

// withDefaults fills in the spec's §4 text defaults for any zero field.
func (c TrendFollowingConfig) withDefaults() TrendFollowingConfig {
	if c.PlayerFocus == "" {
		c.PlayerFocus = Neutral
	}
	if c.MAFast == 0 {
		c.MAFast = 20
	}
	if c.MASlow == 0 {
		c.MASlow = 50
	}
	if c.VolatilityFilterATRPeriod == 0 {
		c.VolatilityFilterATRPeriod = 14
	}
	if c.MaxATRPctForEntry == 0 {
		c.MaxATRPctForEntry = 5.0
	}
	if c.RetailMAFast == 0 {
		c.RetailMAFast = 10
	}
	if c.RetailMASlow == 0 {
		c.RetailMASlow = 30
	}
	if c.RetailTimeBarsExit == 0 {
		c.RetailTimeBarsExit = 10
	}
	if c.InstMinVolumeRatio == 0 {
		c.InstMinVolumeRatio = 1.5
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = 5.0
	}
	if c.TimeBarsExit == 0 {
		c.TimeBarsExit = 20
	}
	if c.KSMaxSpreadPct == 0 {
		c.KSMaxSpreadPct = 0.5
	}
	if c.KSMaxATRMultiple == 0 {
		c.KSMaxATRMultiple = 3.0
	}
	return c
}

// TrendFollowing is the engine's sole signal generator: a trend filter
// (close above a slow MA), a pullback filter (close near the fast MA), a
// volatility ceiling, a pre-entry kill-switch, and optional institutional
// volume / candlestick confirmation.
type TrendFollowing struct {
	cfg TrendFollowingConfig
}

// NewTrendFollowing builds a strategy instance, applying spec defaults.
func NewTrendFollowing(cfg TrendFollowingConfig) *TrendFollowing {
	return &TrendFollowing{cfg: cfg.withDefaults()}
}

// effectiveMAs returns the (fast, slow, timeBarsExit) triple, swapped for
// the retail overrides when PlayerFocus == Retail.
func (s *TrendFollowing) effectiveMAs() (fast, slow, timeBarsExit int) {
	if s.cfg.PlayerFocus == Retail {
		return s.cfg.RetailMAFast, s.cfg.RetailMASlow, s.cfg.RetailTimeBarsExit
	}
	return s.cfg.MAFast, s.cfg.MASlow, s.cfg.TimeBarsExit
}

// EntryInputs bundles the live market context the caller must supply
// alongside the bar history; ATRMultipleNow is the same volatility figure
// the market-quality gate computes (see SPEC_FULL.md §9 Open Questions).
type EntryInputs struct {
	SpreadPct      float64
	ATRMultipleNow float64
}

// GenerateEntry returns an EntrySignal, or nil plus a reason if any filter
// rejects.
func (s *TrendFollowing) GenerateEntry(symbol string, bars []marketdata.Bar, in EntryInputs) (*EntrySignal, string) {
	fast, slow, timeBarsExit := s.effectiveMAs()

	if len(bars) < slow {
		return nil, fmt.Sprintf("strategy: insufficient bars (%d < ma_slow %d)", len(bars), slow)
	}

	atrPct := marketdata.ATRPct(bars, s.cfg.VolatilityFilterATRPeriod)
	if atrPct > s.cfg.MaxATRPctForEntry {
		return nil, fmt.Sprintf("strategy: ATR%% %.2f > max %.2f", atrPct, s.cfg.MaxATRPctForEntry)
	}

	maFast := marketdata.SMA(bars, fast)
	maSlow := marketdata.SMA(bars, slow)
	closeLast := bars[len(bars)-1].Close
	if closeLast <= maSlow {
		return nil, fmt.Sprintf("strategy: close %.2f <= MA_slow %.2f", closeLast, maSlow)
	}

	if s.cfg.PullbackTouchMAFast && maFast > 0 {
		dist := (closeLast - maFast) / maFast
		if dist < 0 {
			dist = -dist
		}
		if dist > 0.005 {
			return nil, fmt.Sprintf("strategy: no pullback to MA_fast (dist %.4f > 0.005)", dist)
		}
	}

	if in.SpreadPct > s.cfg.KSMaxSpreadPct {
		return nil, fmt.Sprintf("strategy: kill-switch spread %.4f%% > %.2f%%", in.SpreadPct, s.cfg.KSMaxSpreadPct)
	}
	if in.ATRMultipleNow > s.cfg.KSMaxATRMultiple {
		return nil, fmt.Sprintf("strategy: kill-switch ATR multiple %.2f > %.2f", in.ATRMultipleNow, s.cfg.KSMaxATRMultiple)
	}

	if s.cfg.PlayerFocus == Institutional && len(bars) >= 20 {
		avgVol := marketdata.AverageVolume(bars, 20)
		volLast := bars[len(bars)-1].Volume
		if avgVol <= 0 || volLast/avgVol < s.cfg.InstMinVolumeRatio {
			return nil, fmt.Sprintf("strategy: institutional volume ratio below %.2f", s.cfg.InstMinVolumeRatio)
		}
	}

	if s.cfg.CandlestickFilterEnabled {
		if !pattern.DetectAny(bars, s.cfg.CandlestickPatterns, len(bars)-1) {
			return nil, fmt.Sprintf("strategy: no candlestick pattern among %s", strings.Join(s.cfg.CandlestickPatterns, ","))
		}
	}

	var tp *float64
	if s.cfg.TakeProfitPct != nil {
		v := *s.cfg.TakeProfitPct
		tp = &v
	}

	sig := &EntrySignal{
		Symbol:        symbol,
		Side:          Long,
		Strength:      1.0,
		StopPct:       s.cfg.StopLossPct,
		TakeProfitPct: tp,
		TimeBarsExit:  timeBarsExit,
		Metadata: map[string]any{
			"ma_fast": maFast,
			"ma_slow": maSlow,
			"atr_pct": atrPct,
		},
	}
	return sig, ""
}

// EffectiveExitParams returns the (timeBarsExit, stopLossPct, takeProfitPct)
// triple CheckExit callers should use, applying the same retail override
// effectiveMAs applies to the entry-side MA periods.
func (s *TrendFollowing) EffectiveExitParams() (timeBarsExit int, stopLossPct float64, takeProfitPct *float64) {
	_, _, timeBarsExit = s.effectiveMAs()
	return timeBarsExit, s.cfg.StopLossPct, s.cfg.TakeProfitPct
}

// ExitInputs bundles the per-position context CheckExit needs.
type ExitInputs struct {
	Symbol        string
	EntryPrice    float64
	CurrentPrice  float64
	BarsHeld      int
	SpreadPct     float64
	ATRMultiple   float64
	StopLossPct   float64
	TakeProfitPct *float64
	TimeBarsExit  int
}

// RetPct is the signed percentage return from entry to current price.
func RetPct(entryPrice, currentPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	return (currentPrice - entryPrice) / entryPrice * 100
}

// CheckExit evaluates the fixed-priority exit state machine of
// SPEC_FULL.md §4.6: stop-loss, take-profit, time exit, kill-switch spread,
// kill-switch ATR, in that order. The first match wins; nil means no exit.
func (s *TrendFollowing) CheckExit(in ExitInputs) *ExitSignal {
	ret := RetPct(in.EntryPrice, in.CurrentPrice)

	if ret <= -in.StopLossPct {
		return &ExitSignal{Symbol: in.Symbol, Reason: StopLoss, Metadata: map[string]any{"ret_pct": ret}}
	}
	if in.TakeProfitPct != nil && ret >= *in.TakeProfitPct {
		return &ExitSignal{Symbol: in.Symbol, Reason: TakeProfit, Metadata: map[string]any{"ret_pct": ret}}
	}
	if in.BarsHeld >= in.TimeBarsExit {
		return &ExitSignal{Symbol: in.Symbol, Reason: TimeBars, Metadata: map[string]any{"bars_held": in.BarsHeld}}
	}
	if in.SpreadPct > s.cfg.KSMaxSpreadPct {
		return &ExitSignal{Symbol: in.Symbol, Reason: KillSwitch, Metadata: map[string]any{"spread_pct": in.SpreadPct}}
	}
	if in.ATRMultiple > s.cfg.KSMaxATRMultiple {
		return &ExitSignal{Symbol: in.Symbol, Reason: KillSwitch, Metadata: map[string]any{"atr_multiple": in.ATRMultiple}}
	}
	return nil
}
