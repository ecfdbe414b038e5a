// Package portfolio implements the equity curve, drawdown tracking, and
// daily trading-limit ledger, grounded on original_source/src/portfolio_risk.py.
package portfolio

import "time"

// EquityPoint is one (timestamp, equity) sample on the curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Config mirrors SPEC_FULL.md §6 portfolio_risk.
type Config struct {
	DailyLossLimitPct           float64 // negative
	MaxDrawdownPct              float64 // negative
	SafeModeAfterMaxDD          bool
	RecoveryCriteriaPct         float64 // negative
	MaxTradesPerDay             int
	MaxTradesPerSymbolPerDay    int
}

func (c Config) withDefaults() Config {
	if c.DailyLossLimitPct == 0 {
		c.DailyLossLimitPct = -2.0
	}
	if c.MaxDrawdownPct == 0 {
		c.MaxDrawdownPct = -10.0
	}
	if c.RecoveryCriteriaPct == 0 {
		c.RecoveryCriteriaPct = -8.0
	}
	if c.MaxTradesPerDay == 0 {
		c.MaxTradesPerDay = 10
	}
	if c.MaxTradesPerSymbolPerDay == 0 {
		c.MaxTradesPerSymbolPerDay = 2
	}
	return c
}

// State is the engine-scoped PortfolioRiskState; mutated only through
// Ledger's methods, never copied across goroutines.
type State struct {
	EquityCurve          []EquityPoint
	PeakEquity           float64
	DailyPnLPct          float64
	DailyTradeCount       int
	DailyTradesPerSymbol map[string]int
	LastTradeDate        string // YYYY-MM-DD, venue-local
	SafeMode             bool
	TradingStoppedForDay bool
}

// NewState returns a zero-value State with its map initialized.
func NewState() *State {
	return &State{DailyTradesPerSymbol: map[string]int{}}
}

// Ledger applies the spec §4.8 rules against a State.
type Ledger struct {
	cfg Config
}

// New builds a Ledger, applying spec defaults for zero Config fields.
func New(cfg Config) *Ledger {
	return &Ledger{cfg: cfg.withDefaults()}
}

// UpdateEquity appends a new equity sample and advances the peak.
func (l *Ledger) UpdateEquity(s *State, t time.Time, equity float64) {
	s.EquityCurve = append(s.EquityCurve, EquityPoint{Time: t, Equity: equity})
	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}
}

// DrawdownPct is the signed percentage decline from peak equity; 0 if the
// peak is non-positive or equity is at or above the recorded peak.
func (l *Ledger) DrawdownPct(s *State, equity float64) float64 {
	if s.PeakEquity <= 0 {
		return 0
	}
	if equity >= s.PeakEquity {
		return 0
	}
	return (equity - s.PeakEquity) / s.PeakEquity * 100
}

// CheckDailyReset resets daily counters and unlatches trading-stopped-for-day
// when today differs from the last recorded trade date.
func (l *Ledger) CheckDailyReset(s *State, today string) {
	if s.LastTradeDate == today {
		return
	}
	s.DailyPnLPct = 0
	s.DailyTradeCount = 0
	s.DailyTradesPerSymbol = map[string]int{}
	s.TradingStoppedForDay = false
	s.LastTradeDate = today
}

// CanTrade runs the ordered veto checks of SPEC_FULL.md §4.8, mutating s
// (daily reset, latching) as a side effect per the spec's latching rules.
func (l *Ledger) CanTrade(s *State, equity float64, symbol string, today string) (bool, string) {
	l.CheckDailyReset(s, today)

	drawdown := l.DrawdownPct(s, equity)

	if s.SafeMode && drawdown <= l.cfg.RecoveryCriteriaPct {
		return false, "portfolio: safe mode active, drawdown has not recovered"
	}
	if s.TradingStoppedForDay {
		return false, "portfolio: trading stopped for the day"
	}
	if s.DailyPnLPct <= l.cfg.DailyLossLimitPct {
		s.TradingStoppedForDay = true
		return false, "portfolio: daily loss limit breached"
	}
	if drawdown <= l.cfg.MaxDrawdownPct && l.cfg.SafeModeAfterMaxDD {
		s.SafeMode = true
		return false, "portfolio: max drawdown breached, safe mode latched"
	}
	if s.DailyTradeCount >= l.cfg.MaxTradesPerDay {
		return false, "portfolio: max trades per day reached"
	}
	if s.DailyTradesPerSymbol[symbol] >= l.cfg.MaxTradesPerSymbolPerDay {
		return false, "portfolio: max trades per symbol per day reached"
	}
	return true, ""
}

// RecordTrade increments the daily counters after a trade is submitted.
func (l *Ledger) RecordTrade(s *State, symbol string) {
	s.DailyTradeCount++
	if s.DailyTradesPerSymbol == nil {
		s.DailyTradesPerSymbol = map[string]int{}
	}
	s.DailyTradesPerSymbol[symbol]++
}

// RecordPnL updates the day's running PnL percentage (caller computes the
// delta from realized/unrealized changes; this just accumulates it).
func (l *Ledger) RecordPnL(s *State, deltaPct float64) {
	s.DailyPnLPct += deltaPct
}
