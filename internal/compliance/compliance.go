// Package compliance implements the Pattern Day Trader rule check, grounded
// on original_source/src/compliance.py.
package compliance

import (
	"fmt"
	"time"
)

// Config mirrors SPEC_FULL.md §6 compliance.
type Config struct {
	PDTMinEquity   float64
	PDTEnabled     bool
	MarginAccount  bool
}

func (c Config) withDefaults() Config {
	if c.PDTMinEquity == 0 {
		c.PDTMinEquity = 25_000
	}
	return c
}

// State is the engine-scoped PDTState.
type State struct {
	DayTradeDates []time.Time
}

// NewState returns an empty PDTState.
func NewState() *State { return &State{} }

// Checker applies the spec §4.10 rules.
type Checker struct {
	cfg Config
}

// New builds a Checker, applying spec defaults for zero Config fields.
func New(cfg Config) *Checker {
	return &Checker{cfg: cfg.withDefaults()}
}

// CanDayTrade allows unconditionally when PDT is disabled or the account is
// cash (not margin), or when equity clears the PDT minimum. Otherwise it
// counts day trades within the last 7 calendar days (a conservative stand-in
// for 5 business days, per SPEC_FULL.md §9) and vetoes at 3 or more.
func (c *Checker) CanDayTrade(s *State, equity float64, today time.Time) (bool, string) {
	if !c.cfg.PDTEnabled || !c.cfg.MarginAccount {
		return true, ""
	}
	if equity >= c.cfg.PDTMinEquity {
		return true, ""
	}
	cutoff := today.AddDate(0, 0, -7)
	count := 0
	for _, d := range s.DayTradeDates {
		if !d.Before(cutoff) {
			count++
		}
	}
	if count >= 3 {
		return false, fmt.Sprintf(
			"compliance: PDT limit reached (%d day trades in last 7 days, equity $%.2f < $%.2f)",
			count, equity, c.cfg.PDTMinEquity)
	}
	return true, ""
}

// RecordDayTrade appends today's date and truncates the history to the most
// recent 20 entries.
func (c *Checker) RecordDayTrade(s *State, date time.Time) {
	s.DayTradeDates = append(s.DayTradeDates, date)
	if len(s.DayTradeDates) > 20 {
		s.DayTradeDates = s.DayTradeDates[len(s.DayTradeDates)-20:]
	}
}
