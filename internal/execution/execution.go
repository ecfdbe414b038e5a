// Package execution implements the spread gate, order builder, fill
// recording, and strategy slippage circuit-breaker, grounded on
// original_source/src/execution.py. Distinct from internal/brokerio's
// transient-retry breaker: this one latches on realized execution quality,
// not on broker I/O health.
package execution

import (
	"math"
	"strings"
	"time"
)

// OrderType is the closed tag set for order kinds.
type OrderType string

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// Side mirrors the broker's buy/sell tag set, compared case-insensitively.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func normalizeSide(s Side) Side { return Side(strings.ToLower(string(s))) }

// OrderRequest is the value object the engine hands to the broker.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      int
	OrderType     OrderType
	LimitPrice    *float64
	ExpectedPrice float64
}

// FillReport records one executed order.
type FillReport struct {
	Symbol        string
	Side          Side
	Quantity      int
	FillPrice     float64
	ExpectedPrice float64
	SlippageBps   float64
	Timestamp     time.Time
}

// SlippageBps computes signed basis-point deviation: positive is
// favorable-to-broker / unfavorable-to-trader for both sides by
// construction (buy higher-than-expected, sell lower-than-expected).
func SlippageBps(side Side, fillPrice, expectedPrice float64) float64 {
	if expectedPrice == 0 {
		return 0
	}
	switch normalizeSide(side) {
	case Sell:
		return (expectedPrice - fillPrice) / expectedPrice * 1e4
	default:
		return (fillPrice - expectedPrice) / expectedPrice * 1e4
	}
}

// Config mirrors SPEC_FULL.md §6 execution.
type Config struct {
	PreferLimitOrders                bool
	LimitOrderOffsetTicks             float64
	TickSize                         float64
	MaxSpreadPctToTrade               float64
	PartialFillTimeoutSeconds         int
	CancelReplaceOnPartial            bool
	MaxSlippageBps                    float64
	BlockStrategyIfSlippageBpsAvgExceeds float64
}

func (c Config) withDefaults() Config {
	if c.TickSize == 0 {
		c.TickSize = 0.01
	}
	if c.MaxSpreadPctToTrade == 0 {
		c.MaxSpreadPctToTrade = 0.15
	}
	if c.PartialFillTimeoutSeconds == 0 {
		c.PartialFillTimeoutSeconds = 30
	}
	if c.BlockStrategyIfSlippageBpsAvgExceeds == 0 {
		c.BlockStrategyIfSlippageBpsAvgExceeds = 25.0
	}
	return c
}

// State is the engine-scoped ExecutionState.
type State struct {
	FillHistory          []FillReport
	StrategySlippageBpsAvg float64
	StrategyBlocked       bool
}

// NewState returns a zero-value ExecutionState.
func NewState() *State { return &State{} }

// Executor applies the spec §4.9 rules.
type Executor struct {
	cfg Config
}

// New builds an Executor, applying spec defaults for zero Config fields.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg.withDefaults()}
}

// CanTradeSpread allows iff spreadPct <= the configured maximum.
func (e *Executor) CanTradeSpread(spreadPct float64) bool {
	return spreadPct <= e.cfg.MaxSpreadPctToTrade
}

// BuildOrder constructs an OrderRequest for a quantity at the given side and
// mid price. Returns nil if the spread gate fails.
func (e *Executor) BuildOrder(symbol string, side Side, quantity int, mid, spreadPct float64) *OrderRequest {
	if !e.CanTradeSpread(spreadPct) {
		return nil
	}
	req := &OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		ExpectedPrice: mid,
	}
	if e.cfg.PreferLimitOrders {
		offset := e.cfg.LimitOrderOffsetTicks * e.cfg.TickSize
		var limit float64
		if normalizeSide(side) == Buy {
			limit = mid - offset
		} else {
			limit = mid + offset
		}
		limit = math.Round(limit*100) / 100
		req.OrderType = Limit
		req.LimitPrice = &limit
	} else {
		req.OrderType = Market
	}
	return req
}

// RecordFill appends a fill, recomputes the running slippage average, and
// latches StrategyBlocked if the average now exceeds the configured
// threshold. Once latched, StrategyBlocked never auto-clears.
func (e *Executor) RecordFill(s *State, symbol string, side Side, quantity int, fillPrice, expectedPrice float64, ts time.Time) FillReport {
	bps := SlippageBps(side, fillPrice, expectedPrice)
	fr := FillReport{
		Symbol: symbol, Side: side, Quantity: quantity,
		FillPrice: fillPrice, ExpectedPrice: expectedPrice,
		SlippageBps: bps, Timestamp: ts,
	}
	s.FillHistory = append(s.FillHistory, fr)

	var sum float64
	for _, f := range s.FillHistory {
		sum += f.SlippageBps
	}
	s.StrategySlippageBpsAvg = sum / float64(len(s.FillHistory))

	if s.StrategySlippageBpsAvg > e.cfg.BlockStrategyIfSlippageBpsAvgExceeds {
		s.StrategyBlocked = true
	}
	return fr
}

// PartialFillShouldCancelReplace reports whether a partially-filled order
// should be cancelled and replaced, per SPEC_FULL.md §4.9.
func (e *Executor) PartialFillShouldCancelReplace(filled, requested int) bool {
	return e.cfg.CancelReplaceOnPartial && filled > 0 && filled < requested
}

// PartialFillTimeout is the maximum wall-clock wait before a partial-fill
// decision applies.
func (e *Executor) PartialFillTimeout() time.Duration {
	return time.Duration(e.cfg.PartialFillTimeoutSeconds) * time.Second
}
