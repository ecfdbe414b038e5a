// Package broker - paper.go implements the reference paper-trading broker.
//
// The paper broker simulates order execution in memory so the engine and
// its tests do not depend on a live venue; it honors the same Broker
// interface a real venue adapter would, so engine logic never branches on
// which is active.
package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rvora/eqtrader/internal/execution"
	"github.com/rvora/eqtrader/internal/marketdata"
)

type paperHolding struct {
	qty       int
	costBasis float64 // total cost, not per-share
	lastPrice float64
}

type paperOrderRecord struct {
	ack            OrderAck
	req            execution.OrderRequest
	fillPrice      float64
	submittedAt    time.Time
	filledAt       *time.Time
}

// PaperBroker simulates broker operations for paper trading. Orders fill
// immediately at the requested expected/limit price (a simplification the
// teacher's paper broker also makes).
type PaperBroker struct {
	mu          sync.Mutex
	cash        float64
	holdings    map[string]*paperHolding
	bars        map[string][]marketdata.Bar
	quotes      map[string]marketdata.Quote
	orders      []paperOrderRecord
	nextID      int
	clock       func() time.Time
}

// NewPaperBroker creates a paper broker with the given initial capital.
func NewPaperBroker(initialCapital float64) *PaperBroker {
	return &PaperBroker{
		cash:     initialCapital,
		holdings: map[string]*paperHolding{},
		bars:     map[string][]marketdata.Bar{},
		quotes:   map[string]marketdata.Quote{},
		clock:    time.Now,
	}
}

// SeedBars installs a bar history for a symbol, used by GetBars and to
// resolve a fallback fill price when no quote is seeded.
func (pb *PaperBroker) SeedBars(symbol string, bars []marketdata.Bar) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.bars[symbol] = bars
}

// SeedQuote installs a top-of-book quote for a symbol.
func (pb *PaperBroker) SeedQuote(symbol string, q marketdata.Quote) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.quotes[symbol] = q
}

// GetEquity returns cash plus the mark-to-market value of all holdings.
func (pb *PaperBroker) GetEquity(_ context.Context) (float64, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	equity := pb.cash
	for _, h := range pb.holdings {
		equity += float64(h.qty) * h.lastPrice
	}
	return equity, nil
}

// GetBuyingPower returns available cash (the paper broker does not model
// margin).
func (pb *PaperBroker) GetBuyingPower(_ context.Context) (float64, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.cash, nil
}

// GetPositions returns all open holdings as Position records.
func (pb *PaperBroker) GetPositions(_ context.Context) ([]Position, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	positions := make([]Position, 0, len(pb.holdings))
	symbols := make([]string, 0, len(pb.holdings))
	for sym := range pb.holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		h := pb.holdings[sym]
		marketValue := float64(h.qty) * h.lastPrice
		positions = append(positions, Position{
			Symbol:       sym,
			Qty:          h.qty,
			Side:         execution.Buy,
			MarketValue:  marketValue,
			CostBasis:    h.costBasis,
			UnrealizedPL: marketValue - h.costBasis,
		})
	}
	return positions, nil
}

// GetBars returns the trailing `limit` bars seeded for symbol (start/end
// are accepted for interface compatibility but the paper broker does not
// filter by them; seed exactly the window you want tested).
func (pb *PaperBroker) GetBars(_ context.Context, symbol string, _ Timeframe, _, _ *time.Time, limit int) ([]marketdata.Bar, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	bars := pb.bars[symbol]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]marketdata.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// GetLatestQuote returns the seeded quote for symbol, or nil if none was
// seeded (mirrors the spec's `| none` return).
func (pb *PaperBroker) GetLatestQuote(_ context.Context, symbol string) (*marketdata.Quote, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	q, ok := pb.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

// fillPriceFor resolves the price a market/limit order fills at: the
// limit price if set, else the order's ExpectedPrice if positive, else the
// seeded quote mid, else the last seeded bar's close.
func (pb *PaperBroker) fillPriceFor(req execution.OrderRequest) (float64, error) {
	if req.LimitPrice != nil {
		return *req.LimitPrice, nil
	}
	if req.ExpectedPrice > 0 {
		return req.ExpectedPrice, nil
	}
	if q, ok := pb.quotes[req.Symbol]; ok {
		return q.Mid(), nil
	}
	if bars := pb.bars[req.Symbol]; len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	return 0, fmt.Errorf("paper broker: no price source for %s", req.Symbol)
}

// SubmitOrder fills immediately against the resolved price, updating cash
// and holdings.
func (pb *PaperBroker) SubmitOrder(_ context.Context, req execution.OrderRequest) (*OrderAck, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("paper broker: quantity must be > 0")
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()

	fillPrice, err := pb.fillPriceFor(req)
	if err != nil {
		return nil, err
	}
	cost := fillPrice * float64(req.Quantity)

	switch req.Side {
	case execution.Buy:
		if cost > pb.cash {
			return nil, fmt.Errorf("paper broker: insufficient buying power (need %.2f, have %.2f)", cost, pb.cash)
		}
		pb.cash -= cost
		h, exists := pb.holdings[req.Symbol]
		if !exists {
			h = &paperHolding{}
			pb.holdings[req.Symbol] = h
		}
		h.qty += req.Quantity
		h.costBasis += cost
		h.lastPrice = fillPrice
	case execution.Sell:
		h, exists := pb.holdings[req.Symbol]
		if !exists || h.qty < req.Quantity {
			return nil, fmt.Errorf("paper broker: insufficient holdings to sell %d %s", req.Quantity, req.Symbol)
		}
		avgCost := h.costBasis / float64(h.qty)
		proceeds := fillPrice * float64(req.Quantity)
		pb.cash += proceeds
		h.costBasis -= avgCost * float64(req.Quantity)
		h.qty -= req.Quantity
		h.lastPrice = fillPrice
		if h.qty == 0 {
			delete(pb.holdings, req.Symbol)
		}
	default:
		return nil, fmt.Errorf("paper broker: unknown side %q", req.Side)
	}

	pb.nextID++
	id := fmt.Sprintf("PAPER-%d", pb.nextID)
	now := pb.clock()
	pb.orders = append(pb.orders, paperOrderRecord{
		ack:         OrderAck{ID: id},
		req:         req,
		fillPrice:   fillPrice,
		submittedAt: now,
		filledAt:    &now,
	})
	return &OrderAck{ID: id}, nil
}

// GetOrdersForDate returns every order submitted on the given calendar
// date (UTC).
func (pb *PaperBroker) GetOrdersForDate(_ context.Context, date time.Time) ([]OrderRecord, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	y, m, d := date.Date()
	var records []OrderRecord
	for _, o := range pb.orders {
		oy, om, od := o.submittedAt.Date()
		if oy != y || om != m || od != d {
			continue
		}
		records = append(records, OrderRecord{
			ID:             o.ack.ID,
			Symbol:         o.req.Symbol,
			Side:           o.req.Side,
			Qty:            o.req.Quantity,
			FilledAvgPrice: o.fillPrice,
			SubmittedAt:    o.submittedAt,
			FilledAt:       o.filledAt,
		})
	}
	return records, nil
}

func init() {
	Registry["paper"] = func(configJSON []byte) (Broker, error) {
		return NewPaperBroker(100_000), nil
	}
}
