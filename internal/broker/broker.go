// Package broker defines the broker/market-data adapter abstraction
// (SPEC_FULL.md §6), adapted from the teacher's internal/broker package: the
// registry-by-name construction style is kept, re-homed to register only
// "paper" (a real venue adapter is an external collaborator per spec §1).
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rvora/eqtrader/internal/execution"
	"github.com/rvora/eqtrader/internal/marketdata"
)

// Timeframe is the closed tag set of bar granularities the spec requires.
type Timeframe string

const (
	Daily  Timeframe = "1Day"
	Minute Timeframe = "1Min"
)

// Side mirrors execution.Side; positions and broker order records share the
// same closed buy/sell tag set.
type Side = execution.Side

// Position is one open broker-reported position.
type Position struct {
	Symbol       string
	Qty          int
	Side         Side
	MarketValue  float64
	CostBasis    float64
	UnrealizedPL float64
}

// OrderAck is the broker's acknowledgment of a submitted order.
type OrderAck struct {
	ID string
}

// OrderRecord is one entry from get_orders_for_date.
type OrderRecord struct {
	ID             string
	Symbol         string
	Side           Side
	Qty            int
	FilledAvgPrice float64
	SubmittedAt    time.Time
	FilledAt       *time.Time
}

// Broker is the only contract between the engine and a venue adapter. A
// real venue's wire protocol is an external collaborator (SPEC_FULL.md §1);
// only this interface and the in-tree PaperBroker are in scope.
type Broker interface {
	GetEquity(ctx context.Context) (float64, error)
	GetBuyingPower(ctx context.Context) (float64, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetBars(ctx context.Context, symbol string, timeframe Timeframe, start, end *time.Time, limit int) ([]marketdata.Bar, error)
	GetLatestQuote(ctx context.Context, symbol string) (*marketdata.Quote, error)
	SubmitOrder(ctx context.Context, req execution.OrderRequest) (*OrderAck, error)
	GetOrdersForDate(ctx context.Context, date time.Time) ([]OrderRecord, error)
}

// Registry maps broker firm names to their factory functions; new venue
// adapters register here the way the teacher's dhan.go registered itself.
var Registry = map[string]func(configJSON []byte) (Broker, error){}

// New creates a broker instance by name using the registry.
func New(name string, configJSON []byte) (Broker, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("broker: unknown broker %q, registered: %v", name, registeredNames())
	}
	return factory(configJSON)
}

func registeredNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	return names
}
