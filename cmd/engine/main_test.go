package main

import (
	"context"
	"testing"
	"time"

	"github.com/rvora/eqtrader/internal/audit"
	"github.com/rvora/eqtrader/internal/broker"
	"github.com/rvora/eqtrader/internal/config"
	"github.com/rvora/eqtrader/internal/engine"
	"github.com/rvora/eqtrader/internal/execution"
	"github.com/rvora/eqtrader/internal/feed"
	"github.com/rvora/eqtrader/internal/marketdata"
	"github.com/rvora/eqtrader/internal/reporting"
	"github.com/rvora/eqtrader/internal/strategy"
	"github.com/rvora/eqtrader/internal/tracker"
	"github.com/rs/zerolog"
)

func buyOrder(symbol string, qty int, limit float64) execution.OrderRequest {
	return execution.OrderRequest{
		Symbol: symbol, Side: execution.Buy, Quantity: qty,
		OrderType: execution.Limit, LimitPrice: &limit, ExpectedPrice: limit,
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Broker.Paper = true
	cfg.Broker.Firm = "paper"
	cfg.Strategy.PlayerFocus = "neutral"
	cfg.Universe.Symbols = []string{"SPY"}
	cfg.Normalize()
	return cfg
}

func seedTrendingBars(pb *broker.PaperBroker, symbol string, n int, base float64) {
	bars := make([]marketdata.Bar, 0, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := base
	for i := 0; i < n; i++ {
		price += 0.2
		bars = append(bars, marketdata.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price - 0.1, High: price + 0.3, Low: price - 0.3, Close: price,
			Volume: 1_000_000,
		})
	}
	pb.SeedBars(symbol, bars)
	pb.SeedQuote(symbol, marketdata.Quote{Bid: price - 0.01, Ask: price + 0.01})
}

func TestReconcileOnStartup_AdoptsBrokerPositions(t *testing.T) {
	pb := broker.NewPaperBroker(100_000)
	if _, err := pb.SubmitOrder(context.Background(), buyOrder("SPY", 10, 50.0)); err != nil {
		t.Fatalf("seed broker position: %v", err)
	}

	trk := tracker.New(t.TempDir() + "/positions.json")
	reconcileOnStartup(pb, trk, zerolog.Nop())

	positions, err := trk.Load()
	if err != nil {
		t.Fatalf("tracker load: %v", err)
	}
	pos, ok := positions["SPY"]
	if !ok {
		t.Fatalf("expected SPY adopted from broker positions, got %+v", positions)
	}
	if pos.Qty != 10 || pos.EntryPrice != 50 {
		t.Errorf("adopted position = %+v, want qty 10 entry_price 50", pos)
	}
}

func TestRunPassOnce_EntersAndTracksAPosition(t *testing.T) {
	pb := broker.NewPaperBroker(100_000)
	seedTrendingBars(pb, "SPY", 60, 100)

	trk := tracker.New(t.TempDir() + "/positions.json")
	log := zerolog.Nop()

	cfg := testConfig()
	orch, err := engine.New(cfg, pb, trk, audit.NoopStore{}, log)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	ctx := context.Background()
	runPassOnce(ctx, orch, pb, trk, cfg.Universe.Symbols, nil, reporting.New(), log)

	positions, err := trk.Load()
	if err != nil {
		t.Fatalf("tracker load: %v", err)
	}
	if _, ok := positions["SPY"]; !ok {
		t.Fatalf("expected SPY to be tracked after an allowed entry, got %+v", positions)
	}

	brokerPositions, err := pb.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(brokerPositions) != 1 || brokerPositions[0].Symbol != "SPY" {
		t.Fatalf("expected one filled SPY position at the broker, got %+v", brokerPositions)
	}
}

func TestRunPassOnce_DoesNotReenterAnAlreadyHeldSymbol(t *testing.T) {
	pb := broker.NewPaperBroker(100_000)
	seedTrendingBars(pb, "SPY", 60, 100)

	trackerPath := t.TempDir() + "/positions.json"
	trk := tracker.New(trackerPath)
	if err := trk.Add("SPY", tracker.Position{Qty: 10, EntryPrice: 100, EntryTime: time.Now().UTC(), StopPct: 5}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	log := zerolog.Nop()
	cfg := testConfig()
	orch, err := engine.New(cfg, pb, trk, audit.NoopStore{}, log)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	runPassOnce(context.Background(), orch, pb, trk, cfg.Universe.Symbols, nil, reporting.New(), log)

	positions, err := trk.Load()
	if err != nil {
		t.Fatalf("tracker load: %v", err)
	}
	if got := positions["SPY"].Qty; got != 10 {
		t.Errorf("expected the held SPY position to remain untouched (qty 10), got %d", got)
	}
}

func TestSubmitExit_PrefersFeedCacheOverBrokerQuote(t *testing.T) {
	pb := broker.NewPaperBroker(100_000)
	if _, err := pb.SubmitOrder(context.Background(), buyOrder("SPY", 10, 100)); err != nil {
		t.Fatalf("seed broker position: %v", err)
	}
	// A broker quote far from the cached one: if submitExit used this
	// instead of the cache, the fill price assertion below would fail.
	pb.SeedQuote("SPY", marketdata.Quote{Bid: 200, Ask: 200.10})

	trk := tracker.New(t.TempDir() + "/positions.json")
	if err := trk.Add("SPY", tracker.Position{Qty: 10, EntryPrice: 100, EntryTime: time.Now().UTC(), StopPct: 5}); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	log := zerolog.Nop()
	cfg := testConfig()
	orch, err := engine.New(cfg, pb, trk, audit.NoopStore{}, log)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	quotes := feed.NewQuoteCache()
	quotes.Seed("SPY", marketdata.Quote{Bid: 110, Ask: 110.20}, time.Now())

	sig := &strategy.ExitSignal{Symbol: "SPY", Reason: strategy.TimeBars}
	submitExit(context.Background(), orch, pb, trk, "SPY", sig, quotes, reporting.New(), log)

	orders, err := pb.GetOrdersForDate(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("GetOrdersForDate: %v", err)
	}
	var sell *broker.OrderRecord
	for i := range orders {
		if orders[i].Symbol == "SPY" && orders[i].Side == execution.Sell {
			sell = &orders[i]
		}
	}
	if sell == nil {
		t.Fatal("expected a recorded SPY sell order")
	}
	wantMid := (110.0 + 110.20) / 2
	if sell.FilledAvgPrice < wantMid-0.01 || sell.FilledAvgPrice > wantMid+0.01 {
		t.Errorf("fill price = %v, want ~%v (the cached quote's mid, not the broker's)", sell.FilledAvgPrice, wantMid)
	}
}

func TestBuildBroker_PaperMode(t *testing.T) {
	cfg := testConfig()
	brk, err := buildBroker(cfg, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := brk.(*broker.PaperBroker); !ok {
		t.Errorf("expected a *broker.PaperBroker in paper mode, got %T", brk)
	}
}

func TestBuildBroker_LiveModeRejectsUnknownFirm(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Paper = false
	cfg.Broker.Firm = "not-a-registered-venue"
	if _, err := buildBroker(cfg, true, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unregistered live broker firm")
	}
}

func TestReconcileOnStartup_DoesNotOverwriteExistingTrackerEntry(t *testing.T) {
	pb := broker.NewPaperBroker(100_000)
	limit := 50.0
	if _, err := pb.SubmitOrder(context.Background(), buyOrder("SPY", 10, limit)); err != nil {
		t.Fatalf("seed broker position: %v", err)
	}

	trackerPath := t.TempDir() + "/positions.json"
	trk := tracker.New(trackerPath)
	existing := tracker.Position{Qty: 10, EntryPrice: 40, EntryTime: time.Now().UTC(), StopPct: 5}
	if err := trk.Add("SPY", existing); err != nil {
		t.Fatalf("seed tracker: %v", err)
	}

	reconcileOnStartup(pb, trk, zerolog.Nop())

	positions, err := trk.Load()
	if err != nil {
		t.Fatalf("tracker load: %v", err)
	}
	if got := positions["SPY"].EntryPrice; got != 40 {
		t.Errorf("reconcile must not overwrite an existing tracker entry, got entry_price %v", got)
	}
}
