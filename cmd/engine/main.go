// Command engine runs the equity-trading decision engine's control loop.
//
// The loop:
//  1. Loads and validates YAML configuration.
//  2. Wires the broker adapter (paper or a registered live venue), the
//     durable position tracker, and the audit store.
//  3. Reconciles the tracker against the broker's reported positions.
//  4. Runs one pass per check interval: update equity, evaluate exits for
//     every tracked position, evaluate entries for every universe symbol,
//     submit approved orders, sleep.
//
// Modes:
//   - "run":    continuous control loop (paper or live, per config)
//   - "status": print current session/calendar/equity status and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rvora/eqtrader/internal/audit"
	"github.com/rvora/eqtrader/internal/broker"
	"github.com/rvora/eqtrader/internal/calendarx"
	"github.com/rvora/eqtrader/internal/config"
	"github.com/rvora/eqtrader/internal/engine"
	"github.com/rvora/eqtrader/internal/execution"
	"github.com/rvora/eqtrader/internal/feed"
	"github.com/rvora/eqtrader/internal/metrics"
	"github.com/rvora/eqtrader/internal/reporting"
	"github.com/rvora/eqtrader/internal/strategy"
	"github.com/rvora/eqtrader/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML configuration file")
	mode := flag.String("mode", "status", "run mode: run | status")
	trackerPath := flag.String("tracker", "data/positions_tracked.json", "path to the durable position tracker JSON document")
	confirmLive := flag.Bool("confirm-live", false, "required safety flag to run against a live broker")
	flag.Parse()

	log := newLogger()

	cfg, err := loadConfig(*configPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	brk, err := buildBroker(cfg, *confirmLive, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize broker")
	}

	store, err := audit.Open(context.Background(), cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audit store")
	}
	defer store.Close()

	trk := tracker.New(*trackerPath)
	reconcileOnStartup(brk, trk, log)

	orch, err := engine.New(cfg, brk, trk, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine orchestrator")
	}

	if cfg.Observability.MetricsAddr != "" {
		go serveMetrics(cfg.Observability.MetricsAddr, log)
	}

	switch *mode {
	case "status":
		runStatus(cfg, brk, log)
	case "run":
		runLoop(orch, cfg, brk, trk, reporting.New(), log)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode: expected 'run' or 'status'")
	}
}

// startFeed dials the configured venue quote stream in the background and
// returns a cache submitExit prefers over a synchronous get_latest_quote
// call. Returns nil if no feed is configured; exit pricing then falls back
// to the broker's own quote call, as it always did before this existed.
func startFeed(ctx context.Context, cfg *config.Config, log zerolog.Logger) *feed.QuoteCache {
	if cfg.Broker.DataFeed == "" {
		return nil
	}
	cache := feed.NewQuoteCache()
	client := feed.New(cfg.Broker.DataFeed, cache, log)
	go func() {
		if err := client.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("feed: connection ended")
		}
	}()
	return cache
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "eqtrader-engine").Logger()
}

func loadConfig(path string, log zerolog.Logger) (*config.Config, error) {
	// The mode passed to config.Load only governs config.Validate's extra
	// live-mode safety caps; the engine's actual paper/live selection comes
	// from the broker section below, not this flag.
	configMode := config.ModePaper
	cfg, err := config.Load(path, configMode, os.ReadFile)
	if err != nil {
		return nil, err
	}
	if !cfg.Broker.Paper {
		if err := cfg.Validate(config.ModeLive); err != nil {
			return nil, err
		}
	}
	log.Info().Str("path", path).Str("player_focus", cfg.Strategy.PlayerFocus).
		Int("universe_size", len(cfg.Universe.Symbols)).Msg("configuration loaded")
	return cfg, nil
}

// buildBroker selects the paper broker or a registered live venue adapter
// per cfg.Broker.Paper, enforcing a live-mode double confirmation: both
// --confirm-live and config.broker.paper=false are required before any
// live venue is constructed.
func buildBroker(cfg *config.Config, confirmLive bool, log zerolog.Logger) (broker.Broker, error) {
	if cfg.Broker.Paper {
		log.Info().Msg("PAPER MODE — simulated orders only, no real money at risk")
		return broker.NewPaperBroker(100_000), nil
	}

	if !confirmLive {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  LIVE MODE BLOCKED")
		fmt.Fprintln(os.Stderr, "  config.broker.paper is false but --confirm-live was not passed.")
		fmt.Fprintln(os.Stderr, "  Re-run with --confirm-live to trade against a real venue.")
		fmt.Fprintln(os.Stderr, "")
		os.Exit(1)
	}

	brk, err := broker.New(cfg.Broker.Firm, nil)
	if err != nil {
		return nil, err
	}
	log.Warn().Str("firm", cfg.Broker.Firm).Msg("LIVE MODE ACTIVE — real orders will be placed")
	return brk, nil
}

// reconcileOnStartup adopts any broker position missing from the durable
// tracker, per SPEC_FULL.md §3: the broker is the source of truth for
// existence, the engine owns the tracker's writes.
func reconcileOnStartup(brk broker.Broker, trk *tracker.Tracker, log zerolog.Logger) {
	positions, err := brk.GetPositions(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("reconcile: get_positions failed, tracker left as-is")
		return
	}
	brokerPositions := make([]tracker.BrokerPosition, 0, len(positions))
	for _, p := range positions {
		brokerPositions = append(brokerPositions, tracker.BrokerPosition{
			Symbol: p.Symbol, Qty: p.Qty, CostBasis: p.CostBasis,
		})
	}
	const defaultStopPct = 5.0
	adopted, err := trk.Reconcile(brokerPositions, defaultStopPct, time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Msg("reconcile: tracker reconciliation failed")
		return
	}
	if len(adopted) > 0 {
		log.Info().Strs("symbols", adopted).Msg("reconcile: adopted broker positions missing from tracker")
	}
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}

func runStatus(cfg *config.Config, brk broker.Broker, log zerolog.Logger) {
	cal, err := calendarx.New(calendarx.Config{
		Timezone:   cfg.MarketSessions.Timezone,
		PreMarket:  sessionFromCfg(cfg.MarketSessions.PreMarket),
		Regular:    sessionFromCfg(cfg.MarketSessions.Regular),
		AfterHours: sessionFromCfg(cfg.MarketSessions.AfterHours),
		Holidays:   holidaySet(cfg.Holidays),
	})
	now := time.Now()
	if err != nil {
		log.Warn().Err(err).Msg("status: calendar build failed")
	} else {
		log.Info().Time("now", now).Str("session", cal.SessionAt(now).String()).
			Bool("trading_allowed", cal.TradingAllowed(now)).Msg("calendar status")
	}

	ctx := context.Background()
	equity, err := brk.GetEquity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("status: get_equity failed")
	} else {
		log.Info().Float64("equity", equity).Msg("account status")
	}
	positions, err := brk.GetPositions(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("status: get_positions failed")
	} else {
		log.Info().Int("open_positions", len(positions)).Msg("position status")
	}
}

func sessionFromCfg(w config.SessionWindowConfig) calendarx.SessionWindow {
	start, _ := time.Parse("15:04", w.Start)
	end, _ := time.Parse("15:04", w.End)
	return calendarx.SessionWindow{Start: start, End: end, TradeAllowed: w.TradeAllowed}
}

func holidaySet(dates []string) map[string]string {
	set := make(map[string]string, len(dates))
	for _, d := range dates {
		set[d] = "holiday"
	}
	return set
}

// runLoop is the cooperative single-threaded control loop of SPEC_FULL.md
// §5: one synchronous pass per check interval, cancellable between passes
// by SIGINT/SIGTERM (no mid-gate cancellation — a pass always runs to
// completion once started).
func runLoop(orch *engine.Orchestrator, cfg *config.Config, brk broker.Broker, trk *tracker.Tracker, rpt *reporting.Formatter, log zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	quotes := startFeed(ctx, cfg, log)

	interval := time.Duration(cfg.Broker.CheckIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	for {
		if ctx.Err() != nil {
			log.Info().Msg("shutdown signal received, exiting")
			return
		}

		runPassOnce(ctx, orch, brk, trk, cfg.Universe.Symbols, quotes, rpt, log)

		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received during sleep, exiting")
			return
		case <-time.After(interval):
		}
	}
}

// runPassOnce is one control-loop pass: update equity, run the gate
// pipeline for exits then entries (internal/engine.Orchestrator.RunPass
// already orders exits before entries), submit whatever the pipeline
// approved. One symbol's submit/fill failure is logged and does not
// abort the rest of the pass.
func runPassOnce(ctx context.Context, orch *engine.Orchestrator, brk broker.Broker, trk *tracker.Tracker, universeSymbols []string, quotes *feed.QuoteCache, rpt *reporting.Formatter, log zerolog.Logger) {
	now := time.Now().UTC()

	if _, err := orch.UpdateEquity(ctx, now); err != nil {
		log.Error().Err(err).Msg("pass: update_equity failed, skipping pass")
		return
	}

	exits, entries, err := orch.RunPass(ctx, universeSymbols, now)
	if err != nil {
		log.Error().Err(err).Msg("pass: RunPass failed")
		return
	}

	for symbol, sig := range exits {
		submitExit(ctx, orch, brk, trk, symbol, sig, quotes, rpt, log)
	}
	for symbol, decision := range entries {
		if !decision.Allowed {
			log.Debug().Str("symbol", symbol).Str("stage", decision.Stage).
				Str("reason", decision.Reason).Msg(rpt.VetoLine(symbol, decision.Stage, decision.Reason))
			continue
		}
		submitEntry(ctx, orch, symbol, decision, rpt, log)
	}
}

func submitEntry(ctx context.Context, orch *engine.Orchestrator, symbol string, decision *engine.TradeDecision, rpt *reporting.Formatter, log zerolog.Logger) {
	ack, err := orch.SubmitBuyingPowerChecked(ctx, decision.OrderRequest)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("entry: submit_order failed, skipping symbol")
		return
	}

	fillPrice := decision.OrderRequest.ExpectedPrice
	if decision.OrderRequest.LimitPrice != nil {
		fillPrice = *decision.OrderRequest.LimitPrice
	}
	fr := orch.RecordFill(ctx, symbol, decision.OrderRequest.Side, decision.OrderRequest.Quantity,
		fillPrice, decision.OrderRequest.ExpectedPrice, time.Now().UTC())

	if err := orch.AddTrackedPosition(symbol, tracker.Position{
		Qty:        decision.OrderRequest.Quantity,
		EntryPrice: fr.FillPrice,
		EntryTime:  fr.Timestamp,
		StopPct:    decision.EntrySignal.StopPct,
	}); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("entry: tracker add failed")
	}
	orch.RecordTradeSubmitted(symbol)

	log.Info().Str("symbol", symbol).Str("order_id", ack.ID).Int("qty", decision.OrderRequest.Quantity).
		Float64("fill_price", fr.FillPrice).Float64("slippage_bps", fr.SlippageBps).
		Msg(rpt.FillLine(symbol, string(decision.OrderRequest.Side), decision.OrderRequest.Quantity, fr.FillPrice, fr.SlippageBps))
}

func submitExit(ctx context.Context, orch *engine.Orchestrator, brk broker.Broker, trk *tracker.Tracker, symbol string, sig *strategy.ExitSignal, quotes *feed.QuoteCache, rpt *reporting.Formatter, log zerolog.Logger) {
	positions, err := trk.Load()
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("exit: tracker load failed")
		return
	}
	pos, ok := positions[symbol]
	if !ok {
		return
	}

	mid := pos.EntryPrice
	haveMid := false
	if quotes != nil {
		if cq, ok := quotes.Get(symbol); ok && cq.Valid() {
			mid, haveMid = cq.Mid(), true
		}
	}
	if !haveMid {
		if quote, qErr := brk.GetLatestQuote(ctx, symbol); qErr == nil && quote != nil && quote.Valid() {
			mid = quote.Mid()
		}
	}

	order := execution.OrderRequest{
		Symbol: symbol, Side: execution.Sell, Quantity: pos.Qty,
		OrderType: execution.Market, ExpectedPrice: mid,
	}
	ack, err := orch.SubmitBuyingPowerChecked(ctx, &order)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("exit: submit_order failed, skipping symbol")
		return
	}

	fr := orch.RecordFill(ctx, symbol, execution.Sell, pos.Qty, mid, mid, time.Now().UTC())
	if err := orch.RemoveTrackedPosition(symbol); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("exit: tracker remove failed")
	}

	log.Info().Str("symbol", symbol).Str("order_id", ack.ID).Int("qty", pos.Qty).
		Str("reason", string(sig.Reason)).Float64("fill_price", fr.FillPrice).
		Msg(rpt.FillLine(symbol, string(execution.Sell), pos.Qty, fr.FillPrice, fr.SlippageBps))
}
