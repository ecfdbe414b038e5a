// Package engine composes C1-C11 into the entry/exit gate pipeline and
// control loop (C12), grounded on the teacher's live-trading loop
// (run_alpaca_loop.py in original_source/): per-symbol isolation so one
// symbol's failure cannot abort a pass, and sequential exit-then-entry
// processing within a pass.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rvora/eqtrader/internal/audit"
	"github.com/rvora/eqtrader/internal/blackout"
	"github.com/rvora/eqtrader/internal/broker"
	"github.com/rvora/eqtrader/internal/brokerio"
	"github.com/rvora/eqtrader/internal/calendarx"
	"github.com/rvora/eqtrader/internal/compliance"
	"github.com/rvora/eqtrader/internal/config"
	"github.com/rvora/eqtrader/internal/execution"
	"github.com/rvora/eqtrader/internal/marketdata"
	"github.com/rvora/eqtrader/internal/metrics"
	"github.com/rvora/eqtrader/internal/portfolio"
	"github.com/rvora/eqtrader/internal/quality"
	"github.com/rvora/eqtrader/internal/sizing"
	"github.com/rvora/eqtrader/internal/strategy"
	"github.com/rvora/eqtrader/internal/tracker"
	"github.com/rvora/eqtrader/internal/universe"
)

// TradeDecision is the orchestrator's sole entry-gate output; it is never
// raised as an error, only returned, per SPEC_FULL.md §7.
type TradeDecision struct {
	Allowed      bool
	Reason       string
	Stage        string
	OrderRequest *execution.OrderRequest
	EntrySignal  *strategy.EntrySignal
	Sizing       sizing.Result
}

func veto(stage, reason string) *TradeDecision {
	return &TradeDecision{Allowed: false, Stage: stage, Reason: reason}
}

// SectorInfo supplies the engine's view of sector exposure for the sizing
// gate; callers update it between passes from portfolio holdings.
type SectorInfo struct {
	SymbolSector     map[string]string
	SectorExposure   map[string]float64
}

// Orchestrator wires every gate component from a loaded Config and runs the
// fixed entry-gate pipeline plus the exit-then-entry control loop.
type Orchestrator struct {
	cfg *config.Config
	log zerolog.Logger

	broker  broker.Broker
	retrier *brokerio.Retrier
	tracker *tracker.Tracker
	store   audit.Store

	calendar      *calendarx.Calendar
	macro         *blackout.Macro
	earnings      *blackout.Earnings
	volDNT        *blackout.VolatilityDNT
	universe      *universe.Filter
	quality       *quality.Gate
	strategy      *strategy.TrendFollowing
	sizer         *sizing.Sizer
	portfolioLedg *portfolio.Ledger
	portfolioSt   *portfolio.State
	executor      *execution.Executor
	executionSt   *execution.State
	pdt           *compliance.Checker
	pdtSt         *compliance.State

	sectors SectorInfo
}

// New builds an Orchestrator from a validated Config.
func New(cfg *config.Config, brk broker.Broker, trk *tracker.Tracker, store audit.Store, log zerolog.Logger) (*Orchestrator, error) {
	cal, err := calendarx.New(buildCalendarConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("engine: build calendar: %w", err)
	}

	macroWindows, err := buildMacroWindows(cfg.TradeFilters.MacroBlackout.BlackoutWindows)
	if err != nil {
		return nil, fmt.Errorf("engine: parse macro blackout windows: %w", err)
	}
	earningsDates, err := buildEarningsDates(cfg.TradeFilters.EarningsBlackout.EarningsDates)
	if err != nil {
		return nil, fmt.Errorf("engine: parse earnings dates: %w", err)
	}

	o := &Orchestrator{
		cfg:     cfg,
		log:     log.With().Str("component", "engine").Logger(),
		broker:  brk,
		tracker: trk,
		store:   store,
		retrier: brokerio.New(brokerio.Config{
			APIRetryTimes:    cfg.Broker.APIRetryTimes,
			APIRetryDelaySec: cfg.Broker.APIRetryDelaySec,
		}, log),
		calendar: cal,
		macro: &blackout.Macro{
			Enabled: cfg.TradeFilters.MacroBlackout.Enabled,
			Dates:   toDateSet(cfg.TradeFilters.MacroBlackout.BlackoutDates),
			Windows: macroWindows,
		},
		earnings: &blackout.Earnings{
			Enabled:       cfg.TradeFilters.EarningsBlackout.Enabled,
			DaysBefore:    cfg.TradeFilters.EarningsBlackout.DaysBefore,
			DaysAfter:     cfg.TradeFilters.EarningsBlackout.DaysAfter,
			EarningsDates: earningsDates,
		},
		volDNT: &blackout.VolatilityDNT{
			Enabled:      cfg.TradeFilters.VolatilityDoNotTrade.Enabled,
			MaxATRPct:    cfg.TradeFilters.VolatilityDoNotTrade.MaxATRPct,
			MaxSpreadPct: cfg.TradeFilters.VolatilityDoNotTrade.MaxSpreadPct,
		},
		universe: universe.New(universe.Config{
			Symbols:                 cfg.Universe.Symbols,
			MinAvgDollarVolume30D:   cfg.Universe.MinAvgDollarVolume30D,
			MinATRMultipleForVolume: cfg.Universe.MinATRMultipleForVolume,
		}),
		quality: quality.New(quality.Config{
			MaxSpreadPct:                   cfg.MarketQuality.MaxSpreadPct,
			MinVolumeATRRatio:              cfg.MarketQuality.MinVolumeATRRatio,
			BlockOnNewsSpike:               cfg.MarketQuality.BlockOnNewsSpike,
			NewsVolatilitySpikeATRMultiple: cfg.MarketQuality.NewsVolatilitySpikeATRMultiple,
		}),
		strategy: strategy.NewTrendFollowing(buildStrategyConfig(cfg)),
		sizer: sizing.New(sizing.Config{
			RiskPerTradePct:         cfg.PositionSizing.RiskPerTradePct,
			MaxOpenRiskPct:          cfg.PositionSizing.MaxOpenRiskPct,
			MaxExposurePerSymbolPct: cfg.PositionSizing.MaxExposurePerSymbolPct,
			MaxExposurePerSectorPct: cfg.PositionSizing.MaxExposurePerSectorPct,
			HighVolReductionEnabled: cfg.PositionSizing.HighVolReduction.Enabled,
			HighVolATRPctThreshold:  cfg.PositionSizing.HighVolReduction.ATRPctThreshold,
			HighVolSizeMultiplier:   cfg.PositionSizing.HighVolReduction.SizeMultiplier,
		}),
		portfolioLedg: portfolio.New(portfolio.Config{
			DailyLossLimitPct:        cfg.PortfolioRisk.DailyLossLimitPct,
			MaxDrawdownPct:           cfg.PortfolioRisk.MaxDrawdownPct,
			SafeModeAfterMaxDD:       cfg.PortfolioRisk.SafeModeAfterMaxDD,
			RecoveryCriteriaPct:      cfg.PortfolioRisk.RecoveryCriteriaPct,
			MaxTradesPerDay:          cfg.PortfolioRisk.MaxTradesPerDay,
			MaxTradesPerSymbolPerDay: cfg.PortfolioRisk.MaxTradesPerSymbolPerDay,
		}),
		portfolioSt: portfolio.NewState(),
		executor: execution.New(execution.Config{
			PreferLimitOrders:                    cfg.Execution.PreferLimitOrders,
			LimitOrderOffsetTicks:                cfg.Execution.LimitOrderOffsetTicks,
			TickSize:                             0, // uses the executor's own default
			MaxSpreadPctToTrade:                  cfg.Execution.MaxSpreadPctToTrade,
			PartialFillTimeoutSeconds:            cfg.Execution.PartialFillTimeoutSeconds,
			CancelReplaceOnPartial:               cfg.Execution.CancelReplaceOnPartial,
			MaxSlippageBps:                       cfg.Execution.MaxSlippageBps,
			BlockStrategyIfSlippageBpsAvgExceeds: cfg.Execution.BlockStrategyIfSlippageBpsAvgExceeds,
		}),
		executionSt: execution.NewState(),
		pdt: compliance.New(compliance.Config{
			PDTMinEquity:  cfg.Compliance.PDTMinEquity,
			PDTEnabled:    cfg.Compliance.PDTEnabled,
			MarginAccount: cfg.Compliance.MarginAccount,
		}),
		pdtSt: compliance.NewState(),
	}
	return o, nil
}

// SetSectorInfo updates the sector exposure snapshot the sizing gate reads
// on the next entry evaluation.
func (o *Orchestrator) SetSectorInfo(info SectorInfo) {
	o.sectors = info
}

func toDateSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

func buildMacroWindows(windows []config.MacroBlackoutWindowConfig) ([]blackout.Window, error) {
	out := make([]blackout.Window, 0, len(windows))
	for _, w := range windows {
		date, err := time.Parse("2006-01-02", w.Date)
		if err != nil {
			return nil, fmt.Errorf("window date %q: %w", w.Date, err)
		}
		start, err := time.Parse("15:04", w.Start)
		if err != nil {
			return nil, fmt.Errorf("window start %q: %w", w.Start, err)
		}
		end, err := time.Parse("15:04", w.End)
		if err != nil {
			return nil, fmt.Errorf("window end %q: %w", w.End, err)
		}
		out = append(out, blackout.Window{Date: date, Start: start, End: end})
	}
	return out, nil
}

func buildEarningsDates(raw map[string][]string) (map[string][]time.Time, error) {
	out := make(map[string][]time.Time, len(raw))
	for symbol, dates := range raw {
		parsed := make([]time.Time, 0, len(dates))
		for _, d := range dates {
			t, err := time.Parse("2006-01-02", d)
			if err != nil {
				return nil, fmt.Errorf("earnings date %q for %s: %w", d, symbol, err)
			}
			parsed = append(parsed, t)
		}
		out[symbol] = parsed
	}
	return out, nil
}

func parseSessionWindow(w config.SessionWindowConfig) calendarx.SessionWindow {
	mk := func(s string) time.Time {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		return t
	}
	return calendarx.SessionWindow{Start: mk(w.Start), End: mk(w.End), TradeAllowed: w.TradeAllowed}
}

func buildCalendarConfig(cfg *config.Config) calendarx.Config {
	holidays := make(map[string]string, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h] = "holiday"
	}
	return calendarx.Config{
		Timezone:   cfg.MarketSessions.Timezone,
		PreMarket:  parseSessionWindow(cfg.MarketSessions.PreMarket),
		Regular:    parseSessionWindow(cfg.MarketSessions.Regular),
		AfterHours: parseSessionWindow(cfg.MarketSessions.AfterHours),
		Holidays:   holidays,
	}
}

func buildStrategyConfig(cfg *config.Config) strategy.TrendFollowingConfig {
	var playerFocus strategy.PlayerFocus
	switch cfg.Strategy.PlayerFocus {
	case "institutional":
		playerFocus = strategy.Institutional
	case "retail":
		playerFocus = strategy.Retail
	default:
		playerFocus = strategy.Neutral
	}
	return strategy.TrendFollowingConfig{
		PlayerFocus:               playerFocus,
		MAFast:                    cfg.Strategy.TrendFollowing.MAFast,
		MASlow:                    cfg.Strategy.TrendFollowing.MASlow,
		PullbackTouchMAFast:       cfg.Strategy.TrendFollowing.PullbackTouchMAFast,
		VolatilityFilterATRPeriod: cfg.Strategy.TrendFollowing.VolatilityFilterATRPeriod,
		MaxATRPctForEntry:         cfg.Strategy.TrendFollowing.MaxATRPctForEntry,
		RetailMAFast:              cfg.Strategy.Retail.MAFast,
		RetailMASlow:              cfg.Strategy.Retail.MASlow,
		RetailTimeBarsExit:        cfg.Strategy.Retail.TimeBarsExit,
		InstMinVolumeRatio:        cfg.Strategy.Institutional.MinVolumeRatioVsAvg,
		StopLossPct:               cfg.Strategy.Exits.StopLossPct,
		TakeProfitPct:             cfg.Strategy.Exits.TakeProfitPct,
		TimeBarsExit:              cfg.Strategy.Exits.TimeBarsExit,
		KSMaxSpreadPct:            cfg.Strategy.Exits.KillSwitch.MaxSpreadPct,
		KSMaxATRMultiple:          cfg.Strategy.Exits.KillSwitch.MaxATRMultiple,
		CandlestickFilterEnabled:  cfg.Strategy.CandlestickFilter.Enabled,
		CandlestickPatterns:       cfg.Strategy.CandlestickFilter.Patterns,
	}
}

// RecordDayTrade forwards to the compliance checker, exposed for callers
// that detect a same-day entry+exit round trip (SPEC_FULL.md §12).
func (o *Orchestrator) RecordDayTrade(date time.Time) {
	o.pdt.RecordDayTrade(o.pdtSt, date)
}

// marketContext bundles the bars/quote/derived metrics every gate needs for
// one symbol at one instant.
type marketContext struct {
	bars      []marketdata.Bar
	quote     *marketdata.Quote
	spreadPct float64
	atrPct    float64
	volRatio  float64
	dollarVol float64
}

func (o *Orchestrator) fetchMarketContext(ctx context.Context, symbol string) (*marketContext, error) {
	var bars []marketdata.Bar
	err := o.retrier.Do(ctx, "get_bars", func(ctx context.Context) error {
		var err error
		bars, err = o.broker.GetBars(ctx, symbol, broker.Daily, nil, nil, 60)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_bars %s: %w", symbol, err)
	}

	var quote *marketdata.Quote
	err = o.retrier.Do(ctx, "get_latest_quote", func(ctx context.Context) error {
		var err error
		quote, err = o.broker.GetLatestQuote(ctx, symbol)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_latest_quote %s: %w", symbol, err)
	}

	mc := &marketContext{bars: bars, quote: quote}
	if quote != nil && quote.Valid() {
		mc.spreadPct = quote.SpreadPct()
	}
	if len(bars) > 0 {
		period := o.cfg.Strategy.TrendFollowing.VolatilityFilterATRPeriod
		if period <= 0 {
			period = 14
		}
		mc.atrPct = marketdata.ATRPct(bars, period)
		avgVol := marketdata.AverageVolume(bars, 20)
		if avgVol > 0 {
			mc.volRatio = bars[len(bars)-1].Volume / avgVol
		}
		avgVol30 := marketdata.AverageVolume(bars, 30)
		mc.dollarVol = avgVol30 * bars[len(bars)-1].Close
	}
	return mc, nil
}

// EvaluateEntry runs the fixed 15-step gate pipeline of SPEC_FULL.md §4.12
// for one symbol at instant now, given the currently open positions (for
// open-risk accounting).
func (o *Orchestrator) EvaluateEntry(ctx context.Context, symbol string, now time.Time, openPositions []sizing.OpenRiskEntry) (*TradeDecision, error) {
	today := now.Format("2006-01-02")

	// 1. Calendar.
	if !o.calendar.TradingAllowed(now) {
		return veto("calendar", "market closed or session not tradeable"), nil
	}
	// 2. Macro blackout.
	if r := o.macro.Check(now); !r.Allowed {
		return veto("macro_blackout", r.Reason), nil
	}

	mc, err := o.fetchMarketContext(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// 3. Universe eligibility.
	if !o.universe.Eligible(symbol, &mc.dollarVol, &mc.volRatio) {
		return veto("universe", fmt.Sprintf("%s not eligible for the configured universe", symbol)), nil
	}
	// 4. Earnings blackout.
	if r := o.earnings.Check(symbol, now); !r.Allowed {
		return veto("earnings_blackout", r.Reason), nil
	}
	// 5. Market-quality gate.
	if r := o.quality.Check(&mc.spreadPct, &mc.volRatio, &mc.atrPct); !r.Ok {
		return veto("market_quality", r.Reason), nil
	}
	// 6. Execution spread gate.
	if !o.executor.CanTradeSpread(mc.spreadPct) {
		return veto("execution_spread", fmt.Sprintf("spread %.4f%% exceeds max tradeable spread", mc.spreadPct)), nil
	}
	// 7. Volatility do-not-trade.
	if r := o.volDNT.Check(&mc.atrPct, &mc.spreadPct); !r.Allowed {
		return veto("volatility_dnt", r.Reason), nil
	}
	// 8. Strategy slippage circuit-breaker.
	if o.executionSt.StrategyBlocked {
		return veto("strategy_slippage_breaker", "strategy blocked: average slippage exceeded the configured threshold"), nil
	}

	equity, err := o.fetchEquity(ctx)
	if err != nil {
		return nil, err
	}

	// 9. Portfolio-risk can_trade.
	if ok, reason := o.portfolioLedg.CanTrade(o.portfolioSt, equity, symbol, today); !ok {
		return veto("portfolio_risk", reason), nil
	}
	// 10. Compliance PDT.
	if ok, reason := o.pdt.CanDayTrade(o.pdtSt, equity, now); !ok {
		return veto("compliance_pdt", reason), nil
	}
	// 11. Strategy generate_entry.
	entry, reason := o.strategy.GenerateEntry(symbol, mc.bars, strategy.EntryInputs{
		SpreadPct:      mc.spreadPct,
		ATRMultipleNow: mc.atrPct,
	})
	if entry == nil {
		if reason == "" {
			reason = "no entry signal"
		}
		return veto("strategy", reason), nil
	}

	// 12. Sizing.
	currentOpenRiskPct := sizing.TotalOpenRiskPct(equity, openPositions)
	sizeResult := o.sizer.Size(sizing.Inputs{
		Equity:            equity,
		Price:             mc.bars[len(mc.bars)-1].Close,
		StopDistancePct:   entry.StopPct,
		Symbol:            symbol,
		SectorExposurePct: o.sectors.SectorExposure,
		SymbolSector:      o.sectors.SymbolSector,
		ATRPct:            &mc.atrPct,
	})
	if sizeResult.RejectReason != "" {
		return veto("sizing", sizeResult.RejectReason), nil
	}
	// 13. would_exceed_max_open_risk.
	if o.sizer.WouldExceedMaxOpenRisk(currentOpenRiskPct, sizeResult.RiskPct) {
		return veto("sizing_open_risk", "adding this trade would exceed max_open_risk_pct"), nil
	}

	// 14. Execution build_order.
	mid := mc.bars[len(mc.bars)-1].Close
	if mc.quote != nil {
		mid = mc.quote.Mid()
	}
	orderSide := execution.Buy
	if entry.Side == strategy.Short {
		orderSide = execution.Sell
	}
	order := o.executor.BuildOrder(symbol, orderSide, sizeResult.Shares, mid, mc.spreadPct)
	if order == nil {
		return veto("execution_build_order", "execution: order build failed"), nil
	}

	// 15. Allowed.
	return &TradeDecision{
		Allowed:      true,
		OrderRequest: order,
		EntrySignal:  entry,
		Sizing:       sizeResult,
	}, nil
}

func (o *Orchestrator) fetchEquity(ctx context.Context) (float64, error) {
	var equity float64
	err := o.retrier.Do(ctx, "get_equity", func(ctx context.Context) error {
		var err error
		equity, err = o.broker.GetEquity(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get_equity: %w", err)
	}
	return equity, nil
}

// EvaluateExit runs the fixed-priority exit state machine for one tracked
// position, or nil if no exit condition has fired.
func (o *Orchestrator) EvaluateExit(ctx context.Context, symbol string, pos tracker.Position, now time.Time) (*strategy.ExitSignal, error) {
	mc, err := o.fetchMarketContext(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(mc.bars) == 0 {
		return nil, fmt.Errorf("evaluate exit %s: no bar data available", symbol)
	}
	currentPrice := mc.bars[len(mc.bars)-1].Close
	if mc.quote != nil {
		currentPrice = mc.quote.Mid()
	}
	timeBarsExit, stopLossPct, takeProfitPct := o.strategy.EffectiveExitParams()
	if pos.StopPct > 0 {
		stopLossPct = pos.StopPct
	}

	return o.strategy.CheckExit(strategy.ExitInputs{
		Symbol:        symbol,
		EntryPrice:    pos.EntryPrice,
		CurrentPrice:  currentPrice,
		BarsHeld:      tracker.BarsHeld(pos.EntryTime, now),
		SpreadPct:     mc.spreadPct,
		ATRMultiple:   mc.atrPct,
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
		TimeBarsExit:  timeBarsExit,
	}), nil
}

// RunPass executes one control-loop pass: exits for every tracked position,
// then entries for every universe symbol, per SPEC_FULL.md §5's ordering
// guarantee (exits free exposure before entries are considered). A symbol
// whose evaluation returns an error is logged and skipped so it cannot
// abort the pass (panics are not recovered); no goroutines are used within a pass — SPEC_FULL.md
// §5 forbids internal parallelism so that state mutations stay linearizable
// by construction. RunPass does not submit orders; it returns decisions for
// the caller to act on.
func (o *Orchestrator) RunPass(ctx context.Context, universeSymbols []string, now time.Time) (exits map[string]*strategy.ExitSignal, entries map[string]*TradeDecision, err error) {
	start := time.Now()
	defer func() { metrics.LoopPassDuration.Observe(time.Since(start).Seconds()) }()

	positions, err := o.tracker.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("engine: load tracked positions: %w", err)
	}

	exits = make(map[string]*strategy.ExitSignal)
	for symbol, pos := range positions {
		sig, evalErr := o.EvaluateExit(ctx, symbol, pos, now)
		if evalErr != nil {
			o.log.Warn().Err(evalErr).Str("symbol", symbol).Msg("exit evaluation failed, skipping symbol")
			continue
		}
		if sig != nil {
			exits[symbol] = sig
		}
	}

	openPositions := make([]sizing.OpenRiskEntry, 0, len(positions))
	for _, pos := range positions {
		openPositions = append(openPositions, sizing.OpenRiskEntry{
			Notional: float64(pos.Qty) * pos.EntryPrice,
			StopPct:  pos.StopPct,
		})
	}

	entries = make(map[string]*TradeDecision)
	for _, symbol := range universeSymbols {
		if _, alreadyHeld := positions[symbol]; alreadyHeld {
			continue
		}
		decision, evalErr := o.EvaluateEntry(ctx, symbol, now, openPositions)
		if evalErr != nil {
			o.log.Warn().Err(evalErr).Str("symbol", symbol).Msg("entry evaluation failed, skipping symbol")
			continue
		}
		entries[symbol] = decision
		o.recordDecisionAudit(ctx, symbol, now, decision)
		if decision.Allowed {
			metrics.DecisionsAllowed.WithLabelValues(symbol).Inc()
		} else {
			metrics.GateVetos.WithLabelValues(decision.Stage, decision.Reason).Inc()
		}
	}
	return exits, entries, nil
}

func (o *Orchestrator) recordDecisionAudit(ctx context.Context, symbol string, now time.Time, decision *TradeDecision) {
	if o.store == nil {
		return
	}
	if err := o.store.RecordDecision(ctx, audit.DecisionRecord{
		Symbol: symbol, Timestamp: now,
		Allowed: decision.Allowed, Reason: decision.Reason, Stage: decision.Stage,
	}); err != nil {
		o.log.Warn().Err(err).Str("symbol", symbol).Msg("engine: audit record_decision failed")
	}
}

// RecordTradeSubmitted advances the portfolio ledger's daily trade counters
// after an order is submitted for symbol, per SPEC_FULL.md §4.8 RecordTrade.
func (o *Orchestrator) RecordTradeSubmitted(symbol string) {
	o.portfolioLedg.RecordTrade(o.portfolioSt, symbol)
}

// AddTrackedPosition persists a new open position after a confirmed entry
// fill.
func (o *Orchestrator) AddTrackedPosition(symbol string, pos tracker.Position) error {
	return o.tracker.Add(symbol, pos)
}

// RemoveTrackedPosition clears a closed position from the durable tracker
// after a confirmed exit fill.
func (o *Orchestrator) RemoveTrackedPosition(symbol string) error {
	return o.tracker.Remove(symbol)
}

// ReconcileTracker adopts broker positions missing from the tracker on
// startup, per SPEC_FULL.md §3's restart-reconciliation rule.
func (o *Orchestrator) ReconcileTracker(brokerPositions []tracker.BrokerPosition, defaultStopPct float64, now time.Time) ([]string, error) {
	return o.tracker.Reconcile(brokerPositions, defaultStopPct, now)
}

// SubmitBuyingPowerChecked submits order only if its notional does not
// exceed the broker's reported buying power, the pre-submit check the
// original live loop performed beyond what the sizer itself guarantees.
func (o *Orchestrator) SubmitBuyingPowerChecked(ctx context.Context, order *execution.OrderRequest) (*broker.OrderAck, error) {
	bp, err := o.fetchBuyingPower(ctx)
	if err != nil {
		return nil, err
	}
	notional := order.ExpectedPrice * float64(order.Quantity)
	if order.LimitPrice != nil {
		notional = *order.LimitPrice * float64(order.Quantity)
	}
	if notional > bp {
		return nil, fmt.Errorf("engine: order notional %.2f exceeds buying power %.2f", notional, bp)
	}

	var ack *broker.OrderAck
	err = o.retrier.Do(ctx, "submit_order", func(ctx context.Context) error {
		var err error
		ack, err = o.broker.SubmitOrder(ctx, *order)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine: submit_order: %w", err)
	}
	return ack, nil
}

func (o *Orchestrator) fetchBuyingPower(ctx context.Context) (float64, error) {
	var bp float64
	err := o.retrier.Do(ctx, "get_buying_power", func(ctx context.Context) error {
		var err error
		bp, err = o.broker.GetBuyingPower(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get_buying_power: %w", err)
	}
	return bp, nil
}

// RecordFill records the fill against the execution slippage ledger, the
// fill metrics, and the audit store; it does not touch the position tracker
// (see AddTrackedPosition/RemoveTrackedPosition). It is the caller's responsibility
// to invoke this after a successful SubmitBuyingPowerChecked + broker fill.
func (o *Orchestrator) RecordFill(ctx context.Context, symbol string, side execution.Side, qty int, fillPrice, expectedPrice float64, ts time.Time) execution.FillReport {
	fr := o.executor.RecordFill(o.executionSt, symbol, side, qty, fillPrice, expectedPrice, ts)
	metrics.FillsTotal.WithLabelValues(symbol, string(side)).Inc()
	metrics.SlippageBps.WithLabelValues(symbol).Observe(fr.SlippageBps)
	if o.store != nil {
		if err := o.store.RecordFill(ctx, audit.FillRecord{
			Symbol: symbol, Side: string(side), Quantity: qty,
			FillPrice: fillPrice, ExpectedBps: fr.SlippageBps, Timestamp: ts,
		}); err != nil {
			o.log.Warn().Err(err).Msg("engine: audit record_fill failed")
		}
	}
	return fr
}

// UpdateEquity advances the portfolio ledger and publishes the equity/
// drawdown gauges, to be called once per pass before gate evaluation.
func (o *Orchestrator) UpdateEquity(ctx context.Context, t time.Time) (float64, error) {
	equity, err := o.fetchEquity(ctx)
	if err != nil {
		return 0, err
	}
	o.portfolioLedg.UpdateEquity(o.portfolioSt, t, equity)
	drawdown := o.portfolioLedg.DrawdownPct(o.portfolioSt, equity)
	metrics.EquityGauge.Set(equity)
	metrics.DrawdownGauge.Set(drawdown)
	if o.store != nil {
		if err := o.store.RecordEquitySnapshot(ctx, audit.EquitySnapshot{Timestamp: t, Equity: equity, Drawdown: drawdown}); err != nil {
			o.log.Warn().Err(err).Msg("engine: audit record_equity_snapshot failed")
		}
	}
	return equity, nil
}
