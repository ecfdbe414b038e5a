// Package config loads and validates the engine's YAML configuration,
// grounded on other_examples/eddiefleurent-scranton_strangler's config.go:
// a typed struct tree with yaml tags, os.ExpandEnv secret injection,
// yaml.Decoder.KnownFields(true), a Normalize() defaulting pass, and a
// Validate() pass, mirrored here for SPEC_FULL.md §6's section layout.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects paper vs live trading.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Config is the top-level configuration tree; every section is optional.
type Config struct {
	Broker          BrokerConfig          `yaml:"broker"`
	Universe        UniverseConfig        `yaml:"universe"`
	MarketSessions  MarketSessionsConfig  `yaml:"market_sessions"`
	Holidays        []string              `yaml:"holidays"`
	MarketQuality   MarketQualityConfig   `yaml:"market_quality"`
	Strategy        StrategyConfig        `yaml:"strategy"`
	PositionSizing  PositionSizingConfig  `yaml:"position_sizing"`
	PortfolioRisk   PortfolioRiskConfig   `yaml:"portfolio_risk"`
	Execution       ExecutionConfig       `yaml:"execution"`
	Compliance      ComplianceConfig      `yaml:"compliance"`
	TradeFilters    TradeFiltersConfig    `yaml:"trade_filters"`
	Storage         StorageConfig         `yaml:"storage"`
	Observability   ObservabilityConfig   `yaml:"observability"`
}

// BrokerConfig mirrors SPEC_FULL.md §6 broker.
type BrokerConfig struct {
	Firm                 string `yaml:"firm"`
	Paper                bool   `yaml:"paper"`
	DataFeed             string `yaml:"data_feed"`
	CheckIntervalMinutes int    `yaml:"check_interval_minutes"`
	APIRetryTimes        int    `yaml:"api_retry_times"`
	APIRetryDelaySec     int    `yaml:"api_retry_delay_sec"`
}

// UniverseConfig mirrors SPEC_FULL.md §6 universe.
type UniverseConfig struct {
	Symbols                 []string `yaml:"symbols"`
	MinAvgDollarVolume30D   float64  `yaml:"min_avg_dollar_volume_30d"`
	MinATRMultipleForVolume float64  `yaml:"min_atr_multiple_for_volume"`
}

// SessionWindowConfig is one named market session.
type SessionWindowConfig struct {
	Start        string `yaml:"start"` // "HH:MM"
	End          string `yaml:"end"`
	TradeAllowed bool   `yaml:"trade_allowed"`
}

// MarketSessionsConfig mirrors SPEC_FULL.md §6 market_sessions.
type MarketSessionsConfig struct {
	Timezone   string               `yaml:"timezone"`
	PreMarket  SessionWindowConfig  `yaml:"pre_market"`
	Regular    SessionWindowConfig  `yaml:"regular"`
	AfterHours SessionWindowConfig  `yaml:"after_hours"`
}

// MarketQualityConfig mirrors SPEC_FULL.md §6 market_quality.
type MarketQualityConfig struct {
	MaxSpreadPct                   float64 `yaml:"max_spread_pct"`
	MinVolumeATRRatio              float64 `yaml:"min_volume_atr_ratio"`
	BlockOnNewsSpike               bool    `yaml:"block_on_news_spike"`
	NewsVolatilitySpikeATRMultiple float64 `yaml:"news_volatility_spike_atr_multiple"`
}

// TrendFollowingConfig mirrors SPEC_FULL.md §6 strategy.trend_following.
type TrendFollowingConfig struct {
	MAFast                    int     `yaml:"ma_fast"`
	MASlow                    int     `yaml:"ma_slow"`
	PullbackTouchMAFast       bool    `yaml:"pullback_touch_ma_fast"`
	VolatilityFilterATRPeriod int     `yaml:"volatility_filter_atr_period"`
	MaxATRPctForEntry         float64 `yaml:"max_atr_pct_for_entry"`
}

// RetailConfig mirrors SPEC_FULL.md §6 strategy.retail.
type RetailConfig struct {
	MAFast       int `yaml:"ma_fast"`
	MASlow       int `yaml:"ma_slow"`
	TimeBarsExit int `yaml:"time_bars_exit"`
}

// InstitutionalConfig mirrors SPEC_FULL.md §6 strategy.institutional.
type InstitutionalConfig struct {
	MinVolumeRatioVsAvg float64 `yaml:"min_volume_ratio_vs_avg"`
}

// KillSwitchConfig mirrors SPEC_FULL.md §6 strategy.exits.kill_switch.
type KillSwitchConfig struct {
	MaxSpreadPct    float64 `yaml:"max_spread_pct"`
	MaxATRMultiple  float64 `yaml:"max_atr_multiple"`
}

// ExitsConfig mirrors SPEC_FULL.md §6 strategy.exits.
type ExitsConfig struct {
	StopLossPct   float64          `yaml:"stop_loss_pct"`
	TakeProfitPct *float64         `yaml:"take_profit_pct"`
	TimeBarsExit  int              `yaml:"time_bars_exit"`
	KillSwitch    KillSwitchConfig `yaml:"kill_switch"`
}

// CandlestickFilterConfig mirrors SPEC_FULL.md §6 strategy.candlestick_filter.
type CandlestickFilterConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// StrategyConfig mirrors SPEC_FULL.md §6 strategy.
type StrategyConfig struct {
	PlayerFocus        string                  `yaml:"player_focus"`
	TrendFollowing     TrendFollowingConfig     `yaml:"trend_following"`
	Retail             RetailConfig             `yaml:"retail"`
	Institutional      InstitutionalConfig      `yaml:"institutional"`
	Exits              ExitsConfig              `yaml:"exits"`
	CandlestickFilter  CandlestickFilterConfig  `yaml:"candlestick_filter"`
}

// HighVolReductionConfig mirrors SPEC_FULL.md §6 position_sizing.high_vol_reduction.
type HighVolReductionConfig struct {
	Enabled         bool    `yaml:"enabled"`
	ATRPctThreshold float64 `yaml:"atr_pct_threshold"`
	SizeMultiplier  float64 `yaml:"size_multiplier"`
}

// PositionSizingConfig mirrors SPEC_FULL.md §6 position_sizing.
type PositionSizingConfig struct {
	RiskPerTradePct         float64                `yaml:"risk_per_trade_pct"`
	MaxOpenRiskPct          float64                `yaml:"max_open_risk_pct"`
	MaxExposurePerSymbolPct float64                `yaml:"max_exposure_per_symbol_pct"`
	MaxExposurePerSectorPct float64                `yaml:"max_exposure_per_sector_pct"`
	HighVolReduction        HighVolReductionConfig `yaml:"high_vol_reduction"`
}

// PortfolioRiskConfig mirrors SPEC_FULL.md §6 portfolio_risk.
type PortfolioRiskConfig struct {
	DailyLossLimitPct        float64 `yaml:"daily_loss_limit_pct"`
	MaxDrawdownPct           float64 `yaml:"max_drawdown_pct"`
	SafeModeAfterMaxDD       bool    `yaml:"safe_mode_after_max_dd"`
	RecoveryCriteriaPct      float64 `yaml:"recovery_criteria_pct"`
	MaxTradesPerDay          int     `yaml:"max_trades_per_day"`
	MaxTradesPerSymbolPerDay int     `yaml:"max_trades_per_symbol_per_day"`
}

// ExecutionConfig mirrors SPEC_FULL.md §6 execution.
type ExecutionConfig struct {
	PreferLimitOrders                  bool    `yaml:"prefer_limit_orders"`
	LimitOrderOffsetTicks               float64 `yaml:"limit_order_offset_ticks"`
	MaxSpreadPctToTrade                  float64 `yaml:"max_spread_pct_to_trade"`
	PartialFillTimeoutSeconds            int     `yaml:"partial_fill_timeout_seconds"`
	CancelReplaceOnPartial               bool    `yaml:"cancel_replace_on_partial"`
	MaxSlippageBps                       float64 `yaml:"max_slippage_bps"`
	BlockStrategyIfSlippageBpsAvgExceeds float64 `yaml:"block_strategy_if_slippage_bps_avg_exceeds"`
}

// ComplianceConfig mirrors SPEC_FULL.md §6 compliance.
type ComplianceConfig struct {
	PDTMinEquity  float64 `yaml:"pdt_min_equity"`
	PDTEnabled    bool    `yaml:"pdt_enabled"`
	MarginAccount bool    `yaml:"margin_account"`
}

// MacroBlackoutWindowConfig is one {date,start,end} macro blackout window.
type MacroBlackoutWindowConfig struct {
	Date  string `yaml:"date"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// MacroBlackoutConfig mirrors SPEC_FULL.md §6 trade_filters.macro_blackout.
type MacroBlackoutConfig struct {
	Enabled         bool                         `yaml:"enabled"`
	BlackoutDates   []string                     `yaml:"blackout_dates"`
	BlackoutWindows []MacroBlackoutWindowConfig `yaml:"blackout_windows"`
}

// EarningsBlackoutConfig mirrors SPEC_FULL.md §6 trade_filters.earnings_blackout.
type EarningsBlackoutConfig struct {
	Enabled       bool                `yaml:"enabled"`
	DaysBefore    int                 `yaml:"days_before"`
	DaysAfter     int                 `yaml:"days_after"`
	EarningsDates map[string][]string `yaml:"earnings_dates"`
}

// VolatilityDNTConfig mirrors SPEC_FULL.md §6 trade_filters.volatility_do_not_trade.
type VolatilityDNTConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxATRPct    float64 `yaml:"max_atr_pct"`
	MaxSpreadPct float64 `yaml:"max_spread_pct"`
}

// TradeFiltersConfig mirrors SPEC_FULL.md §6 trade_filters.
type TradeFiltersConfig struct {
	MacroBlackout          MacroBlackoutConfig    `yaml:"macro_blackout"`
	EarningsBlackout       EarningsBlackoutConfig `yaml:"earnings_blackout"`
	VolatilityDoNotTrade   VolatilityDNTConfig    `yaml:"volatility_do_not_trade"`
}

// StorageConfig selects the audit-log backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite | none
	DSN    string `yaml:"dsn"`
}

// ObservabilityConfig controls logging and the metrics HTTP surface.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads configPath, expands ${VAR} environment references, decodes
// strictly (unknown keys fail), normalizes defaults, and validates.
func Load(configPath string, mode Mode, readFile func(string) ([]byte, error)) (*Config, error) {
	data, err := readFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", configPath, err)
	}
	expanded := expandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", configPath, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(mode); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// expandEnv is a thin indirection over os.ExpandEnv kept for testability
// (tests can supply literal ${VAR} content without touching process env).
var expandEnv = func(s string) string { return os.ExpandEnv(s) }

// Normalize fills in the spec's §4 text defaults for every unset field.
func (c *Config) Normalize() {
	if c.Broker.CheckIntervalMinutes == 0 {
		c.Broker.CheckIntervalMinutes = 5
	}
	if c.Broker.APIRetryTimes == 0 {
		c.Broker.APIRetryTimes = 3
	}
	if c.Broker.APIRetryDelaySec == 0 {
		c.Broker.APIRetryDelaySec = 2
	}
	if c.Universe.MinAvgDollarVolume30D == 0 {
		c.Universe.MinAvgDollarVolume30D = 50_000_000
	}
	if c.Universe.MinATRMultipleForVolume == 0 {
		c.Universe.MinATRMultipleForVolume = 0.5
	}
	if c.MarketSessions.Timezone == "" {
		c.MarketSessions.Timezone = "America/New_York"
	}
	if c.MarketSessions.PreMarket.Start == "" {
		c.MarketSessions.PreMarket = SessionWindowConfig{Start: "04:00", End: "09:30", TradeAllowed: false}
	}
	if c.MarketSessions.Regular.Start == "" {
		c.MarketSessions.Regular = SessionWindowConfig{Start: "09:30", End: "16:00", TradeAllowed: true}
	}
	if c.MarketSessions.AfterHours.Start == "" {
		c.MarketSessions.AfterHours = SessionWindowConfig{Start: "16:00", End: "20:00", TradeAllowed: false}
	}
	if c.MarketQuality.MaxSpreadPct == 0 {
		c.MarketQuality.MaxSpreadPct = 0.10
	}
	if c.MarketQuality.MinVolumeATRRatio == 0 {
		c.MarketQuality.MinVolumeATRRatio = 1.0
	}
	if c.MarketQuality.NewsVolatilitySpikeATRMultiple == 0 {
		c.MarketQuality.NewsVolatilitySpikeATRMultiple = 2.0
	}
	if c.Strategy.PlayerFocus == "" {
		c.Strategy.PlayerFocus = "neutral"
	}
	if c.Strategy.TrendFollowing.MAFast == 0 {
		c.Strategy.TrendFollowing.MAFast = 20
	}
	if c.Strategy.TrendFollowing.MASlow == 0 {
		c.Strategy.TrendFollowing.MASlow = 50
	}
	if c.Strategy.TrendFollowing.VolatilityFilterATRPeriod == 0 {
		c.Strategy.TrendFollowing.VolatilityFilterATRPeriod = 14
	}
	if c.Strategy.TrendFollowing.MaxATRPctForEntry == 0 {
		c.Strategy.TrendFollowing.MaxATRPctForEntry = 5.0
	}
	if c.Strategy.Retail.MAFast == 0 {
		c.Strategy.Retail.MAFast = 10
	}
	if c.Strategy.Retail.MASlow == 0 {
		c.Strategy.Retail.MASlow = 30
	}
	if c.Strategy.Retail.TimeBarsExit == 0 {
		c.Strategy.Retail.TimeBarsExit = 10
	}
	if c.Strategy.Institutional.MinVolumeRatioVsAvg == 0 {
		c.Strategy.Institutional.MinVolumeRatioVsAvg = 1.5
	}
	if c.Strategy.Exits.StopLossPct == 0 {
		c.Strategy.Exits.StopLossPct = 5.0
	}
	if c.Strategy.Exits.TimeBarsExit == 0 {
		c.Strategy.Exits.TimeBarsExit = 20
	}
	if c.Strategy.Exits.KillSwitch.MaxSpreadPct == 0 {
		c.Strategy.Exits.KillSwitch.MaxSpreadPct = 0.5
	}
	if c.Strategy.Exits.KillSwitch.MaxATRMultiple == 0 {
		c.Strategy.Exits.KillSwitch.MaxATRMultiple = 3.0
	}
	if c.PositionSizing.RiskPerTradePct == 0 {
		c.PositionSizing.RiskPerTradePct = 0.5
	}
	if c.PositionSizing.MaxOpenRiskPct == 0 {
		c.PositionSizing.MaxOpenRiskPct = 6.0
	}
	if c.PositionSizing.MaxExposurePerSymbolPct == 0 {
		c.PositionSizing.MaxExposurePerSymbolPct = 20.0
	}
	if c.PositionSizing.MaxExposurePerSectorPct == 0 {
		c.PositionSizing.MaxExposurePerSectorPct = 40.0
	}
	if c.PositionSizing.HighVolReduction.ATRPctThreshold == 0 {
		c.PositionSizing.HighVolReduction.ATRPctThreshold = 3.0
	}
	if c.PositionSizing.HighVolReduction.SizeMultiplier == 0 {
		c.PositionSizing.HighVolReduction.SizeMultiplier = 0.5
	}
	if c.PortfolioRisk.DailyLossLimitPct == 0 {
		c.PortfolioRisk.DailyLossLimitPct = -2.0
	}
	if c.PortfolioRisk.MaxDrawdownPct == 0 {
		c.PortfolioRisk.MaxDrawdownPct = -10.0
	}
	if c.PortfolioRisk.RecoveryCriteriaPct == 0 {
		c.PortfolioRisk.RecoveryCriteriaPct = -8.0
	}
	if c.PortfolioRisk.MaxTradesPerDay == 0 {
		c.PortfolioRisk.MaxTradesPerDay = 10
	}
	if c.PortfolioRisk.MaxTradesPerSymbolPerDay == 0 {
		c.PortfolioRisk.MaxTradesPerSymbolPerDay = 2
	}
	if c.Execution.MaxSpreadPctToTrade == 0 {
		c.Execution.MaxSpreadPctToTrade = 0.15
	}
	if c.Execution.PartialFillTimeoutSeconds == 0 {
		c.Execution.PartialFillTimeoutSeconds = 30
	}
	if c.Execution.BlockStrategyIfSlippageBpsAvgExceeds == 0 {
		c.Execution.BlockStrategyIfSlippageBpsAvgExceeds = 25.0
	}
	if c.Compliance.PDTMinEquity == 0 {
		c.Compliance.PDTMinEquity = 25_000
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "none"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate rejects contradictory or out-of-range values. mode additionally
// enforces the teacher's conservative live-mode safety caps.
func (c *Config) Validate(mode Mode) error {
	if mode != ModePaper && mode != ModeLive {
		return fmt.Errorf("mode must be 'paper' or 'live', got %q", mode)
	}
	if c.PositionSizing.RiskPerTradePct <= 0 {
		return fmt.Errorf("position_sizing.risk_per_trade_pct must be > 0")
	}
	if c.Strategy.TrendFollowing.MAFast >= c.Strategy.TrendFollowing.MASlow {
		return fmt.Errorf("strategy.trend_following.ma_fast (%d) must be < ma_slow (%d)",
			c.Strategy.TrendFollowing.MAFast, c.Strategy.TrendFollowing.MASlow)
	}
	if c.Strategy.Retail.MAFast >= c.Strategy.Retail.MASlow {
		return fmt.Errorf("strategy.retail.ma_fast (%d) must be < ma_slow (%d)",
			c.Strategy.Retail.MAFast, c.Strategy.Retail.MASlow)
	}
	switch c.Strategy.PlayerFocus {
	case "neutral", "institutional", "retail":
	default:
		return fmt.Errorf("strategy.player_focus must be neutral|institutional|retail, got %q", c.Strategy.PlayerFocus)
	}
	if c.PortfolioRisk.DailyLossLimitPct >= 0 {
		return fmt.Errorf("portfolio_risk.daily_loss_limit_pct must be negative")
	}
	if c.PortfolioRisk.MaxDrawdownPct >= 0 {
		return fmt.Errorf("portfolio_risk.max_drawdown_pct must be negative")
	}
	if c.PortfolioRisk.RecoveryCriteriaPct >= 0 {
		return fmt.Errorf("portfolio_risk.recovery_criteria_pct must be negative")
	}
	if c.PortfolioRisk.RecoveryCriteriaPct < c.PortfolioRisk.MaxDrawdownPct {
		return fmt.Errorf("portfolio_risk.recovery_criteria_pct (%.2f) must be >= max_drawdown_pct (%.2f)",
			c.PortfolioRisk.RecoveryCriteriaPct, c.PortfolioRisk.MaxDrawdownPct)
	}
	for _, win := range []SessionWindowConfig{c.MarketSessions.PreMarket, c.MarketSessions.Regular, c.MarketSessions.AfterHours} {
		if win.Start == win.End {
			return fmt.Errorf("market_sessions: a session window must not have equal start and end (%s)", win.Start)
		}
		if _, err := time.Parse("15:04", win.Start); err != nil {
			return fmt.Errorf("market_sessions: invalid start time %q: %w", win.Start, err)
		}
		if _, err := time.Parse("15:04", win.End); err != nil {
			return fmt.Errorf("market_sessions: invalid end time %q: %w", win.End, err)
		}
	}
	switch c.Storage.Driver {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("storage.driver must be postgres|sqlite|none, got %q", c.Storage.Driver)
	}

	if mode == ModeLive {
		if err := c.validateLiveMode(); err != nil {
			return fmt.Errorf("live mode: %w", err)
		}
	}
	return nil
}

// validateLiveMode enforces extra safety caps before real order submission,
// carried from the teacher's live-mode validation concept.
func (c *Config) validateLiveMode() error {
	if c.Broker.Firm == "" {
		return fmt.Errorf("broker.firm is required for live trading")
	}
	if c.PositionSizing.RiskPerTradePct > 2.0 {
		return fmt.Errorf("risk_per_trade_pct cannot exceed 2%% in live mode (got %.2f%%)", c.PositionSizing.RiskPerTradePct)
	}
	if c.PositionSizing.MaxExposurePerSymbolPct > 50.0 {
		return fmt.Errorf("max_exposure_per_symbol_pct cannot exceed 50%% in live mode (got %.2f%%)", c.PositionSizing.MaxExposurePerSymbolPct)
	}
	if c.PortfolioRisk.MaxTradesPerDay > 20 {
		return fmt.Errorf("max_trades_per_day cannot exceed 20 in live mode (got %d)", c.PortfolioRisk.MaxTradesPerDay)
	}
	return nil
}
