// Package quality implements the market-quality gate: spread, volume/ATR
// liquidity, and a news/volatility-spike veto, grounded on
// original_source/src/universe.py's MarketQualityGate.
package quality

import "fmt"

// Config mirrors SPEC_FULL.md §6 market_quality.
type Config struct {
	MaxSpreadPct                 float64
	MinVolumeATRRatio             float64
	BlockOnNewsSpike              bool
	NewsVolatilitySpikeATRMultiple float64
}

// Result is the outcome of a quality check; Reason is always set,
// even when Ok is true ("ok").
type Result struct {
	Ok               bool
	Reason           string
	SpreadPct        *float64
	VolumeATRRatio   *float64
	VolatilitySpike  bool
}

// Gate evaluates market-quality vetoes in the fixed order of SPEC_FULL.md §4.4.
type Gate struct {
	maxSpreadPct                  float64
	minVolumeATRRatio             float64
	blockOnNewsSpike              bool
	newsVolatilitySpikeATRMultiple float64
}

// New builds a Gate, applying the spec defaults for zero values.
func New(cfg Config) *Gate {
	maxSpread := cfg.MaxSpreadPct
	if maxSpread == 0 {
		maxSpread = 0.10
	}
	minRatio := cfg.MinVolumeATRRatio
	if minRatio == 0 {
		minRatio = 1.0
	}
	spike := cfg.NewsVolatilitySpikeATRMultiple
	if spike == 0 {
		spike = 2.0
	}
	return &Gate{
		maxSpreadPct:                   maxSpread,
		minVolumeATRRatio:              minRatio,
		blockOnNewsSpike:               cfg.BlockOnNewsSpike,
		newsVolatilitySpikeATRMultiple: spike,
	}
}

// Check vetoes on the first violation it finds among spread, volume/ATR
// ratio, and (if enabled) a volatility spike; unsupplied (nil) metrics pass.
func (g *Gate) Check(spreadPct, volumeATRRatio, currentATRMultiple *float64) Result {
	if spreadPct != nil && *spreadPct > g.maxSpreadPct {
		return Result{
			Ok:        false,
			Reason:    fmt.Sprintf("spread %.4f%% > max %.2f%%", *spreadPct, g.maxSpreadPct),
			SpreadPct: spreadPct,
		}
	}
	if volumeATRRatio != nil && *volumeATRRatio < g.minVolumeATRRatio {
		return Result{
			Ok:             false,
			Reason:         fmt.Sprintf("volume/ATR %.4f < min %.2f", *volumeATRRatio, g.minVolumeATRRatio),
			VolumeATRRatio: volumeATRRatio,
		}
	}
	if g.blockOnNewsSpike && currentATRMultiple != nil && *currentATRMultiple >= g.newsVolatilitySpikeATRMultiple {
		return Result{
			Ok:              false,
			Reason:          fmt.Sprintf("volatility spike: ATR multiple %.2f", *currentATRMultiple),
			VolatilitySpike: true,
		}
	}
	return Result{Ok: true, Reason: "ok"}
}
