// Package sizing computes risk-based share counts, grounded on
// original_source/src/position_sizing.py, following internal/risk's
// checks-as-ordered-steps-with-reject-reason style from the teacher.
package sizing

import "math"

// Config mirrors SPEC_FULL.md §6 position_sizing.
type Config struct {
	RiskPerTradePct          float64
	MaxOpenRiskPct           float64
	MaxExposurePerSymbolPct  float64
	MaxExposurePerSectorPct  float64
	HighVolReductionEnabled  bool
	HighVolATRPctThreshold   float64
	HighVolSizeMultiplier    float64
}

func (c Config) withDefaults() Config {
	if c.RiskPerTradePct == 0 {
		c.RiskPerTradePct = 0.5
	}
	if c.MaxOpenRiskPct == 0 {
		c.MaxOpenRiskPct = 6.0
	}
	if c.MaxExposurePerSymbolPct == 0 {
		c.MaxExposurePerSymbolPct = 20.0
	}
	if c.MaxExposurePerSectorPct == 0 {
		c.MaxExposurePerSectorPct = 40.0
	}
	if c.HighVolATRPctThreshold == 0 {
		c.HighVolATRPctThreshold = 3.0
	}
	if c.HighVolSizeMultiplier == 0 {
		c.HighVolSizeMultiplier = 0.5
	}
	return c
}

// Result is PositionSizingResult: shares=0 iff RejectReason != "".
type Result struct {
	Shares       int
	Notional     float64
	RiskAmount   float64
	RiskPct      float64
	RejectReason string
}

func rejected(reason string) Result {
	return Result{RejectReason: reason}
}

// Sizer applies the spec §4.7 sizing pipeline.
type Sizer struct {
	cfg Config
}

// New builds a Sizer, applying spec defaults for zero Config fields.
func New(cfg Config) *Sizer {
	return &Sizer{cfg: cfg.withDefaults()}
}

// Inputs bundles everything Size needs for one sizing decision.
type Inputs struct {
	Equity            float64
	Price             float64
	StopDistancePct   float64
	Symbol            string
	SectorExposurePct map[string]float64 // sector -> current exposure pct of equity
	SymbolSector      map[string]string  // symbol -> sector; unknown -> "unknown"
	ATRPct            *float64
}

// Size runs the six-step sizing pipeline of SPEC_FULL.md §4.7, returning a
// Result with RejectReason set whenever Shares would be 0.
func (s *Sizer) Size(in Inputs) Result {
	cfg := s.cfg

	riskAmount := in.Equity * cfg.RiskPerTradePct / 100

	if in.StopDistancePct <= 0 {
		return rejected("sizing: stop_distance_pct must be > 0")
	}
	riskPerShare := in.Price * in.StopDistancePct / 100
	if riskPerShare <= 0 {
		return rejected("sizing: risk_per_share must be > 0")
	}

	sharesByRisk := int(math.Floor(riskAmount / riskPerShare))
	if sharesByRisk <= 0 {
		return rejected("sizing: risk-based share count is zero")
	}
	shares := sharesByRisk

	// Symbol exposure cap.
	maxNotional := in.Equity * cfg.MaxExposurePerSymbolPct / 100
	if float64(shares)*in.Price > maxNotional {
		shares = int(math.Floor(maxNotional / in.Price))
		if shares <= 0 {
			return rejected("sizing: symbol exposure cap leaves zero shares")
		}
		riskAmount = float64(shares) * riskPerShare
	}

	// High-volatility reduction.
	if cfg.HighVolReductionEnabled && in.ATRPct != nil && *in.ATRPct > cfg.HighVolATRPctThreshold {
		reduced := int(math.Floor(float64(shares) * cfg.HighVolSizeMultiplier))
		if reduced < 1 {
			reduced = 1
		}
		shares = reduced
		riskAmount = float64(shares) * riskPerShare
	}

	notional := float64(shares) * in.Price
	riskPct := 0.0
	if in.Equity > 0 {
		riskPct = riskAmount / in.Equity * 100
	}

	// Sector exposure cap.
	sector := "unknown"
	if in.SymbolSector != nil {
		if sec, ok := in.SymbolSector[in.Symbol]; ok && sec != "" {
			sector = sec
		}
	}
	currentSectorPct := 0.0
	if in.SectorExposurePct != nil {
		currentSectorPct = in.SectorExposurePct[sector]
	}
	newPct := 0.0
	if in.Equity > 0 {
		newPct = notional / in.Equity * 100
	}
	if currentSectorPct+newPct > cfg.MaxExposurePerSectorPct {
		return rejected("sizing: sector exposure cap exceeded")
	}

	return Result{Shares: shares, Notional: notional, RiskAmount: riskAmount, RiskPct: riskPct}
}

// OpenRiskEntry is one (notional, stopPct) pair for an open position.
type OpenRiskEntry struct {
	Notional float64
	StopPct  float64
}

// TotalOpenRiskPct sums per-position risk (notional * stopPct/100) across
// all supplied open positions, expressed as a percentage of equity.
func TotalOpenRiskPct(equity float64, positions []OpenRiskEntry) float64 {
	if equity <= 0 {
		return 0
	}
	var sum float64
	for _, p := range positions {
		sum += p.Notional * p.StopPct / 100
	}
	return sum / equity * 100
}

// WouldExceedMaxOpenRisk reports whether adding newTradeRiskPct to
// currentOpenRiskPct would exceed the sizer's configured cap.
func (s *Sizer) WouldExceedMaxOpenRisk(currentOpenRiskPct, newTradeRiskPct float64) bool {
	return currentOpenRiskPct+newTradeRiskPct > s.cfg.MaxOpenRiskPct
}
