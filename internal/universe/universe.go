// Package universe filters symbols by whitelist membership and liquidity
// thresholds, grounded on original_source/src/universe.py's UniverseFilter.
package universe

// Config is the set of values needed to construct a Filter; see
// SPEC_FULL.md §6 universe.
type Config struct {
	Symbols                  []string
	MinAvgDollarVolume30D    float64
	MinATRMultipleForVolume  float64
}

// Filter decides whether a symbol is eligible to trade.
type Filter struct {
	symbols               map[string]struct{}
	minAvgDollarVolume30D  float64
	minATRMultipleForVol   float64
}

// New builds a Filter from Config, applying the spec defaults for zero
// values (min_avg_dollar_volume_30d=$50,000,000, min_atr_multiple=0.5).
func New(cfg Config) *Filter {
	set := make(map[string]struct{}, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		set[s] = struct{}{}
	}
	minVol := cfg.MinAvgDollarVolume30D
	if minVol == 0 {
		minVol = 50_000_000
	}
	minATR := cfg.MinATRMultipleForVolume
	if minATR == 0 {
		minATR = 0.5
	}
	return &Filter{
		symbols:              set,
		minAvgDollarVolume30D: minVol,
		minATRMultipleForVol:  minATR,
	}
}

// Eligible is true iff symbol is in the whitelist and both optional
// liquidity metrics, when supplied, meet their configured minima. A nil
// metric (not supplied) is treated as satisfied rather than failing.
func (f *Filter) Eligible(symbol string, avgDollarVolume30D, volumeVsATR *float64) bool {
	if _, ok := f.symbols[symbol]; !ok {
		return false
	}
	if avgDollarVolume30D != nil && *avgDollarVolume30D < f.minAvgDollarVolume30D {
		return false
	}
	if volumeVsATR != nil && *volumeVsATR < f.minATRMultipleForVol {
		return false
	}
	return true
}
