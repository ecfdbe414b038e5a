// Package metrics exposes prometheus counters and histograms for the gate
// pipeline, fills, and control-loop timing (SPEC_FULL.md §11), grounded on
// poorman-SynapseStrike's metrics package: a package-level custom registry
// built with promauto.With, served over promhttp.Handler (chidi150c-coinbase).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the custom registry for this engine's metrics, kept separate
// from the default global registry so tests can spin up isolated instances.
var Registry = prometheus.NewRegistry()

var (
	// GateVetos counts a gate rejection, labeled by stage and reason.
	GateVetos = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eqtrader",
			Subsystem: "gates",
			Name:      "vetoes_total",
			Help:      "Count of gate pipeline vetoes by stage and reason",
		},
		[]string{"stage", "reason"},
	)

	// DecisionsAllowed counts passes through the full gate pipeline.
	DecisionsAllowed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eqtrader",
			Subsystem: "gates",
			Name:      "allowed_total",
			Help:      "Count of symbols that cleared every gate",
		},
		[]string{"symbol"},
	)

	// FillsTotal counts executed order fills.
	FillsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eqtrader",
			Subsystem: "execution",
			Name:      "fills_total",
			Help:      "Count of order fills by symbol and side",
		},
		[]string{"symbol", "side"},
	)

	// SlippageBps observes signed slippage in basis points per fill.
	SlippageBps = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eqtrader",
			Subsystem: "execution",
			Name:      "slippage_bps",
			Help:      "Signed slippage in basis points per fill",
			Buckets:   []float64{-50, -25, -10, -5, 0, 5, 10, 25, 50, 100},
		},
		[]string{"symbol"},
	)

	// LoopPassDuration observes how long one full RunPass takes.
	LoopPassDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "eqtrader",
			Subsystem: "engine",
			Name:      "loop_pass_duration_seconds",
			Help:      "Wall-clock duration of one control-loop pass",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EquityGauge tracks the current equity value for dashboards and alerts.
	EquityGauge = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eqtrader",
			Subsystem: "portfolio",
			Name:      "equity",
			Help:      "Current portfolio equity",
		},
	)

	// DrawdownGauge tracks the current drawdown from peak equity.
	DrawdownGauge = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eqtrader",
			Subsystem: "portfolio",
			Name:      "drawdown_pct",
			Help:      "Current drawdown percentage from peak equity",
		},
	)
)

// Handler returns the HTTP handler to mount at the configured metrics
// address, using this package's isolated registry rather than the global
// default.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
