// Package metrics provides the centralized Prometheus registry for the
// backtesting toolkit.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Registry returns the shared registry, registering all collectors on first
// use
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			BacktestRunsTotal,
			BacktestRunDuration,
			WalkForwardWindowsTotal,
			GridCandidatesTotal,
			WalkForwardOOSSharpe,
			BarsDroppedTotal,
		)
	})
	return registry
}

// Handler returns an HTTP handler exposing the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}
