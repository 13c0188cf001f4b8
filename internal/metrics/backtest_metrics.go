// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quantbench",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by status",
	}, []string{"status"})

	WalkForwardWindowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quantbench",
		Name:      "walkforward_windows_total",
		Help:      "Total number of walk-forward windows processed by status",
	}, []string{"status"})

	GridCandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quantbench",
		Name:      "grid_candidates_total",
		Help:      "Total number of parameter combinations evaluated in grid search",
	})

	BarsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quantbench",
		Name:      "bars_dropped_total",
		Help:      "Total number of price bars discarded during feed validation",
	})
)

// Histograms
var (
	BacktestRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quantbench",
		Name:      "backtest_run_duration_seconds",
		Help:      "Wall-clock duration of individual backtest runs",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// Gauges
var (
	WalkForwardOOSSharpe = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "quantbench",
		Name:      "walkforward_oos_sharpe",
		Help:      "Aggregated out-of-sample Sharpe ratio of the latest walk-forward run per strategy",
	}, []string{"strategy"})
)

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "failure"
func RecordBacktestRun(status string) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
}

// ObserveRunDuration records the duration of one backtest run in seconds
func ObserveRunDuration(seconds float64) {
	BacktestRunDuration.Observe(seconds)
}

// RecordWalkForwardWindow records a processed walk-forward window.
// status should be one of: "success", "skipped"
func RecordWalkForwardWindow(status string) {
	WalkForwardWindowsTotal.WithLabelValues(status).Inc()
}

// RecordGridCandidates adds to the evaluated-candidates counter
func RecordGridCandidates(n int) {
	GridCandidatesTotal.Add(float64(n))
}

// RecordBarsDropped adds to the dropped-bars counter
func RecordBarsDropped(n int) {
	BarsDroppedTotal.Add(float64(n))
}

// UpdateOOSSharpe publishes the aggregated out-of-sample Sharpe ratio
func UpdateOOSSharpe(strategyName string, sharpe float64) {
	WalkForwardOOSSharpe.WithLabelValues(strategyName).Set(sharpe)
}
