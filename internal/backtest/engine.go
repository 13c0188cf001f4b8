package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/quantbench/internal/metrics"
	"github.com/yourusername/quantbench/internal/models"
	"github.com/yourusername/quantbench/internal/strategy"
)

// Engine drives the bar-by-bar simulation loop for one strategy over one
// ordered bar sequence
type Engine struct {
	config BacktestConfig
	logger *logrus.Logger
}

// NewEngine creates a new backtesting engine, failing fast on bad config
func NewEngine(cfg BacktestConfig, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{config: cfg, logger: logger}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Run replays the bar sequence through the strategy lifecycle and assembles
// an immutable Result. The bar loop is strictly sequential; equity at bar N
// depends on bar N-1. An empty sequence yields a zero-trade result rather
// than an error.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, bars []*models.PriceBar) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("%w: strategy is required", models.ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	runID := uuid.New()
	log := e.logger.WithFields(logrus.Fields{"run_id": runID, "strategy": strat.Name()})

	filtered := e.filterBars(bars)
	if err := strat.Initialize(strategy.ModeBacktest); err != nil {
		metrics.RecordBacktestRun("failure")
		return nil, fmt.Errorf("strategy initialization failed: %w", err)
	}

	tracker := NewTracker(e.config.Symbol, e.config.InitialCapital, e.config.CommissionPerFill)
	dropped := 0
	var lastTime time.Time

	for _, bar := range filtered {
		if err := bar.Validate(); err != nil {
			dropped++
			log.WithField("bar_time", bar.Timestamp).Warnf("Discarding bar: %v", err)
			continue
		}
		if bar.Timestamp.Before(lastTime) {
			dropped++
			log.WithField("bar_time", bar.Timestamp).Warn("Discarding out-of-order bar")
			continue
		}
		lastTime = bar.Timestamp

		strat.OnMarketData(bar)
		state := tracker.Snapshot(bar)
		signals := strat.GenerateSignals(state)
		orders := strat.RiskCheck(signals, state)

		for _, order := range orders {
			fillPrice, err := SimulateFill(order, bar, e.config.SlippageBps)
			if err != nil {
				log.WithField("bar_time", bar.Timestamp).Warnf("Order dropped: %v", err)
				continue
			}
			if err := tracker.Apply(order, fillPrice, bar); err != nil {
				log.WithField("bar_time", bar.Timestamp).Warnf("Order rejected: %v", err)
			}
		}

		tracker.MarkToMarket(bar)
	}

	result := &Result{
		RunID:        runID,
		StrategyName: strat.Name(),
		Config:       e.config,
		EquityCurve:  tracker.Curve(),
		Trades:       tracker.Trades(),
		Metrics:      CalculateMetrics(tracker.Curve(), tracker.Trades(), e.config.InitialCapital),
		BarsTotal:    len(filtered),
		BarsDropped:  dropped,
	}
	if len(result.EquityCurve) > 0 {
		result.StartTime = result.EquityCurve[0].Time
		result.EndTime = result.EquityCurve[len(result.EquityCurve)-1].Time
	}

	metrics.RecordBacktestRun("success")
	metrics.ObserveRunDuration(time.Since(started).Seconds())
	if dropped > 0 {
		metrics.RecordBarsDropped(dropped)
	}
	log.WithFields(logrus.Fields{
		"bars":   result.BarsTotal,
		"trades": len(result.Trades),
	}).Info("Backtest run completed")
	return result, nil
}

// filterBars trims the sequence to the configured date range before the loop
// begins; filtering never looks past the configured end date
func (e *Engine) filterBars(bars []*models.PriceBar) []*models.PriceBar {
	if e.config.StartDate == nil && e.config.EndDate == nil {
		return bars
	}
	filtered := make([]*models.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if e.config.StartDate != nil && bar.Timestamp.Before(*e.config.StartDate) {
			continue
		}
		if e.config.EndDate != nil && bar.Timestamp.After(*e.config.EndDate) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}
