package backtest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/quantbench/internal/metrics"
	"github.com/yourusername/quantbench/internal/models"
	"github.com/yourusername/quantbench/internal/strategy"
)

// WindowStatus flags whether a window produced an out-of-sample result
type WindowStatus string

const (
	WindowStatusOK      WindowStatus = "ok"
	WindowStatusSkipped WindowStatus = "skipped"
)

// WindowResult holds the outcome of one walk-forward window. A skipped
// window (empty grid, every candidate disqualified) carries nil params and
// results; it never aborts the overall run.
type WindowResult struct {
	Window      Window          `json:"window"`
	InSample    *Result         `json:"-"`
	OutOfSample *Result         `json:"-"`
	ParamsUsed  strategy.Params `json:"params_used"`
	Status      WindowStatus    `json:"status"`
	Note        string          `json:"note,omitempty"`
}

// WalkForwardResult aggregates all windows. Aggregated fields are built
// strictly from out-of-sample trades and equity, in window order; in-sample
// data never leaks into them.
type WalkForwardResult struct {
	StrategyName          string               `json:"strategy_name"`
	Windows               []WindowResult       `json:"windows"`
	AggregatedMetrics     PerformanceMetrics   `json:"aggregated_metrics"`
	AggregatedTrades      []*models.Trade      `json:"aggregated_trades"`
	AggregatedEquityCurve EquityCurve          `json:"aggregated_equity_curve"`
	ParameterStability    []ParameterStability `json:"parameter_stability"`
}

// WalkForwardEngine orchestrates per-window grid search and out-of-sample
// validation
type WalkForwardEngine struct {
	btConfig BacktestConfig
	logger   *logrus.Logger
	workers  int
}

// NewWalkForwardEngine creates a walk-forward engine. workers bounds the
// grid-search pool; values below 1 run candidates sequentially.
func NewWalkForwardEngine(btConfig BacktestConfig, logger *logrus.Logger, workers int) (*WalkForwardEngine, error) {
	if err := btConfig.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	if workers < 1 {
		workers = 1
	}
	return &WalkForwardEngine{btConfig: btConfig, logger: logger, workers: workers}, nil
}

// candidate is one immutable grid-search work item
type candidate struct {
	index  int
	params strategy.Params
}

// candidateOutcome pairs a candidate with its in-sample run and score
type candidateOutcome struct {
	index  int
	params strategy.Params
	result *Result
	score  float64
	note   string
}

// Run performs walk-forward optimization over the full bar history. For each
// window it grid-searches the in-sample slice, picks the best candidate by
// the configured objective (ties broken by enumeration order), then runs
// exactly one out-of-sample backtest with the chosen parameters.
// Cancellation is checked between windows, never between bars.
func (w *WalkForwardEngine) Run(ctx context.Context, factory strategy.Factory, baseParams strategy.Params, bars []*models.PriceBar, cfg WalkForwardConfig) (*WalkForwardResult, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: strategy factory is required", models.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars to walk forward over", models.ErrInvalidConfig)
	}

	start := bars[0].Timestamp
	end := bars[len(bars)-1].Timestamp
	windows := GenerateWindows(start, end, cfg)
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: data range %s..%s too short for a single window",
			models.ErrInvalidConfig, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	var combos []strategy.Params
	if len(cfg.Grid) > 0 {
		expanded, err := cfg.Grid.Expand()
		if err != nil {
			return nil, err
		}
		combos = expanded
	}

	w.logger.WithFields(logrus.Fields{
		"windows":    len(windows),
		"candidates": len(combos),
		"objective":  cfg.Objective,
	}).Info("Starting walk-forward run")

	result := &WalkForwardResult{}
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wr := w.runWindow(ctx, factory, baseParams, bars, window, combos, cfg)
		if wr.Status == WindowStatusOK {
			metrics.RecordWalkForwardWindow("success")
		} else {
			metrics.RecordWalkForwardWindow("skipped")
		}
		result.Windows = append(result.Windows, wr)
	}

	w.aggregate(result)
	result.ParameterStability = AnalyzeParameterStability(result.Windows, cfg.Grid)

	if result.StrategyName != "" && result.AggregatedMetrics.SharpeRatio != nil {
		metrics.UpdateOOSSharpe(result.StrategyName, *result.AggregatedMetrics.SharpeRatio)
	}
	return result, nil
}

func (w *WalkForwardEngine) runWindow(ctx context.Context, factory strategy.Factory, baseParams strategy.Params, bars []*models.PriceBar, window Window, combos []strategy.Params, cfg WalkForwardConfig) WindowResult {
	log := w.logger.WithField("window", window.ID)
	isBars := sliceBars(bars, window.InSampleStart, window.InSampleEnd)
	oosBars := sliceBars(bars, window.OutOfSampleStart, window.OutOfSampleEnd)

	var chosen candidateOutcome
	if len(combos) == 0 {
		// No grid configured: forward-chained validation with base config
		outcome := w.runCandidate(ctx, factory, candidate{params: baseParams}, isBars, cfg)
		if outcome.result == nil {
			log.Warnf("In-sample run failed: %s", outcome.note)
			return WindowResult{Window: window, Status: WindowStatusSkipped, Note: outcome.note}
		}
		chosen = outcome
	} else {
		outcomes := w.searchGrid(ctx, factory, baseParams, combos, isBars, cfg)
		metrics.RecordGridCandidates(len(combos))
		best, ok := selectBest(outcomes)
		if !ok {
			log.Warn("Every candidate disqualified; recording null window")
			return WindowResult{
				Window: window,
				Status: WindowStatusSkipped,
				Note:   "all candidates disqualified by objective or trade threshold",
			}
		}
		chosen = best
	}

	oosOutcome := w.runCandidate(ctx, factory, candidate{params: chosen.params}, oosBars, cfg)
	if oosOutcome.result == nil {
		log.Warnf("Out-of-sample run failed: %s", oosOutcome.note)
		return WindowResult{
			Window:     window,
			InSample:   chosen.result,
			ParamsUsed: chosen.params,
			Status:     WindowStatusSkipped,
			Note:       oosOutcome.note,
		}
	}

	log.WithFields(logrus.Fields{
		"score":      chosen.score,
		"oos_trades": len(oosOutcome.result.Trades),
	}).Debug("Window completed")

	return WindowResult{
		Window:      window,
		InSample:    chosen.result,
		OutOfSample: oosOutcome.result,
		ParamsUsed:  chosen.params,
		Status:      WindowStatusOK,
	}
}

// searchGrid evaluates every candidate on the in-sample slice using a
// bounded worker pool. Each worker constructs its own strategy instance and
// results are collected by candidate index, so selection is deterministic
// regardless of completion order.
func (w *WalkForwardEngine) searchGrid(ctx context.Context, factory strategy.Factory, baseParams strategy.Params, combos []strategy.Params, isBars []*models.PriceBar, cfg WalkForwardConfig) []candidateOutcome {
	jobs := make(chan candidate)
	outcomes := make([]candidateOutcome, len(combos))

	var wg sync.WaitGroup
	workers := w.workers
	if workers > len(combos) {
		workers = len(combos)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				merged := baseParams.Merge(job.params)
				outcomes[job.index] = w.runCandidate(ctx, factory, candidate{index: job.index, params: merged}, isBars, cfg)
			}
		}()
	}
	for i, params := range combos {
		jobs <- candidate{index: i, params: params}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// runCandidate runs one in-sample or out-of-sample backtest and scores it.
// Any failure yields a disqualified outcome instead of an error so a single
// bad candidate cannot abort the walk-forward run.
func (w *WalkForwardEngine) runCandidate(ctx context.Context, factory strategy.Factory, c candidate, bars []*models.PriceBar, cfg WalkForwardConfig) candidateOutcome {
	outcome := candidateOutcome{index: c.index, params: c.params, score: math.Inf(-1)}

	strat, err := factory(uuid.New(), c.params)
	if err != nil {
		outcome.note = fmt.Sprintf("strategy construction failed: %v", err)
		return outcome
	}

	// Window slices are already cut; the per-run config carries no date
	// filter of its own.
	runConfig := w.btConfig
	runConfig.StartDate = nil
	runConfig.EndDate = nil
	engine, err := NewEngine(runConfig, w.logger)
	if err != nil {
		outcome.note = err.Error()
		return outcome
	}

	result, err := engine.Run(ctx, strat, bars)
	if err != nil {
		outcome.note = fmt.Sprintf("backtest failed: %v", err)
		return outcome
	}
	outcome.result = result

	if len(result.Trades) < cfg.MinTradesRequired {
		outcome.note = fmt.Sprintf("disqualified: %d trades below minimum %d", len(result.Trades), cfg.MinTradesRequired)
		return outcome
	}
	outcome.score = objectiveScore(cfg.Objective, result.Metrics)
	return outcome
}

// selectBest picks the highest-scoring candidate; ties keep the earliest
// enumeration index. Returns false when every candidate is disqualified.
func selectBest(outcomes []candidateOutcome) (candidateOutcome, bool) {
	best := candidateOutcome{index: -1, score: math.Inf(-1)}
	for _, o := range outcomes {
		if o.result == nil || math.IsInf(o.score, -1) {
			continue
		}
		if best.index < 0 || o.score > best.score {
			best = o
		}
	}
	return best, best.index >= 0
}

// objectiveScore maps metrics to a candidate score. Undefined metrics
// disqualify the candidate rather than scoring as zero.
func objectiveScore(obj Objective, m PerformanceMetrics) float64 {
	switch obj {
	case ObjectiveSharpeRatio:
		if m.SharpeRatio == nil {
			return math.Inf(-1)
		}
		return *m.SharpeRatio
	case ObjectiveTotalReturn:
		return m.TotalReturnPct
	case ObjectiveProfitFactor:
		if m.ProfitFactor == nil {
			return math.Inf(-1)
		}
		return *m.ProfitFactor
	case ObjectiveWinRate:
		if m.WinRate == nil {
			return math.Inf(-1)
		}
		return *m.WinRate
	case ObjectiveMaxDrawdown:
		// MaxDrawdownPct is non-positive; maximizing it minimizes drawdown
		return m.MaxDrawdownPct
	default:
		return math.Inf(-1)
	}
}

// aggregate stitches out-of-sample equity and trades across windows. Each
// window's curve is rescaled to continue from the previous window's ending
// equity, so the stitched curve compounds like a single account.
func (w *WalkForwardEngine) aggregate(result *WalkForwardResult) {
	one := decimal.NewFromInt(1)
	chainScale := one
	var prevEnd decimal.Decimal

	for _, wr := range result.Windows {
		if wr.Status != WindowStatusOK || wr.OutOfSample == nil {
			continue
		}
		if result.StrategyName == "" {
			result.StrategyName = wr.OutOfSample.StrategyName
		}
		curve := wr.OutOfSample.EquityCurve
		if len(curve) == 0 {
			continue
		}
		if !prevEnd.IsZero() && w.btConfig.InitialCapital.IsPositive() {
			chainScale = prevEnd.Div(w.btConfig.InitialCapital)
		}
		for _, p := range curve {
			result.AggregatedEquityCurve = append(result.AggregatedEquityCurve, EquityPoint{
				Time:          p.Time,
				Cash:          p.Cash.Mul(chainScale),
				PositionValue: p.PositionValue.Mul(chainScale),
				Equity:        p.Equity.Mul(chainScale),
			})
		}
		prevEnd = result.AggregatedEquityCurve[len(result.AggregatedEquityCurve)-1].Equity
		result.AggregatedTrades = append(result.AggregatedTrades, wr.OutOfSample.Trades...)
	}

	result.AggregatedMetrics = CalculateMetrics(result.AggregatedEquityCurve, result.AggregatedTrades, w.btConfig.InitialCapital)
}
