package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/quantbench/internal/models"
)

// Result represents one completed backtest run. It is owned exclusively by
// its creator and never mutated after construction.
type Result struct {
	RunID        uuid.UUID          `json:"run_id"`
	StrategyName string             `json:"strategy_name"`
	Config       BacktestConfig     `json:"-"`
	EquityCurve  EquityCurve        `json:"equity_curve"`
	Trades       []*models.Trade    `json:"trades"`
	Metrics      PerformanceMetrics `json:"metrics"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	BarsTotal    int                `json:"bars_total"`
	BarsDropped  int                `json:"bars_dropped"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

// FinalEquity returns the last recorded equity, or the initial capital for
// an empty run
func (r *Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		v, _ := r.Config.InitialCapital.Float64()
		return v
	}
	v, _ := r.EquityCurve[len(r.EquityCurve)-1].Equity.Float64()
	return v
}
