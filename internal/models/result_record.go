package models

import (
	"time"

	"github.com/google/uuid"
)

// RunType distinguishes persisted single runs from walk-forward runs
type RunType string

const (
	RunTypeBacktest    RunType = "backtest"
	RunTypeWalkForward RunType = "walk_forward"
)

// ResultRecord is the persisted summary of a completed run. FullResults
// holds the complete JSON report; the scalar columns exist for querying.
type ResultRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RunType        RunType   `json:"run_type" db:"run_type"`
	StrategyName   string    `json:"strategy_name" db:"strategy_name"`
	Symbol         string    `json:"symbol" db:"symbol"`
	StartDate      time.Time `json:"start_date" db:"start_date"`
	EndDate        time.Time `json:"end_date" db:"end_date"`
	InitialCapital float64   `json:"initial_capital" db:"initial_capital"`
	FinalEquity    float64   `json:"final_equity" db:"final_equity"`
	TotalReturnPct float64   `json:"total_return_pct" db:"total_return_pct"`
	SharpeRatio    *float64  `json:"sharpe_ratio" db:"sharpe_ratio"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct" db:"max_drawdown_pct"`
	TotalTrades    int       `json:"total_trades" db:"total_trades"`
	WinRate        *float64  `json:"win_rate" db:"win_rate"`
	ProfitFactor   *float64  `json:"profit_factor" db:"profit_factor"`
	Params         []byte    `json:"params" db:"params"`
	FullResults    []byte    `json:"full_results" db:"full_results"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
