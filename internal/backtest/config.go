package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/config"
	"github.com/yourusername/quantbench/internal/models"
)

// BacktestConfig holds the immutable inputs of a single simulation run
type BacktestConfig struct {
	Symbol             string
	InitialCapital     decimal.Decimal
	CommissionPerFill  decimal.Decimal
	SlippageBps        decimal.Decimal
	StartDate          *time.Time
	EndDate            *time.Time
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("%w: backtest config is required", models.ErrInvalidConfig)
	}

	bt := BacktestConfig{
		Symbol:            cfg.Symbol,
		InitialCapital:    decimal.NewFromFloat(cfg.InitialCapital),
		CommissionPerFill: decimal.NewFromFloat(cfg.CommissionPerFill),
		SlippageBps:       decimal.NewFromFloat(cfg.SlippageBps),
	}
	if cfg.StartDate != "" {
		start, err := time.Parse("2006-01-02", cfg.StartDate)
		if err != nil {
			return BacktestConfig{}, fmt.Errorf("%w: invalid start date: %v", models.ErrInvalidConfig, err)
		}
		bt.StartDate = &start
	}
	if cfg.EndDate != "" {
		end, err := time.Parse("2006-01-02", cfg.EndDate)
		if err != nil {
			return BacktestConfig{}, fmt.Errorf("%w: invalid end date: %v", models.ErrInvalidConfig, err)
		}
		bt.EndDate = &end
	}

	return bt, bt.Validate()
}

// WalkForwardFromConfig converts app config to walk-forward config
func WalkForwardFromConfig(cfg *config.WalkForwardConfig) (WalkForwardConfig, error) {
	if cfg == nil {
		return WalkForwardConfig{}, fmt.Errorf("%w: walk-forward config is required", models.ErrInvalidConfig)
	}

	wf := WalkForwardConfig{
		InSampleDays:      cfg.InSampleDays,
		OutOfSampleDays:   cfg.OutOfSampleDays,
		StepDays:          cfg.StepDays,
		WindowType:        WindowType(cfg.WindowType),
		Objective:         Objective(cfg.Objective),
		MinTradesRequired: cfg.MinTradesRequired,
	}
	for _, p := range cfg.Grid {
		wf.Grid = append(wf.Grid, ParameterRange{
			Name:   p.Name,
			Type:   ParamType(p.Type),
			Min:    p.Min,
			Max:    p.Max,
			Step:   p.Step,
			Values: p.Values,
		})
	}
	return wf, wf.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if !b.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial capital must be positive", models.ErrInvalidConfig)
	}
	if b.CommissionPerFill.IsNegative() {
		return fmt.Errorf("%w: commission cannot be negative", models.ErrInvalidConfig)
	}
	if b.SlippageBps.IsNegative() {
		return fmt.Errorf("%w: slippage cannot be negative", models.ErrInvalidConfig)
	}
	if b.StartDate != nil && b.EndDate != nil && b.StartDate.After(*b.EndDate) {
		return fmt.Errorf("%w: start date must be before end date", models.ErrInvalidConfig)
	}
	return nil
}
