package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/quantbench/internal/models"
)

// WindowType selects how the in-sample window advances between windows
type WindowType string

const (
	// WindowRolling slides a fixed-width in-sample window forward
	WindowRolling WindowType = "ROLLING"
	// WindowAnchored grows the in-sample window from a fixed start
	WindowAnchored WindowType = "ANCHORED"
)

// Objective selects the score used to rank in-sample candidates
type Objective string

const (
	ObjectiveSharpeRatio  Objective = "SHARPE_RATIO"
	ObjectiveTotalReturn  Objective = "TOTAL_RETURN"
	ObjectiveProfitFactor Objective = "PROFIT_FACTOR"
	ObjectiveWinRate      Objective = "WIN_RATE"
	ObjectiveMaxDrawdown  Objective = "MAX_DRAWDOWN"
)

// WalkForwardConfig configures walk-forward optimization
type WalkForwardConfig struct {
	InSampleDays      int
	OutOfSampleDays   int
	StepDays          int
	WindowType        WindowType
	Grid              ParameterGrid
	Objective         Objective
	MinTradesRequired int
}

// Validate validates walk-forward sizing before any simulation starts
func (c WalkForwardConfig) Validate() error {
	if c.InSampleDays <= 0 {
		return fmt.Errorf("%w: in-sample days must be positive", models.ErrInvalidConfig)
	}
	if c.OutOfSampleDays <= 0 {
		return fmt.Errorf("%w: out-of-sample days must be positive", models.ErrInvalidConfig)
	}
	if c.StepDays <= 0 {
		return fmt.Errorf("%w: step days must be positive", models.ErrInvalidConfig)
	}
	if c.StepDays < c.OutOfSampleDays {
		return fmt.Errorf("%w: step days %d below out-of-sample days %d would overlap out-of-sample ranges",
			models.ErrInvalidConfig, c.StepDays, c.OutOfSampleDays)
	}
	if c.WindowType != WindowRolling && c.WindowType != WindowAnchored {
		return fmt.Errorf("%w: unknown window type %q", models.ErrInvalidConfig, c.WindowType)
	}
	switch c.Objective {
	case ObjectiveSharpeRatio, ObjectiveTotalReturn, ObjectiveProfitFactor, ObjectiveWinRate, ObjectiveMaxDrawdown:
	default:
		return fmt.Errorf("%w: unknown objective %q", models.ErrInvalidConfig, c.Objective)
	}
	if c.MinTradesRequired < 0 {
		return fmt.Errorf("%w: min trades cannot be negative", models.ErrInvalidConfig)
	}
	return nil
}

// Window represents one walk-forward window. Ranges are half-open
// [start, end); each window's out-of-sample slice begins exactly where its
// in-sample slice ends.
type Window struct {
	ID               int       `json:"window_id"`
	InSampleStart    time.Time `json:"in_sample_start"`
	InSampleEnd      time.Time `json:"in_sample_end"`
	OutOfSampleStart time.Time `json:"out_of_sample_start"`
	OutOfSampleEnd   time.Time `json:"out_of_sample_end"`
}

// GenerateWindows partitions [start, end] into walk-forward windows.
// Consecutive out-of-sample ranges never overlap because Validate requires
// the step to be at least the out-of-sample width. The last window whose
// out-of-sample end would exceed the range is discarded rather than
// truncated; since slices are half-open, a bar at exactly the final
// timestamp never lands in an out-of-sample slice.
func GenerateWindows(start, end time.Time, cfg WalkForwardConfig) []Window {
	var windows []Window
	anchor := start

	for id := 0; ; id++ {
		offset := id * cfg.StepDays
		var isStart, isEnd time.Time
		if cfg.WindowType == WindowAnchored {
			isStart = anchor
			isEnd = anchor.AddDate(0, 0, cfg.InSampleDays+offset)
		} else {
			isStart = anchor.AddDate(0, 0, offset)
			isEnd = isStart.AddDate(0, 0, cfg.InSampleDays)
		}
		oosStart := isEnd
		oosEnd := oosStart.AddDate(0, 0, cfg.OutOfSampleDays)
		if oosEnd.After(end) {
			break
		}
		windows = append(windows, Window{
			ID:               id,
			InSampleStart:    isStart,
			InSampleEnd:      isEnd,
			OutOfSampleStart: oosStart,
			OutOfSampleEnd:   oosEnd,
		})
	}
	return windows
}

// sliceBars returns the bars with from <= timestamp < to. Bars must already
// be in timestamp order.
func sliceBars(bars []*models.PriceBar, from, to time.Time) []*models.PriceBar {
	lo := lowerBound(bars, from)
	hi := lowerBound(bars, to)
	return bars[lo:hi]
}

// lowerBound returns the first index whose timestamp is not before target
func lowerBound(bars []*models.PriceBar, target time.Time) int {
	lo, hi := 0, len(bars)
	for lo < hi {
		mid := (lo + hi) / 2
		if bars[mid].Timestamp.Before(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
