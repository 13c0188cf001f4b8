package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

// BaseStrategy provides shared functionality for strategies
type BaseStrategy struct {
	MaxPositionFrac float64
	lastBarTime     time.Time
}

// SizeEntry calculates a whole-share entry quantity from available cash.
// The reserve covers commission and slippage so the fill cannot overdraw.
func (b *BaseStrategy) SizeEntry(state PortfolioState, price decimal.Decimal, reserve decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	frac := b.MaxPositionFrac
	if frac <= 0 || frac > 1 {
		frac = 1.0
	}
	budget := state.Cash.Mul(decimal.NewFromFloat(frac)).Sub(reserve)
	if !budget.IsPositive() {
		return decimal.Zero
	}
	qty := budget.Div(price).Floor()
	if !qty.IsPositive() {
		return decimal.Zero
	}
	return qty
}

// ObserveBar records the bar time and rejects out-of-order data. Guards the
// strategy against lookahead when a feed misbehaves.
func (b *BaseStrategy) ObserveBar(bar *models.PriceBar) error {
	if bar.Timestamp.Before(b.lastBarTime) {
		return fmt.Errorf("%w: bar at %s arrived after %s", models.ErrBadBar,
			bar.Timestamp.Format(time.RFC3339), b.lastBarTime.Format(time.RFC3339))
	}
	b.lastBarTime = bar.Timestamp
	return nil
}

// SMA is a fixed-size rolling simple moving average over close prices
type SMA struct {
	period int
	values []float64
	sum    float64
}

// NewSMA creates a rolling SMA with the given period
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Push adds a value, evicting the oldest once the window is full
func (s *SMA) Push(v float64) {
	s.values = append(s.values, v)
	s.sum += v
	if len(s.values) > s.period {
		s.sum -= s.values[0]
		s.values = s.values[1:]
	}
}

// Ready reports whether a full window has been observed
func (s *SMA) Ready() bool {
	return len(s.values) >= s.period
}

// Value returns the current average; 0 until Ready
func (s *SMA) Value() float64 {
	if !s.Ready() || s.period == 0 {
		return 0
	}
	return s.sum / float64(s.period)
}
