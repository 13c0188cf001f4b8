package strategy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

// SMACrossStrategy trades simple moving average crossovers: enter long when
// the fast average crosses above the slow one, exit when it crosses back
// below. Optionally mirrors the logic with short positions.
type SMACrossStrategy struct {
	BaseStrategy
	id         uuid.UUID
	fastPeriod int
	slowPeriod int
	allowShort bool
	params     Params

	fast     *SMA
	slow     *SMA
	prevFast float64
	prevSlow float64
	prevSet  bool
	lastBar  *models.PriceBar
	barCount int
}

// NewSMACross constructs an SMA crossover strategy from parameters.
// Recognized parameters: fast_period, slow_period, position_frac, allow_short.
func NewSMACross(id uuid.UUID, params Params) (Strategy, error) {
	fast := params.Int("fast_period", 20)
	slow := params.Int("slow_period", 50)
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("%w: sma periods must be positive", models.ErrInvalidConfig)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast period %d must be below slow period %d", models.ErrInvalidConfig, fast, slow)
	}
	s := &SMACrossStrategy{
		id:         id,
		fastPeriod: fast,
		slowPeriod: slow,
		allowShort: params.String("allow_short", "no") == "yes",
		params:     params.Clone(),
	}
	s.MaxPositionFrac = params.Float("position_frac", 0.95)
	return s, nil
}

// Name returns the strategy name
func (s *SMACrossStrategy) Name() string {
	return fmt.Sprintf("sma_cross_%d_%d", s.fastPeriod, s.slowPeriod)
}

// ID returns the instance identifier
func (s *SMACrossStrategy) ID() uuid.UUID {
	return s.id
}

// Initialize resets all rolling state for a fresh run
func (s *SMACrossStrategy) Initialize(mode Mode) error {
	_ = mode
	s.fast = NewSMA(s.fastPeriod)
	s.slow = NewSMA(s.slowPeriod)
	s.prevSet = false
	s.lastBar = nil
	s.barCount = 0
	return nil
}

// OnMarketData feeds the bar close into the rolling averages
func (s *SMACrossStrategy) OnMarketData(bar *models.PriceBar) {
	if err := s.ObserveBar(bar); err != nil {
		return
	}
	if s.fast.Ready() && s.slow.Ready() {
		s.prevFast = s.fast.Value()
		s.prevSlow = s.slow.Value()
		s.prevSet = true
	}
	close, _ := bar.Close.Float64()
	s.fast.Push(close)
	s.slow.Push(close)
	s.lastBar = bar
	s.barCount++
}

// GenerateSignals emits crossover signals for the current bar
func (s *SMACrossStrategy) GenerateSignals(state PortfolioState) []Signal {
	if s.lastBar == nil || !s.fast.Ready() || !s.slow.Ready() || !s.prevSet {
		return nil
	}

	fast := s.fast.Value()
	slow := s.slow.Value()
	crossedUp := s.prevFast <= s.prevSlow && fast > slow
	crossedDown := s.prevFast >= s.prevSlow && fast < slow

	var signals []Signal
	switch {
	case crossedUp:
		if state.IsShort() {
			signals = append(signals, s.signal(SignalExitShort, "fast SMA crossed above slow"))
		}
		if !state.IsLong() {
			signals = append(signals, s.signal(SignalEnterLong, "fast SMA crossed above slow"))
		}
	case crossedDown:
		if state.IsLong() {
			signals = append(signals, s.signal(SignalExitLong, "fast SMA crossed below slow"))
		}
		if s.allowShort && !state.IsShort() {
			signals = append(signals, s.signal(SignalEnterShort, "fast SMA crossed below slow"))
		}
	}
	return signals
}

// RiskCheck sizes approved signals into concrete orders
func (s *SMACrossStrategy) RiskCheck(signals []Signal, state PortfolioState) []models.Order {
	if s.lastBar == nil {
		return nil
	}
	price := s.lastBar.Close
	var orders []models.Order
	for _, sig := range signals {
		switch sig.Type {
		case SignalEnterLong:
			qty := s.SizeEntry(state, price, decimal.Zero)
			if qty.IsPositive() {
				orders = append(orders, models.Order{Side: models.OrderSideBuy, Quantity: qty, SignalID: sig.ID, Reason: sig.Reason})
			}
		case SignalExitLong:
			if state.IsLong() {
				orders = append(orders, models.Order{Side: models.OrderSideSell, Quantity: state.PositionQty, SignalID: sig.ID, Reason: sig.Reason})
			}
		case SignalEnterShort:
			qty := s.SizeEntry(state, price, decimal.Zero)
			if qty.IsPositive() {
				orders = append(orders, models.Order{Side: models.OrderSideSell, Quantity: qty, SignalID: sig.ID, Reason: sig.Reason})
			}
		case SignalExitShort:
			if state.IsShort() {
				orders = append(orders, models.Order{Side: models.OrderSideBuy, Quantity: state.PositionQty.Neg(), SignalID: sig.ID, Reason: sig.Reason})
			}
		}
	}
	return orders
}

// Parameters returns the construction parameters for stability tracking
func (s *SMACrossStrategy) Parameters() Params {
	return s.params.Clone()
}

func (s *SMACrossStrategy) signal(kind SignalType, reason string) Signal {
	return Signal{
		ID:     fmt.Sprintf("%s-%d-%s", s.id, s.barCount, kind),
		Symbol: s.lastBar.Symbol,
		Type:   kind,
		Reason: reason,
	}
}
