package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

// Mode indicates how a strategy instance is being driven
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModeLive     Mode = "live"
)

// Strategy defines the lifecycle hooks the backtest engine drives, in fixed
// order once per bar: OnMarketData, GenerateSignals, RiskCheck. The engine
// never inspects strategy internals.
type Strategy interface {
	Name() string
	Initialize(mode Mode) error
	OnMarketData(bar *models.PriceBar)
	GenerateSignals(state PortfolioState) []Signal
	RiskCheck(signals []Signal, state PortfolioState) []models.Order
	Parameters() Params
}

// Factory constructs a fresh strategy instance for a parameter combination.
// Grid-search workers must each receive their own instance; strategies are
// stateful across bars and must not be shared.
type Factory func(id uuid.UUID, params Params) (Strategy, error)

// PortfolioState is the temporal-safe snapshot handed to a strategy each
// bar. PositionQty is signed: positive long, negative short, zero flat.
type PortfolioState struct {
	Timestamp     time.Time
	Cash          decimal.Decimal
	PositionQty   decimal.Decimal
	AvgEntryPrice decimal.Decimal
	LastClose     decimal.Decimal
	Equity        decimal.Decimal
}

// IsFlat reports whether no position is open
func (s PortfolioState) IsFlat() bool {
	return s.PositionQty.IsZero()
}

// IsLong reports whether a long position is open
func (s PortfolioState) IsLong() bool {
	return s.PositionQty.IsPositive()
}

// IsShort reports whether a short position is open
func (s PortfolioState) IsShort() bool {
	return s.PositionQty.IsNegative()
}

// SignalType classifies a trading signal
type SignalType string

const (
	SignalEnterLong  SignalType = "ENTER_LONG"
	SignalExitLong   SignalType = "EXIT_LONG"
	SignalEnterShort SignalType = "ENTER_SHORT"
	SignalExitShort  SignalType = "EXIT_SHORT"
)

// Signal represents a trading intent emitted by GenerateSignals, before the
// risk check converts it into sized orders
type Signal struct {
	ID       string     `json:"id"`
	Symbol   string     `json:"symbol"`
	Type     SignalType `json:"type"`
	Strength float64    `json:"strength"`
	Reason   string     `json:"reason"`
}
