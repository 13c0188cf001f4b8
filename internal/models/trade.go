package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeDirection records whether the closed position was long or short
type TradeDirection string

const (
	TradeDirectionLong  TradeDirection = "LONG"
	TradeDirectionShort TradeDirection = "SHORT"
)

// Trade represents a completed round trip: a position (or part of one) that
// was opened and later closed. Immutable once created; owned by the backtest
// result it belongs to.
type Trade struct {
	Symbol     string          `json:"symbol"`
	Direction  TradeDirection  `json:"direction"`
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   time.Time       `json:"exit_time"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

// IsWinner reports whether the trade realized a positive P&L
func (t *Trade) IsWinner() bool {
	return t.ProfitLoss.IsPositive()
}
