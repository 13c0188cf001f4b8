package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order (BUY or SELL)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order represents a single-use trade intent approved by a strategy's risk
// check. Orders are consumed by the engine on the bar that produced them and
// are not persisted.
type Order struct {
	Side     OrderSide       `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	SignalID string          `json:"signal_id"`
	Reason   string          `json:"reason,omitempty"`
}

// Validate checks order invariants before fill simulation
func (o *Order) Validate() error {
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return fmt.Errorf("%w: unknown side %q", ErrOrderRejected, o.Side)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("%w: non-positive quantity %s", ErrOrderRejected, o.Quantity)
	}
	return nil
}
