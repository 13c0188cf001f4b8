package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

var bps = decimal.NewFromInt(10000)

// SimulateFill computes the execution price for an order against the bar it
// was generated on. Orders fill only at the bar close, adjusted by slippage:
// buys pay up, sells receive less. Filling against the bar's open, high or
// low would imply foresight the strategy did not have.
func SimulateFill(order models.Order, bar *models.PriceBar, slippageBps decimal.Decimal) (decimal.Decimal, error) {
	if err := order.Validate(); err != nil {
		return decimal.Zero, err
	}
	if bar == nil || !bar.Close.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no executable close price", models.ErrOrderRejected)
	}

	adjustment := slippageBps.Div(bps)
	var fillPrice decimal.Decimal
	if order.Side == models.OrderSideBuy {
		fillPrice = bar.Close.Mul(decimal.NewFromInt(1).Add(adjustment))
	} else {
		fillPrice = bar.Close.Mul(decimal.NewFromInt(1).Sub(adjustment))
	}

	if !fillPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: computed fill price %s is not positive", models.ErrOrderRejected, fillPrice)
	}
	return fillPrice, nil
}
