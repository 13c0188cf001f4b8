package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
	"github.com/yourusername/quantbench/internal/strategy"
)

// Tracker maintains cash, the open position and the equity curve through a
// run. It is a per-run value, FLAT -> LONG -> FLAT (or the mirrored SHORT
// path), never shared between runs.
type Tracker struct {
	symbol            string
	commissionPerFill decimal.Decimal

	cash            decimal.Decimal
	qty             decimal.Decimal // signed: positive long, negative short
	avgEntry        decimal.Decimal
	entryTime       time.Time
	entryCommission decimal.Decimal // unallocated commission from entry fills

	trades []*models.Trade
	curve  EquityCurve
}

// NewTracker initializes tracker state for a run
func NewTracker(symbol string, initialCapital, commissionPerFill decimal.Decimal) *Tracker {
	return &Tracker{
		symbol:            symbol,
		commissionPerFill: commissionPerFill,
		cash:              initialCapital,
		qty:               decimal.Zero,
		avgEntry:          decimal.Zero,
		entryCommission:   decimal.Zero,
	}
}

// Apply executes a filled order against the position state machine. A
// returned error means the order was rejected; cash and position are
// untouched and the bar's equity point is still recorded by the caller.
func (t *Tracker) Apply(order models.Order, fillPrice decimal.Decimal, bar *models.PriceBar) error {
	switch order.Side {
	case models.OrderSideBuy:
		if t.qty.IsNegative() {
			return t.closeShort(order.Quantity, fillPrice, bar)
		}
		return t.openLong(order.Quantity, fillPrice, bar)
	case models.OrderSideSell:
		if t.qty.IsPositive() {
			return t.closeLong(order.Quantity, fillPrice, bar)
		}
		return t.openShort(order.Quantity, fillPrice, bar)
	default:
		return fmt.Errorf("%w: unknown side %q", models.ErrOrderRejected, order.Side)
	}
}

func (t *Tracker) openLong(qty, price decimal.Decimal, bar *models.PriceBar) error {
	cost := qty.Mul(price).Add(t.commissionPerFill)
	if cost.GreaterThan(t.cash) {
		return fmt.Errorf("%w: cost %s exceeds cash %s", models.ErrOrderRejected, cost, t.cash)
	}
	t.enter(qty, price, bar)
	t.cash = t.cash.Sub(cost)
	return nil
}

func (t *Tracker) openShort(qty, price decimal.Decimal, bar *models.PriceBar) error {
	proceeds := qty.Mul(price).Sub(t.commissionPerFill)
	if proceeds.IsNegative() {
		return fmt.Errorf("%w: proceeds %s below commission", models.ErrOrderRejected, proceeds)
	}
	t.enter(qty.Neg(), price, bar)
	t.cash = t.cash.Add(proceeds)
	return nil
}

// enter updates the weighted-average entry basis; scaling into an existing
// position does not close a trade
func (t *Tracker) enter(signedQty, price decimal.Decimal, bar *models.PriceBar) {
	if t.qty.IsZero() {
		t.entryTime = bar.Timestamp
		t.avgEntry = price
	} else {
		held := t.qty.Abs()
		added := signedQty.Abs()
		t.avgEntry = t.avgEntry.Mul(held).Add(price.Mul(added)).Div(held.Add(added))
	}
	t.qty = t.qty.Add(signedQty)
	t.entryCommission = t.entryCommission.Add(t.commissionPerFill)
}

func (t *Tracker) closeLong(qty, price decimal.Decimal, bar *models.PriceBar) error {
	if qty.GreaterThan(t.qty) {
		return fmt.Errorf("%w: sell quantity %s exceeds held %s", models.ErrOrderRejected, qty, t.qty)
	}
	t.cash = t.cash.Add(qty.Mul(price)).Sub(t.commissionPerFill)
	t.realize(models.TradeDirectionLong, qty, price, bar)
	t.qty = t.qty.Sub(qty)
	t.resetIfFlat()
	return nil
}

func (t *Tracker) closeShort(qty, price decimal.Decimal, bar *models.PriceBar) error {
	held := t.qty.Neg()
	if qty.GreaterThan(held) {
		return fmt.Errorf("%w: buy quantity %s exceeds short %s", models.ErrOrderRejected, qty, held)
	}
	t.cash = t.cash.Sub(qty.Mul(price)).Sub(t.commissionPerFill)
	t.realize(models.TradeDirectionShort, qty, price, bar)
	t.qty = t.qty.Add(qty)
	t.resetIfFlat()
	return nil
}

// realize books a Trade for the closed portion. Entry commission is
// allocated pro-rata so partial closes sum to the full round-trip cost.
func (t *Tracker) realize(direction models.TradeDirection, qty, exitPrice decimal.Decimal, bar *models.PriceBar) {
	held := t.qty.Abs()
	entryShare := t.entryCommission
	if !qty.Equal(held) && held.IsPositive() {
		entryShare = t.entryCommission.Mul(qty).Div(held)
	}
	t.entryCommission = t.entryCommission.Sub(entryShare)

	totalCommission := entryShare.Add(t.commissionPerFill)
	var gross decimal.Decimal
	if direction == models.TradeDirectionLong {
		gross = exitPrice.Sub(t.avgEntry).Mul(qty)
	} else {
		gross = t.avgEntry.Sub(exitPrice).Mul(qty)
	}

	t.trades = append(t.trades, &models.Trade{
		Symbol:     t.symbol,
		Direction:  direction,
		EntryTime:  t.entryTime,
		ExitTime:   bar.Timestamp,
		EntryPrice: t.avgEntry,
		ExitPrice:  exitPrice,
		Quantity:   qty,
		Commission: totalCommission,
		ProfitLoss: gross.Sub(totalCommission),
	})
}

func (t *Tracker) resetIfFlat() {
	if t.qty.IsZero() {
		t.avgEntry = decimal.Zero
		t.entryCommission = decimal.Zero
		t.entryTime = time.Time{}
	}
}

// MarkToMarket appends exactly one equity point for the bar, whether or not
// any order executed on it
func (t *Tracker) MarkToMarket(bar *models.PriceBar) EquityPoint {
	positionValue := t.qty.Mul(bar.Close)
	point := EquityPoint{
		Time:          bar.Timestamp,
		Cash:          t.cash,
		PositionValue: positionValue,
		Equity:        t.cash.Add(positionValue),
	}
	t.curve = append(t.curve, point)
	return point
}

// Snapshot builds the portfolio state handed to the strategy for a bar
func (t *Tracker) Snapshot(bar *models.PriceBar) strategy.PortfolioState {
	return strategy.PortfolioState{
		Timestamp:     bar.Timestamp,
		Cash:          t.cash,
		PositionQty:   t.qty,
		AvgEntryPrice: t.avgEntry,
		LastClose:     bar.Close,
		Equity:        t.cash.Add(t.qty.Mul(bar.Close)),
	}
}

// Trades returns the realized trades in close order
func (t *Tracker) Trades() []*models.Trade {
	return t.trades
}

// Curve returns the equity curve recorded so far
func (t *Tracker) Curve() EquityCurve {
	return t.curve
}

// Cash returns current cash
func (t *Tracker) Cash() decimal.Decimal {
	return t.cash
}
