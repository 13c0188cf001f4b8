package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

func barAt(day int, close float64) *models.PriceBar {
	c := decimal.NewFromFloat(close)
	return &models.PriceBar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    decimal.NewFromInt(1000),
	}
}

func buy(qty float64) models.Order {
	return models.Order{Side: models.OrderSideBuy, Quantity: decimal.NewFromFloat(qty)}
}

func sell(qty float64) models.Order {
	return models.Order{Side: models.OrderSideSell, Quantity: decimal.NewFromFloat(qty)}
}

// 100 shares bought at 100 and sold at 105 with a $1 commission per fill
// nets exactly 500 - 2 = 498.
func TestRoundTripProfitAndLoss(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(100000), decimal.NewFromInt(1))

	if err := tracker.Apply(buy(100), decimal.NewFromInt(100), barAt(0, 100)); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := tracker.Apply(sell(100), decimal.NewFromInt(105), barAt(1, 105)); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	trades := tracker.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].ProfitLoss.Equal(decimal.NewFromInt(498)) {
		t.Fatalf("expected P&L 498, got %s", trades[0].ProfitLoss)
	}
	if !trades[0].Commission.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected commission 2, got %s", trades[0].Commission)
	}
	if !tracker.Cash().Equal(decimal.NewFromInt(100498)) {
		t.Fatalf("expected cash 100498, got %s", tracker.Cash())
	}
}

func TestWeightedAverageEntry(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(100000), decimal.Zero)

	if err := tracker.Apply(buy(100), decimal.NewFromInt(100), barAt(0, 100)); err != nil {
		t.Fatalf("first entry failed: %v", err)
	}
	if err := tracker.Apply(buy(50), decimal.NewFromInt(110), barAt(1, 110)); err != nil {
		t.Fatalf("second entry failed: %v", err)
	}

	// (100*100 + 50*110) / 150 = 103.33...
	state := tracker.Snapshot(barAt(2, 110))
	want := decimal.NewFromInt(15500).Div(decimal.NewFromInt(150))
	if !state.AvgEntryPrice.Equal(want) {
		t.Fatalf("expected avg entry %s, got %s", want, state.AvgEntryPrice)
	}
	if len(tracker.Trades()) != 0 {
		t.Fatalf("scaling in must not realize trades")
	}
}

func TestPartialCloseProRataCommission(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(100000), decimal.NewFromInt(2))

	if err := tracker.Apply(buy(100), decimal.NewFromInt(100), barAt(0, 100)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	if err := tracker.Apply(sell(50), decimal.NewFromInt(110), barAt(1, 110)); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := tracker.Apply(sell(50), decimal.NewFromInt(110), barAt(2, 110)); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	trades := tracker.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Each close carries half the $2 entry commission plus its own $2 exit.
	for i, trade := range trades {
		if !trade.Commission.Equal(decimal.NewFromInt(3)) {
			t.Fatalf("trade %d: expected commission 3, got %s", i, trade.Commission)
		}
	}
	total := trades[0].Commission.Add(trades[1].Commission)
	if !total.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("round-trip commission should sum to 6, got %s", total)
	}
}

func TestShortRoundTrip(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(100000), decimal.NewFromInt(1))

	if err := tracker.Apply(sell(100), decimal.NewFromInt(100), barAt(0, 100)); err != nil {
		t.Fatalf("short open failed: %v", err)
	}
	state := tracker.Snapshot(barAt(0, 100))
	if !state.IsShort() {
		t.Fatalf("expected short position, qty %s", state.PositionQty)
	}

	if err := tracker.Apply(buy(100), decimal.NewFromInt(95), barAt(1, 95)); err != nil {
		t.Fatalf("short cover failed: %v", err)
	}

	trades := tracker.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Direction != models.TradeDirectionShort {
		t.Fatalf("expected short trade, got %s", trades[0].Direction)
	}
	// (100 - 95) * 100 - 2 = 498
	if !trades[0].ProfitLoss.Equal(decimal.NewFromInt(498)) {
		t.Fatalf("expected P&L 498, got %s", trades[0].ProfitLoss)
	}
}

func TestOversellRejected(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(100000), decimal.Zero)

	if err := tracker.Apply(buy(10), decimal.NewFromInt(100), barAt(0, 100)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	err := tracker.Apply(sell(20), decimal.NewFromInt(100), barAt(1, 100))
	if !errors.Is(err, models.ErrOrderRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}

	// Rejection must leave state untouched.
	state := tracker.Snapshot(barAt(1, 100))
	if !state.PositionQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("position changed on rejected order: %s", state.PositionQty)
	}
	if len(tracker.Trades()) != 0 {
		t.Fatalf("rejected order must not realize trades")
	}
}

func TestInsufficientCashRejected(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(500), decimal.Zero)

	err := tracker.Apply(buy(100), decimal.NewFromInt(100), barAt(0, 100))
	if !errors.Is(err, models.ErrOrderRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !tracker.Cash().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("cash changed on rejected order: %s", tracker.Cash())
	}
}

func TestMarkToMarketEquityContinuity(t *testing.T) {
	tracker := NewTracker("AAPL", decimal.NewFromInt(10000), decimal.Zero)

	tracker.MarkToMarket(barAt(0, 100))
	if err := tracker.Apply(buy(50), decimal.NewFromInt(100), barAt(1, 100)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}
	tracker.MarkToMarket(barAt(1, 100))
	tracker.MarkToMarket(barAt(2, 110))

	curve := tracker.Curve()
	if len(curve) != 3 {
		t.Fatalf("expected one equity point per bar, got %d", len(curve))
	}
	for i, point := range curve {
		if !point.Equity.Equal(point.Cash.Add(point.PositionValue)) {
			t.Fatalf("point %d: equity %s != cash %s + position %s", i, point.Equity, point.Cash, point.PositionValue)
		}
	}
	// 50 shares marked from 100 to 110 gains 500.
	gain := curve[2].Equity.Sub(curve[1].Equity)
	if !gain.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected 500 mark-to-market gain, got %s", gain)
	}
}
