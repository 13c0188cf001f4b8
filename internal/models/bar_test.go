package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func bar(open, high, low, close, volume float64) *PriceBar {
	return &PriceBar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:      decimal.NewFromFloat(open),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Close:     decimal.NewFromFloat(close),
		Volume:    decimal.NewFromFloat(volume),
	}
}

func TestBarValidate(t *testing.T) {
	cases := []struct {
		name  string
		bar   *PriceBar
		valid bool
	}{
		{"valid", bar(100, 105, 99, 104, 1000), true},
		{"flat bar", bar(100, 100, 100, 100, 0), true},
		{"high below low", bar(100, 98, 99, 100, 1000), false},
		{"high below open", bar(106, 105, 99, 104, 1000), false},
		{"high below close", bar(100, 105, 99, 106, 1000), false},
		{"low above open", bar(98, 105, 99, 104, 1000), false},
		{"low above close", bar(100, 105, 99, 98, 1000), false},
		{"negative volume", bar(100, 105, 99, 104, -1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bar.Validate()
			if tc.valid && err != nil {
				t.Fatalf("expected valid bar, got %v", err)
			}
			if !tc.valid {
				if !errors.Is(err, ErrBadBar) {
					t.Fatalf("expected ErrBadBar, got %v", err)
				}
			}
		})
	}
}

func TestBarValidateMissingTimestamp(t *testing.T) {
	b := bar(100, 105, 99, 104, 1000)
	b.Timestamp = time.Time{}
	if err := b.Validate(); !errors.Is(err, ErrBadBar) {
		t.Fatalf("expected ErrBadBar, got %v", err)
	}
}

func TestOrderValidate(t *testing.T) {
	valid := &Order{Side: OrderSideBuy, Quantity: decimal.NewFromInt(10)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}

	cases := []struct {
		name  string
		order *Order
	}{
		{"unknown side", &Order{Side: "HOLD", Quantity: decimal.NewFromInt(10)}},
		{"zero quantity", &Order{Side: OrderSideSell, Quantity: decimal.Zero}},
		{"negative quantity", &Order{Side: OrderSideBuy, Quantity: decimal.NewFromInt(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.order.Validate(); !errors.Is(err, ErrOrderRejected) {
				t.Fatalf("expected ErrOrderRejected, got %v", err)
			}
		})
	}
}

func TestTradeIsWinner(t *testing.T) {
	win := &Trade{ProfitLoss: decimal.NewFromInt(100)}
	loss := &Trade{ProfitLoss: decimal.NewFromInt(-100)}
	flat := &Trade{ProfitLoss: decimal.Zero}

	if !win.IsWinner() {
		t.Fatalf("positive P&L should win")
	}
	if loss.IsWinner() || flat.IsWinner() {
		t.Fatalf("non-positive P&L should not win")
	}
}
