package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

func testBar(close float64) *models.PriceBar {
	c := decimal.NewFromFloat(close)
	return &models.PriceBar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    decimal.NewFromInt(1000),
	}
}

func TestSimulateFillBuySlippage(t *testing.T) {
	order := models.Order{Side: models.OrderSideBuy, Quantity: decimal.NewFromInt(10)}
	price, err := SimulateFill(order, testBar(100), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("SimulateFill failed: %v", err)
	}
	// 100 * (1 + 5/10000) = 100.05
	if !price.Equal(decimal.RequireFromString("100.05")) {
		t.Fatalf("expected fill at 100.05, got %s", price)
	}
}

func TestSimulateFillSellSlippage(t *testing.T) {
	order := models.Order{Side: models.OrderSideSell, Quantity: decimal.NewFromInt(10)}
	price, err := SimulateFill(order, testBar(100), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("SimulateFill failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("99.95")) {
		t.Fatalf("expected fill at 99.95, got %s", price)
	}
}

func TestSimulateFillZeroSlippage(t *testing.T) {
	order := models.Order{Side: models.OrderSideBuy, Quantity: decimal.NewFromInt(1)}
	price, err := SimulateFill(order, testBar(42.5), decimal.Zero)
	if err != nil {
		t.Fatalf("SimulateFill failed: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(42.5)) {
		t.Fatalf("expected fill at close, got %s", price)
	}
}

func TestSimulateFillRejectsBadOrder(t *testing.T) {
	order := models.Order{Side: models.OrderSideBuy, Quantity: decimal.Zero}
	if _, err := SimulateFill(order, testBar(100), decimal.Zero); !errors.Is(err, models.ErrOrderRejected) {
		t.Fatalf("expected order rejection, got %v", err)
	}
}

func TestSimulateFillRejectsNonPositiveClose(t *testing.T) {
	order := models.Order{Side: models.OrderSideSell, Quantity: decimal.NewFromInt(1)}
	bar := testBar(100)
	bar.Close = decimal.Zero
	if _, err := SimulateFill(order, bar, decimal.Zero); !errors.Is(err, models.ErrOrderRejected) {
		t.Fatalf("expected order rejection, got %v", err)
	}
}
