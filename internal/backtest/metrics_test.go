package backtest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

func curveFrom(values ...float64) EquityCurve {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make(EquityCurve, 0, len(values))
	for i, v := range values {
		eq := decimal.NewFromFloat(v)
		curve = append(curve, EquityPoint{Time: start.AddDate(0, 0, i), Cash: eq, Equity: eq})
	}
	return curve
}

func tradeWithPnL(pnl float64) *models.Trade {
	return &models.Trade{
		Symbol:     "AAPL",
		Direction:  models.TradeDirectionLong,
		Quantity:   decimal.NewFromInt(1),
		ProfitLoss: decimal.NewFromFloat(pnl),
	}
}

func TestCalculateMetricsBasics(t *testing.T) {
	curve := curveFrom(100000, 100500, 101000, 100800, 101500)
	trades := []*models.Trade{tradeWithPnL(500), tradeWithPnL(-200), tradeWithPnL(1200)}

	m := CalculateMetrics(curve, trades, decimal.NewFromInt(100000))
	if m.TotalReturn != 1500 {
		t.Fatalf("expected total return 1500, got %f", m.TotalReturn)
	}
	if m.TotalTrades != 3 || m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Fatalf("unexpected trade counts: %+v", m)
	}
	if m.WinRate == nil || math.Abs(*m.WinRate-2.0/3.0) > 1e-12 {
		t.Fatalf("unexpected win rate: %v", m.WinRate)
	}
	if m.ProfitFactor == nil || math.Abs(*m.ProfitFactor-1700.0/200.0) > 1e-12 {
		t.Fatalf("unexpected profit factor: %v", m.ProfitFactor)
	}
	if m.MaxDrawdownPct >= 0 {
		t.Fatalf("drawdown must be negative, got %f", m.MaxDrawdownPct)
	}
}

func TestSharpeRatioNilOnShortCurve(t *testing.T) {
	m := CalculateMetrics(curveFrom(100000, 101000), nil, decimal.NewFromInt(100000))
	if m.SharpeRatio != nil {
		t.Fatalf("single-return curve must have nil sharpe, got %v", *m.SharpeRatio)
	}
}

func TestSharpeRatioNilOnZeroVariance(t *testing.T) {
	m := CalculateMetrics(curveFrom(100000, 100000, 100000, 100000), nil, decimal.NewFromInt(100000))
	if m.SharpeRatio != nil {
		t.Fatalf("flat curve must have nil sharpe, got %v", *m.SharpeRatio)
	}
}

func TestWinRateNilWithoutTrades(t *testing.T) {
	m := CalculateMetrics(curveFrom(100000, 101000, 102000), nil, decimal.NewFromInt(100000))
	if m.WinRate != nil {
		t.Fatalf("zero-trade run must have nil win rate")
	}
	if m.AvgWin != nil || m.AvgLoss != nil {
		t.Fatalf("zero-trade run must have nil averages")
	}
}

func TestProfitFactorInfiniteWithoutLosses(t *testing.T) {
	trades := []*models.Trade{tradeWithPnL(100), tradeWithPnL(50)}
	m := CalculateMetrics(curveFrom(100000, 100150), trades, decimal.NewFromInt(100000))
	if m.ProfitFactor == nil || !math.IsInf(*m.ProfitFactor, 1) {
		t.Fatalf("expected +Inf profit factor, got %v", m.ProfitFactor)
	}
}

func TestProfitFactorNilWithoutGrossEitherWay(t *testing.T) {
	trades := []*models.Trade{tradeWithPnL(0)}
	m := CalculateMetrics(curveFrom(100000, 100000), trades, decimal.NewFromInt(100000))
	if m.ProfitFactor != nil {
		t.Fatalf("expected nil profit factor, got %v", *m.ProfitFactor)
	}
}

func TestMetricsJSONSanitizesInfinity(t *testing.T) {
	trades := []*models.Trade{tradeWithPnL(100)}
	m := CalculateMetrics(curveFrom(100000, 100100), trades, decimal.NewFromInt(100000))

	out := m.ToJSON()
	if !strings.Contains(out, `"profit_factor":"inf"`) {
		t.Fatalf("expected inf sentinel in JSON, got %s", out)
	}
	if !strings.Contains(out, `"sharpe_ratio":null`) {
		t.Fatalf("expected null sharpe in JSON, got %s", out)
	}
}

func TestPeriodsPerYearInference(t *testing.T) {
	daily := curveFrom(1, 2, 3, 4, 5)
	if got := daily.PeriodsPerYear(); got != 252 {
		t.Fatalf("daily bars should annualize at 252, got %f", got)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weekly := EquityCurve{}
	for i := 0; i < 5; i++ {
		weekly = append(weekly, EquityPoint{Time: start.AddDate(0, 0, 7*i), Equity: decimal.NewFromInt(1)})
	}
	if got := weekly.PeriodsPerYear(); got != 52 {
		t.Fatalf("weekly bars should annualize at 52, got %f", got)
	}

	hourly := EquityCurve{}
	for i := 0; i < 5; i++ {
		hourly = append(hourly, EquityPoint{Time: start.Add(time.Duration(i) * time.Hour), Equity: decimal.NewFromInt(1)})
	}
	if got := hourly.PeriodsPerYear(); got != 365*24 {
		t.Fatalf("hourly bars should annualize at %d, got %f", 365*24, got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := curveFrom(100, 120, 90, 110, 80)
	pct, abs := curve.MaxDrawdown()
	if !abs.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected absolute drawdown 40, got %s", abs)
	}
	if math.Abs(pct-(-40.0/120.0)) > 1e-12 {
		t.Fatalf("expected drawdown pct %f, got %f", -40.0/120.0, pct)
	}
}
