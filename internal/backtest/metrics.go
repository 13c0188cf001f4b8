package backtest

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yourusername/quantbench/internal/models"
)

// PerformanceMetrics represents risk/return statistics derived from a
// completed run. Mathematically undefined values (zero-variance Sharpe,
// zero-trade win rate) are nil, never 0 or NaN; callers must handle the nil
// case explicitly. A profit factor with gross profit and no gross loss is
// reported as +Inf.
type PerformanceMetrics struct {
	TotalReturn    float64  `json:"total_return"`
	TotalReturnPct float64  `json:"total_return_pct"`
	SharpeRatio    *float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64  `json:"max_drawdown"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"`
	WinRate        *float64 `json:"win_rate"`
	TotalTrades    int      `json:"total_trades"`
	WinningTrades  int      `json:"winning_trades"`
	LosingTrades   int      `json:"losing_trades"`
	AvgWin         *float64 `json:"avg_win"`
	AvgLoss        *float64 `json:"avg_loss"`
	ProfitFactor   *float64 `json:"profit_factor"`
	GrossProfit    float64  `json:"gross_profit"`
	GrossLoss      float64  `json:"gross_loss"`
}

// CalculateMetrics derives metrics from the complete equity curve and trade
// list of a run. Works on zero-trade and empty-curve runs without error.
func CalculateMetrics(curve EquityCurve, trades []*models.Trade, initialCapital decimal.Decimal) PerformanceMetrics {
	metrics := PerformanceMetrics{}

	if len(curve) > 0 {
		final := curve[len(curve)-1].Equity
		totalReturn, _ := final.Sub(initialCapital).Float64()
		metrics.TotalReturn = totalReturn
		if initialCapital.IsPositive() {
			pct, _ := final.Sub(initialCapital).Div(initialCapital).Float64()
			metrics.TotalReturnPct = pct
		}
		ddPct, ddAbs := curve.MaxDrawdown()
		metrics.MaxDrawdownPct = ddPct
		metrics.MaxDrawdown, _ = ddAbs.Float64()
		metrics.SharpeRatio = calculateSharpeRatio(curve.Returns(), curve.PeriodsPerYear())
	}

	metrics.TotalTrades = len(trades)
	winSum, lossSum := 0.0, 0.0
	for _, trade := range trades {
		pnl, _ := trade.ProfitLoss.Float64()
		if pnl > 0 {
			metrics.WinningTrades++
			winSum += pnl
		} else if pnl < 0 {
			metrics.LosingTrades++
			lossSum += math.Abs(pnl)
		}
	}
	metrics.GrossProfit = winSum
	metrics.GrossLoss = lossSum

	if metrics.TotalTrades > 0 {
		metrics.WinRate = floatPtr(float64(metrics.WinningTrades) / float64(metrics.TotalTrades))
	}
	if metrics.WinningTrades > 0 {
		metrics.AvgWin = floatPtr(winSum / float64(metrics.WinningTrades))
	}
	if metrics.LosingTrades > 0 {
		metrics.AvgLoss = floatPtr(-lossSum / float64(metrics.LosingTrades))
	}
	metrics.ProfitFactor = calculateProfitFactor(winSum, lossSum)

	return metrics
}

// calculateSharpeRatio annualizes mean/std of per-bar returns. Nil when
// fewer than 2 observations exist or the variance is zero.
func calculateSharpeRatio(returns []float64, periodsPerYear float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	mean := average(returns)
	std := stddev(returns)
	if std == 0 {
		return nil
	}
	return floatPtr(mean / std * math.Sqrt(periodsPerYear))
}

func calculateProfitFactor(grossProfit, grossLoss float64) *float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return floatPtr(math.Inf(1))
		}
		return nil
	}
	return floatPtr(grossProfit / grossLoss)
}

// MarshalJSON renders the infinite profit factor as the string "inf" so the
// output stays valid JSON
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(sanitizeMetrics(m))
}

// ToJSON exports metrics to JSON
func (m PerformanceMetrics) ToJSON() string {
	data, _ := json.Marshal(sanitizeMetrics(m))
	return string(data)
}

// sanitizeMetrics returns a JSON-safe mapping of the metrics
func sanitizeMetrics(m PerformanceMetrics) map[string]any {
	return map[string]any{
		"total_return":     m.TotalReturn,
		"total_return_pct": m.TotalReturnPct,
		"sharpe_ratio":     jsonNumber(m.SharpeRatio),
		"max_drawdown":     m.MaxDrawdown,
		"max_drawdown_pct": m.MaxDrawdownPct,
		"win_rate":         jsonNumber(m.WinRate),
		"total_trades":     m.TotalTrades,
		"winning_trades":   m.WinningTrades,
		"losing_trades":    m.LosingTrades,
		"avg_win":          jsonNumber(m.AvgWin),
		"avg_loss":         jsonNumber(m.AvgLoss),
		"profit_factor":    jsonNumber(m.ProfitFactor),
		"gross_profit":     m.GrossProfit,
		"gross_loss":       m.GrossLoss,
	}
}

// jsonNumber maps nil to nil and non-finite values to strings
func jsonNumber(v *float64) any {
	if v == nil {
		return nil
	}
	if math.IsInf(*v, 1) {
		return "inf"
	}
	if math.IsInf(*v, -1) {
		return "-inf"
	}
	return *v
}

func floatPtr(v float64) *float64 {
	return &v
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
