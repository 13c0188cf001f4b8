package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// fmtOptional renders a nullable metric for human-readable reports
func fmtOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	if math.IsInf(*v, 1) {
		return "inf"
	}
	return fmt.Sprintf(format, *v)
}

// GenerateConsoleReport formats a single backtest run for terminal output
func GenerateConsoleReport(result *Result) string {
	m := result.Metrics
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Strategy: %s\n", result.StrategyName))
	builder.WriteString(fmt.Sprintf("Run ID: %s\n", result.RunID))
	builder.WriteString(fmt.Sprintf("Bars: %d processed, %d dropped\n", result.BarsTotal-result.BarsDropped, result.BarsDropped))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturnPct*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %s\n", fmtOptional(m.SharpeRatio, "%.2f")))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdownPct*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %s\n", fmtOptional(m.WinRate, "%.2f%%")))
	builder.WriteString(fmt.Sprintf("Profit Factor: %s\n", fmtOptional(m.ProfitFactor, "%.2f")))
	builder.WriteString(fmt.Sprintf("Trades: %d (%d won, %d lost)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades))
	return builder.String()
}

// GenerateWalkForwardConsoleReport formats a walk-forward run, one line per
// window plus the out-of-sample aggregate
func GenerateWalkForwardConsoleReport(result *WalkForwardResult) string {
	var builder strings.Builder
	builder.WriteString("Walk-Forward Report\n")
	builder.WriteString("====================\n")
	builder.WriteString(fmt.Sprintf("Strategy: %s\n", result.StrategyName))
	builder.WriteString(fmt.Sprintf("Windows: %d\n\n", len(result.Windows)))

	for _, wr := range result.Windows {
		if wr.Status != WindowStatusOK {
			builder.WriteString(fmt.Sprintf("Window %d: skipped (%s)\n", wr.Window.ID, wr.Note))
			continue
		}
		m := wr.OutOfSample.Metrics
		builder.WriteString(fmt.Sprintf("Window %d: %s..%s OOS return %.2f%% sharpe %s trades %d params %v\n",
			wr.Window.ID,
			wr.Window.OutOfSampleStart.Format("2006-01-02"),
			wr.Window.OutOfSampleEnd.Format("2006-01-02"),
			m.TotalReturnPct*100,
			fmtOptional(m.SharpeRatio, "%.2f"),
			m.TotalTrades,
			wr.ParamsUsed,
		))
	}

	agg := result.AggregatedMetrics
	builder.WriteString("\nOut-of-Sample Aggregate\n")
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", agg.TotalReturnPct*100))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %s\n", fmtOptional(agg.SharpeRatio, "%.2f")))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", agg.MaxDrawdownPct*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %s\n", fmtOptional(agg.WinRate, "%.2f%%")))
	builder.WriteString(fmt.Sprintf("Profit Factor: %s\n", fmtOptional(agg.ProfitFactor, "%.2f")))
	builder.WriteString(fmt.Sprintf("Trades: %d\n", agg.TotalTrades))

	if len(result.ParameterStability) > 0 {
		builder.WriteString("\nParameter Stability\n")
		for _, ps := range result.ParameterStability {
			builder.WriteString(fmt.Sprintf("%s: mean %.2f std %.2f score %.2f\n", ps.Name, ps.Mean, ps.StdDev, ps.Score))
		}
	}
	return builder.String()
}

// GenerateJSONReport writes the full run result as indented JSON
func GenerateJSONReport(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	payload := map[string]any{
		"run_id":        result.RunID,
		"strategy_name": result.StrategyName,
		"start_time":    result.StartTime,
		"end_time":      result.EndTime,
		"bars_total":    result.BarsTotal,
		"bars_dropped":  result.BarsDropped,
		"metrics":       sanitizeMetrics(result.Metrics),
		"trades":        result.Trades,
		"equity_curve":  result.EquityCurve,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// GenerateWalkForwardJSONReport writes the walk-forward result, with
// per-window summaries and the sanitized aggregate
func GenerateWalkForwardJSONReport(result *WalkForwardResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	windows := make([]map[string]any, 0, len(result.Windows))
	for _, wr := range result.Windows {
		entry := map[string]any{
			"window": wr.Window,
			"status": wr.Status,
		}
		if wr.Note != "" {
			entry["note"] = wr.Note
		}
		if wr.ParamsUsed != nil {
			entry["params_used"] = wr.ParamsUsed
		}
		if wr.OutOfSample != nil {
			entry["oos_metrics"] = sanitizeMetrics(wr.OutOfSample.Metrics)
		}
		windows = append(windows, entry)
	}
	payload := map[string]any{
		"strategy_name":       result.StrategyName,
		"windows":             windows,
		"aggregated_metrics":  sanitizeMetrics(result.AggregatedMetrics),
		"aggregated_trades":   result.AggregatedTrades,
		"equity_curve":        result.AggregatedEquityCurve,
		"parameter_stability": result.ParameterStability,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// GenerateHTMLReport creates a standalone HTML report with an equity curve
// chart rendered by Chart.js
func GenerateHTMLReport(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	m := result.Metrics

	labels := make([]string, len(result.EquityCurve))
	values := make([]float64, len(result.EquityCurve))
	for i, p := range result.EquityCurve {
		labels[i] = p.Time.Format("2006-01-02 15:04")
		values[i], _ = p.Equity.Float64()
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return err
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<title>Backtest Report - %s</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
</head>
<body>
<h1>Backtest Report</h1>
<p><strong>Strategy:</strong> %s</p>
<p><strong>Total Return:</strong> %.2f%%</p>
<p><strong>Sharpe Ratio:</strong> %s</p>
<p><strong>Max Drawdown:</strong> %.2f%%</p>
<p><strong>Win Rate:</strong> %s</p>
<p><strong>Profit Factor:</strong> %s</p>
<p><strong>Trades:</strong> %d</p>
<canvas id="equity" width="1200" height="400"></canvas>
<script>
new Chart(document.getElementById('equity'), {
  type: 'line',
  data: {
    labels: %s,
    datasets: [{label: 'Equity', data: %s, borderColor: '#2563eb', pointRadius: 0, fill: false}]
  },
  options: {animation: false, scales: {x: {ticks: {maxTicksLimit: 12}}}}
});
</script>
</body>
</html>`,
		result.StrategyName,
		result.StrategyName,
		m.TotalReturnPct*100,
		fmtOptional(m.SharpeRatio, "%.2f"),
		m.MaxDrawdownPct*100,
		fmtOptional(m.WinRate, "%.2f%%"),
		fmtOptional(m.ProfitFactor, "%.2f"),
		m.TotalTrades,
		labelsJSON,
		valuesJSON,
	)
	return os.WriteFile(outputPath, []byte(html), 0o644)
}

// GenerateTradesCSV exports the trade log for spreadsheets
func GenerateTradesCSV(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("symbol,direction,entry_time,exit_time,entry_price,exit_price,quantity,commission,profit_loss\n")
	for _, t := range result.Trades {
		builder.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			t.Symbol,
			t.Direction,
			t.EntryTime.Format("2006-01-02T15:04:05Z07:00"),
			t.ExitTime.Format("2006-01-02T15:04:05Z07:00"),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Quantity.String(),
			t.Commission.String(),
			t.ProfitLoss.String(),
		))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}
