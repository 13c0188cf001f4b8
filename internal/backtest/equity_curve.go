package backtest

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint represents a point in the equity curve: one per bar,
// equity = cash + position market value
type EquityPoint struct {
	Time          time.Time       `json:"time"`
	Cash          decimal.Decimal `json:"cash"`
	PositionValue decimal.Decimal `json:"position_value"`
	Equity        decimal.Decimal `json:"equity"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// Returns calculates per-bar returns from the equity curve
func (e EquityCurve) Returns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev, _ := e[i-1].Equity.Float64()
		curr, _ := e[i].Equity.Float64()
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curr-prev)/prev)
	}
	return returns
}

// MaxDrawdown returns the deepest peak-to-trough decline as a negative
// fraction of the peak, and the absolute drop. Zero if equity never declines.
func (e EquityCurve) MaxDrawdown() (pct float64, abs decimal.Decimal) {
	if len(e) == 0 {
		return 0, decimal.Zero
	}
	peak := e[0].Equity
	abs = decimal.Zero
	for _, p := range e {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if !peak.IsPositive() {
			continue
		}
		drop := p.Equity.Sub(peak)
		if drop.LessThan(abs) {
			abs = drop
		}
		dd, _ := drop.Div(peak).Float64()
		if dd < pct {
			pct = dd
		}
	}
	return pct, abs.Abs()
}

// PeriodsPerYear infers the annualization factor from median bar spacing:
// 252 for daily bars, 52 for weekly, calendar-time scaling for intraday
func (e EquityCurve) PeriodsPerYear() float64 {
	if len(e) < 2 {
		return 252
	}
	deltas := make([]time.Duration, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		deltas = append(deltas, e[i].Time.Sub(e[i-1].Time))
	}
	median := medianDuration(deltas)
	switch {
	case median <= 0:
		return 252
	case median >= 5*24*time.Hour:
		return 52
	case median >= 20*time.Hour:
		return 252
	default:
		return float64(365*24*time.Hour) / float64(median)
	}
}

func medianDuration(deltas []time.Duration) time.Duration {
	sorted := append([]time.Duration{}, deltas...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted[len(sorted)/2]
}

// ToCSV exports the equity curve to a CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("time,cash,position_value,equity\n")
	for _, point := range e {
		buf.WriteString(point.Time.Format(time.RFC3339))
		buf.WriteString(",")
		buf.WriteString(point.Cash.StringFixed(6))
		buf.WriteString(",")
		buf.WriteString(point.PositionValue.StringFixed(6))
		buf.WriteString(",")
		buf.WriteString(point.Equity.StringFixed(6))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the equity curve to a JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}
