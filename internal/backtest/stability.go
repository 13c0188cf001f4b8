package backtest

import (
	"math"
)

// ParameterStability summarizes how much a single optimized parameter moved
// across windows. Score is 1 - stddev/range clamped to [0, 1]: 1 means the
// optimizer picked the same value every window, 0 means it swung across the
// whole grid axis.
type ParameterStability struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"std_dev"`
	Score  float64   `json:"score"`
}

// AnalyzeParameterStability scores each numeric grid parameter over the
// windows that produced a result. Categorical parameters and windows with
// nil params are skipped.
func AnalyzeParameterStability(windows []WindowResult, grid ParameterGrid) []ParameterStability {
	var out []ParameterStability
	for _, r := range grid {
		if r.Type == ParamTypeCategorical {
			continue
		}
		span, ok := grid.Range(r.Name)
		if !ok {
			continue
		}

		var values []float64
		for _, wr := range windows {
			if wr.ParamsUsed == nil {
				continue
			}
			switch v := wr.ParamsUsed[r.Name].(type) {
			case float64:
				values = append(values, v)
			case int:
				values = append(values, float64(v))
			}
		}
		if len(values) == 0 {
			continue
		}

		mean := average(values)
		std := stddev(values)
		score := 1.0
		if span > 0 {
			score = 1.0 - std/span
		} else if std > 0 {
			score = 0.0
		}
		score = math.Max(0, math.Min(1, score))

		out = append(out, ParameterStability{
			Name:   r.Name,
			Values: values,
			Mean:   mean,
			StdDev: std,
			Score:  score,
		})
	}
	return out
}
