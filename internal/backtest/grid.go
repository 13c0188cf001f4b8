package backtest

import (
	"fmt"
	"math"

	"github.com/yourusername/quantbench/internal/models"
	"github.com/yourusername/quantbench/internal/strategy"
)

// ParamType defines the type of an optimization parameter axis
type ParamType string

const (
	ParamTypeInt         ParamType = "int"
	ParamTypeFloat       ParamType = "float"
	ParamTypeCategorical ParamType = "categorical"
)

// ParameterRange defines one axis of the optimization grid. Numeric axes
// enumerate min..max inclusive by step; categorical axes enumerate Values.
type ParameterRange struct {
	Name   string    `json:"name"`
	Type   ParamType `json:"type"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Step   float64   `json:"step"`
	Values []string  `json:"values,omitempty"`
}

// ParameterGrid is an ordered set of parameter ranges. Expansion order is
// axis declaration order, then ascending value per axis, so optimization is
// reproducible.
type ParameterGrid []ParameterRange

// expand enumerates one axis in ascending order
func (r ParameterRange) expand() ([]any, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("%w: parameter range requires a name", models.ErrInvalidConfig)
	}
	if r.Type == ParamTypeCategorical {
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("%w: categorical parameter %q has no values", models.ErrInvalidConfig, r.Name)
		}
		values := make([]any, len(r.Values))
		for i, v := range r.Values {
			values[i] = v
		}
		return values, nil
	}

	if r.Step <= 0 {
		return nil, fmt.Errorf("%w: parameter %q step must be positive", models.ErrInvalidConfig, r.Name)
	}
	if r.Min > r.Max {
		return nil, fmt.Errorf("%w: parameter %q min %v exceeds max %v", models.ErrInvalidConfig, r.Name, r.Min, r.Max)
	}

	// Index-based stepping avoids float accumulation drift; max is included
	// when it aligns with the step.
	count := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	values := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v := r.Min + float64(i)*r.Step
		if r.Type == ParamTypeInt {
			values = append(values, int(math.Round(v)))
		} else {
			values = append(values, v)
		}
	}
	return values, nil
}

// Expand enumerates the Cartesian product of all axes in deterministic
// order: the first declared axis varies slowest
func (g ParameterGrid) Expand() ([]strategy.Params, error) {
	if len(g) == 0 {
		return nil, fmt.Errorf("%w: empty parameter grid", models.ErrOptimization)
	}

	axes := make([][]any, len(g))
	for i, r := range g {
		values, err := r.expand()
		if err != nil {
			return nil, err
		}
		axes[i] = values
	}

	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}

	combos := make([]strategy.Params, 0, total)
	indices := make([]int, len(axes))
	for {
		params := make(strategy.Params, len(axes))
		for i, r := range g {
			params[r.Name] = axes[i][indices[i]]
		}
		combos = append(combos, params)

		// Advance the innermost axis first
		carry := len(axes) - 1
		for carry >= 0 {
			indices[carry]++
			if indices[carry] < len(axes[carry]) {
				break
			}
			indices[carry] = 0
			carry--
		}
		if carry < 0 {
			break
		}
	}
	return combos, nil
}

// Range returns the numeric span of the named axis, used by the stability
// analyzer. The second value is false for categorical or unknown axes.
func (g ParameterGrid) Range(name string) (float64, bool) {
	for _, r := range g {
		if r.Name == name && r.Type != ParamTypeCategorical {
			return r.Max - r.Min, true
		}
	}
	return 0, false
}
