package backtest

import (
	"errors"
	"testing"

	"github.com/yourusername/quantbench/internal/models"
)

func TestGridExpandDeterministicOrder(t *testing.T) {
	grid := ParameterGrid{
		{Name: "fast", Type: ParamTypeInt, Min: 10, Max: 20, Step: 10},
		{Name: "slow", Type: ParamTypeInt, Min: 30, Max: 50, Step: 10},
	}

	combos, err := grid.Expand()
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combos) != 6 {
		t.Fatalf("expected 6 combinations, got %d", len(combos))
	}

	// First declared axis varies slowest.
	want := []struct{ fast, slow int }{
		{10, 30}, {10, 40}, {10, 50},
		{20, 30}, {20, 40}, {20, 50},
	}
	for i, w := range want {
		if combos[i].Int("fast", 0) != w.fast || combos[i].Int("slow", 0) != w.slow {
			t.Fatalf("combo %d: expected fast=%d slow=%d, got %v", i, w.fast, w.slow, combos[i])
		}
	}
}

func TestGridExpandInclusiveBounds(t *testing.T) {
	grid := ParameterGrid{{Name: "frac", Type: ParamTypeFloat, Min: 0.1, Max: 0.5, Step: 0.2}}
	combos, err := grid.Expand()
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	// 0.1, 0.3, 0.5: max included because it aligns with the step.
	if len(combos) != 3 {
		t.Fatalf("expected 3 values, got %d", len(combos))
	}
	last := combos[2].Float("frac", 0)
	if last < 0.4999 || last > 0.5001 {
		t.Fatalf("expected max value 0.5 included, got %f", last)
	}
}

func TestGridExpandCategorical(t *testing.T) {
	grid := ParameterGrid{{Name: "allow_short", Type: ParamTypeCategorical, Values: []string{"no", "yes"}}}
	combos, err := grid.Expand()
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combos) != 2 || combos[0].String("allow_short", "") != "no" || combos[1].String("allow_short", "") != "yes" {
		t.Fatalf("unexpected categorical expansion: %v", combos)
	}
}

func TestGridExpandSingleton(t *testing.T) {
	grid := ParameterGrid{{Name: "n", Type: ParamTypeInt, Min: 5, Max: 5, Step: 1}}
	combos, err := grid.Expand()
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(combos) != 1 || combos[0].Int("n", 0) != 5 {
		t.Fatalf("expected single value 5, got %v", combos)
	}
}

func TestGridExpandEmptyGrid(t *testing.T) {
	if _, err := (ParameterGrid{}).Expand(); !errors.Is(err, models.ErrOptimization) {
		t.Fatalf("expected optimization error, got %v", err)
	}
}

func TestGridExpandBadStep(t *testing.T) {
	grid := ParameterGrid{{Name: "n", Type: ParamTypeInt, Min: 1, Max: 10, Step: 0}}
	if _, err := grid.Expand(); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestGridExpandMinAboveMax(t *testing.T) {
	grid := ParameterGrid{{Name: "n", Type: ParamTypeInt, Min: 10, Max: 1, Step: 1}}
	if _, err := grid.Expand(); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestGridRange(t *testing.T) {
	grid := ParameterGrid{
		{Name: "fast", Type: ParamTypeInt, Min: 10, Max: 30, Step: 10},
		{Name: "mode", Type: ParamTypeCategorical, Values: []string{"a"}},
	}
	span, ok := grid.Range("fast")
	if !ok || span != 20 {
		t.Fatalf("expected span 20, got %f (%v)", span, ok)
	}
	if _, ok := grid.Range("mode"); ok {
		t.Fatalf("categorical axes have no numeric range")
	}
}
