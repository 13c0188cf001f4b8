package strategy

import "sort"

// Params holds the tunable parameter values a strategy was constructed with.
// Values are int, float64 or string depending on the parameter axis type.
type Params map[string]any

// Clone creates a shallow copy of the parameter set
func (p Params) Clone() Params {
	clone := make(Params, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Merge returns a new set with other's values overriding p's
func (p Params) Merge(other Params) Params {
	merged := p.Clone()
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Float reads a numeric parameter, accepting both int and float64 values
func (p Params) Float(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int reads an integer parameter, truncating float values
func (p Params) Int(name string, def int) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// String reads a categorical parameter
func (p Params) String(name string, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

// Names returns the parameter names in sorted order
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
