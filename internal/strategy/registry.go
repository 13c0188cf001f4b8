package strategy

import (
	"fmt"

	"github.com/yourusername/quantbench/internal/models"
)

// factories maps strategy names to their constructors
var factories = map[string]Factory{
	"sma_cross": NewSMACross,
}

// Resolve looks up a strategy factory by name
func Resolve(name string) (Factory, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", models.ErrInvalidConfig, name)
	}
	return factory, nil
}

// Names lists all registered strategy names
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
