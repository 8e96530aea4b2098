package simulation

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a fresh scenario instance
type Factory func() Simulation

// Registry maps scenario names to factories
type Registry struct {
	mu          sync.RWMutex
	simulations map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{simulations: make(map[string]Factory)}
}

// Register adds a scenario; names must be unique
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if factory == nil {
		return fmt.Errorf("simulation %s has no factory", name)
	}
	if _, exists := r.simulations[name]; exists {
		return fmt.Errorf("simulation %s already registered", name)
	}

	r.simulations[name] = factory
	return nil
}

// Get returns a new instance of the named scenario
func (r *Registry) Get(name string) (Simulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.simulations[name]
	if !exists {
		return nil, fmt.Errorf("simulation %s not found", name)
	}
	return factory(), nil
}

// List returns registered names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.simulations))
	for name := range r.simulations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds scenarios registered from init functions
var DefaultRegistry = NewRegistry()
