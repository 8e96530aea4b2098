package simulation

import "fmt"

// SimulationConfig describes a scenario; it is read from simulation.yaml
type SimulationConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Category    string      `yaml:"category"`
	Parameters  []Parameter `yaml:"parameters"`
}

// Parameter is one configurable scenario input
type Parameter struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // integer, float, string, duration, boolean
	Description string      `yaml:"description"`
	Default     interface{} `yaml:"default"`
	Required    bool        `yaml:"required"`
	Min         interface{} `yaml:"min,omitempty"`
	Max         interface{} `yaml:"max,omitempty"`
	Options     []string    `yaml:"options,omitempty"`
}

var parameterTypes = map[string]bool{
	"integer":  true,
	"float":    true,
	"string":   true,
	"duration": true,
	"boolean":  true,
}

// Validate checks names and types of every parameter
func (c *SimulationConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("simulation name is required")
	}

	seen := make(map[string]bool, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Name == "" {
			return fmt.Errorf("simulation %s: parameter name is required", c.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("simulation %s: duplicate parameter %s", c.Name, p.Name)
		}
		seen[p.Name] = true
		if !parameterTypes[p.Type] {
			return fmt.Errorf("simulation %s: parameter %s has unknown type %q", c.Name, p.Name, p.Type)
		}
	}
	return nil
}

// Defaults returns every parameter's default value, skipping those without one
func (c *SimulationConfig) Defaults() map[string]interface{} {
	params := make(map[string]interface{}, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Default != nil {
			params[p.Name] = p.Default
		}
	}
	return params
}
