package simulation

import "context"

// Simulation is a runnable training scenario
type Simulation interface {
	// Name returns the registered name
	Name() string

	// Description returns a one-line summary
	Description() string

	// Configure applies parameters collected from prompts, flags or env
	Configure(params map[string]interface{}) error

	// Run executes the scenario until it finishes or ctx is cancelled
	Run(ctx context.Context) error

	// Stop asks a running scenario to finish its current episode and return
	Stop() error
}
