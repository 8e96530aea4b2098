// Package policy holds simple action selectors used to drive training runs
// without a learned model.
package policy

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// Action indices understood by the agent
const (
	ActionHold  = 0
	ActionLeft  = 1
	ActionRight = 2
)

// Observation slots read by the heuristics
const (
	slotHeading = 0
	slotTracked = 1
	slotDX      = 3
	slotDY      = 4
)

// Policy maps an observation to an action index
type Policy interface {
	SelectAction(state []float64) int
}

// Func adapts a function to Policy
type Func func(state []float64) int

// SelectAction implements Policy
func (f Func) SelectAction(state []float64) int { return f(state) }

// Hold never turns
type Hold struct{}

// SelectAction implements Policy
func (Hold) SelectAction([]float64) int { return ActionHold }

// Random picks uniformly among the three actions
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a seeded random policy
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// SelectAction implements Policy
func (r *Random) SelectAction([]float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(3)
}

// Evade holds while nothing is tracked and otherwise turns so the tracked
// threat ends up behind the agent.
type Evade struct {
	// Deadband is the bearing error, in degrees, tolerated before turning
	Deadband float64
}

// SelectAction implements Policy
func (e Evade) SelectAction(state []float64) int {
	if len(state) <= slotDY || state[slotTracked] < 0.5 {
		return ActionHold
	}

	heading := (state[slotHeading] + 1) * 180
	dx, dy := state[slotDX], state[slotDY]
	if dx == 0 && dy == 0 {
		return ActionLeft
	}

	// bearing to the threat in the agent's heading convention
	toThreat := math.Atan2(-dx, dy) * 180 / math.Pi
	away := toThreat + 180
	delta := math.Mod(away-heading+540, 360) - 180

	switch {
	case delta > e.Deadband:
		return ActionLeft
	case delta < -e.Deadband:
		return ActionRight
	default:
		return ActionHold
	}
}

var constructors = map[string]func(seed int64) Policy{
	"hold":   func(int64) Policy { return Hold{} },
	"random": func(seed int64) Policy { return NewRandom(seed) },
	"evade":  func(int64) Policy { return Evade{Deadband: 10} },
}

// Names lists the registered policies
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the policy registered under name
func New(name string, seed int64) (Policy, error) {
	ctor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(seed), nil
}
