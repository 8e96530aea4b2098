// Package threat is a reference missile field for driving the evasion agent
// end to end. Launchers sit on a ring around the origin and fire homing
// missiles on a fixed cadence; each missile steers toward the target with a
// bounded turn rate until its fuel runs out.
package threat

import (
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/picogrid/evasion-sim/pkg/agent"
	"github.com/picogrid/evasion-sim/pkg/geom"
	"github.com/picogrid/evasion-sim/pkg/logger"
)

// Config shapes the missile field
type Config struct {
	RingRadius      float64 // launcher distance from the origin
	TurnRate        float64 // missile degrees per second
	SpeedScale      float64 // multiplies the curriculum threat speed
	CollisionRadius float64
	Seed            int64
}

// DefaultConfig returns a field tuned for the default agent
func DefaultConfig() Config {
	return Config{
		RingRadius:      15,
		TurnRate:        90,
		SpeedScale:      3,
		CollisionRadius: 0.5,
		Seed:            1,
	}
}

// Missile is a single homing threat
type Missile struct {
	ID       uuid.UUID
	Launcher int
	position geom.Vec
	heading  float64
	speed    float64
	fuel     float64
	active   bool
}

// Position implements agent.Threat
func (m *Missile) Position() geom.Vec { return m.position }

// Heading implements agent.Threat
func (m *Missile) Heading() float64 { return m.heading }

// Active implements agent.Threat
func (m *Missile) Active() bool { return m.active }

// Fuel returns the seconds of flight left
func (m *Missile) Fuel() float64 { return m.fuel }

// Stats counts missile outcomes since the last Restart
type Stats struct {
	Launched int
	Expired  int
	Hits     int
}

// Field implements agent.ThreatRegistry and agent.ThreatSpawner
type Field struct {
	cfg    Config
	target func() geom.Vec
	log    logger.Logger
	rng    *rand.Rand

	launch    agent.LaunchConfig
	launchers []geom.Vec
	missiles  []*Missile
	firing    bool
	clock     float64
	nextFire  float64
	stats     Stats
	mu        sync.RWMutex
}

// NewField creates an idle field. target reports the position missiles chase.
func NewField(cfg Config, target func() geom.Vec, log logger.Logger) *Field {
	if log == nil {
		log = logger.Nop()
	}
	return &Field{
		cfg:    cfg,
		target: target,
		log:    log,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Configure places launchers for the next episode
func (f *Field) Configure(lc agent.LaunchConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.launch = lc
	f.launchers = f.launchers[:0]
	if lc.Launchers <= 0 {
		return
	}

	offset := f.rng.Float64() * 360
	step := 360.0 / float64(lc.Launchers)
	for i := 0; i < lc.Launchers; i++ {
		dir := geom.Forward(offset + float64(i)*step)
		f.launchers = append(f.launchers, geom.Advance(geom.Vec{}, dir, f.cfg.RingRadius))
	}
}

// Restart arms autofire; the first salvo leaves on the next Advance
func (f *Field) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.firing = len(f.launchers) > 0
	f.clock = 0
	f.nextFire = 0
	f.stats = Stats{}
}

// DestroyAll removes every missile and stops firing
func (f *Field) DestroyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.missiles = nil
	f.firing = false
}

// LiveThreats implements agent.ThreatRegistry
func (f *Field) LiveThreats() []agent.Threat {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]agent.Threat, 0, len(f.missiles))
	for _, m := range f.missiles {
		if m.active {
			out = append(out, m)
		}
	}
	return out
}

// Missiles returns the missiles in flight
func (f *Field) Missiles() []*Missile {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Missile(nil), f.missiles...)
}

// Launchers returns launcher positions
func (f *Field) Launchers() []geom.Vec {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]geom.Vec(nil), f.launchers...)
}

// Stats returns outcome counts
func (f *Field) Stats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats
}

// Advance fires due salvos, flies every missile for dt seconds and reports
// whether any of them reached the target.
func (f *Field) Advance(dt float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := geom.Vec{}
	if f.target != nil {
		target = f.target()
	}

	f.clock += dt
	if f.firing && f.clock >= f.nextFire {
		f.fire(target)
		if f.launch.AutoFireInterval > 0 {
			f.nextFire += f.launch.AutoFireInterval
		} else {
			f.firing = false
		}
	}

	hit := false
	hitRadiusSq := f.cfg.CollisionRadius * f.cfg.CollisionRadius
	live := f.missiles[:0]
	for _, m := range f.missiles {
		f.fly(m, target, dt)

		switch {
		case geom.DistanceSq(m.position, target) <= hitRadiusSq:
			m.active = false
			f.stats.Hits++
			hit = true
		case m.fuel <= 0:
			m.active = false
			f.stats.Expired++
		}

		if m.active {
			live = append(live, m)
		}
	}
	for i := len(live); i < len(f.missiles); i++ {
		f.missiles[i] = nil
	}
	f.missiles = live
	return hit
}

// fire launches one missile from every launcher, pointed at target
func (f *Field) fire(target geom.Vec) {
	for i, pos := range f.launchers {
		f.missiles = append(f.missiles, &Missile{
			ID:       uuid.New(),
			Launcher: i,
			position: pos,
			heading:  geom.BearingDegrees(pos, target),
			speed:    f.launch.Speed * f.cfg.SpeedScale,
			fuel:     f.launch.Endurance,
			active:   true,
		})
	}
	f.stats.Launched += len(f.launchers)
	f.log.Debugf("salvo of %d at t=%.2f", len(f.launchers), f.clock)
}

// fly turns m toward target by at most TurnRate*dt and moves it forward
func (f *Field) fly(m *Missile, target geom.Vec, dt float64) {
	want := geom.BearingDegrees(m.position, target)
	delta := geom.SignedDelta(m.heading, want)
	maxTurn := f.cfg.TurnRate * dt
	delta = math.Max(-maxTurn, math.Min(maxTurn, delta))

	m.heading = geom.NormalizeDegrees(m.heading + delta)
	m.position = geom.Advance(m.position, geom.Forward(m.heading), m.speed*dt)
	m.fuel -= dt
}
