// Package agent implements the evasive-flight agent: each fixed tick it turns a
// discrete maneuver into motion, polls the threat registry for the nearest
// in-range threat, shapes a scalar reward and decides episode termination.
//
// An Agent is driven by a single goroutine. ResetEpisode may be called at any
// point between ticks.
package agent

import (
	"errors"
	"fmt"

	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/geom"
	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

// StateSize is the length of the vector returned by BuildState
const StateSize = 9

// DefaultSpeed is the flight speed used when no SpeedSource is supplied
const DefaultSpeed = 6.0

// Scales divide the curriculum parameters in the state vector
type Scales struct {
	GoalTime        float64
	ThreatCount     float64
	ThreatSpeed     float64
	ThreatEndurance float64
}

// Config is fixed for the lifetime of an Agent
type Config struct {
	MaxTurnRate     float64 // degrees per second
	SearchRadius    float64
	SearchInterval  float64 // seconds of sim time between polls
	StartPosition   geom.Vec
	StartHeading    float64 // degrees
	HoldReward      float64
	WinReward       float64
	LossReward      float64
	DistanceEpsilon float64 // squared distances at or below this take the full penalty
	Scales          Scales
}

// DefaultConfig returns the tuning the agent was trained with
func DefaultConfig() Config {
	return Config{
		MaxTurnRate:     175,
		SearchRadius:    6,
		SearchInterval:  0.02,
		HoldReward:      0.01,
		WinReward:       10,
		LossReward:      -10,
		DistanceEpsilon: 1e-6,
		Scales: Scales{
			GoalTime:        60,
			ThreatCount:     12,
			ThreatSpeed:     1,
			ThreatEndurance: 20,
		},
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MaxTurnRate < 0 {
		return fmt.Errorf("max turn rate must not be negative, got %g", c.MaxTurnRate)
	}
	if c.SearchRadius <= 0 {
		return fmt.Errorf("search radius must be positive, got %g", c.SearchRadius)
	}
	if c.SearchInterval <= 0 {
		return fmt.Errorf("search interval must be positive, got %g", c.SearchInterval)
	}
	if c.DistanceEpsilon < 0 {
		return fmt.Errorf("distance epsilon must not be negative, got %g", c.DistanceEpsilon)
	}
	if c.Scales.GoalTime <= 0 || c.Scales.ThreatCount <= 0 || c.Scales.ThreatSpeed <= 0 || c.Scales.ThreatEndurance <= 0 {
		return errors.New("state scales must be positive")
	}
	return nil
}

// Action is a discrete maneuver chosen by the policy
type Action int

const (
	Hold Action = iota
	TurnLeft
	TurnRight
)

func (a Action) String() string {
	switch a {
	case Hold:
		return "hold"
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction converts a policy output into an Action
func ParseAction(v int) (Action, bool) {
	switch Action(v) {
	case Hold, TurnLeft, TurnRight:
		return Action(v), true
	default:
		return Hold, false
	}
}

// turnSign is the rotation direction; left is counter-clockwise
func (a Action) turnSign() float64 {
	switch a {
	case TurnLeft:
		return 1
	case TurnRight:
		return -1
	default:
		return 0
	}
}

// Pose is the agent's position and heading in degrees
type Pose struct {
	Position geom.Vec
	Heading  float64
}

// TrackingState is the hysteresis state of threat acquisition.
// Active is non-nil only while its squared distance is within SearchRadius².
type TrackingState struct {
	Active            Threat
	DistanceSq        float64
	TimeSinceLastSeen float64
	TimeSpentTracking float64
	LastScanTime      float64
}

// Tracking reports whether a threat is held
func (t TrackingState) Tracking() bool {
	return t.Active != nil
}

// Outcome is the terminal state of an episode
type Outcome int

const (
	Running Outcome = iota
	Won
	Lost
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "running"
	}
}

// EpisodeStatus tracks termination. Wins and Losses accumulate across episodes.
type EpisodeStatus struct {
	Duration      float64
	RemainingTime float64
	Done          bool
	Outcome       Outcome
	Wins          int
	Losses        int
}

// StepResult is what the training loop consumes after each tick
type StepResult struct {
	State   []float64
	Reward  float64
	Done    bool
	Outcome Outcome
}

// Threat is a read-only handle on a live threat entity
type Threat interface {
	Position() geom.Vec
	Heading() float64
	Active() bool
}

// ThreatRegistry lists live threats. The agent never mutates the result.
type ThreatRegistry interface {
	LiveThreats() []Threat
}

// LaunchConfig arms the threat spawner for an episode
type LaunchConfig struct {
	Speed            float64
	Endurance        float64 // seconds of fuel
	Launchers        int
	AutoFireInterval float64 // seconds
}

// ThreatSpawner is the external threat launcher
type ThreatSpawner interface {
	Configure(LaunchConfig)
	Restart()
	DestroyAll()
}

// SpeedSource supplies the current flight speed
type SpeedSource interface {
	CurrentSpeed() float64
}

// ConstantSpeed is a SpeedSource that never accelerates
type ConstantSpeed float64

// CurrentSpeed implements SpeedSource
func (s ConstantSpeed) CurrentSpeed() float64 { return float64(s) }

// Option customizes an Agent
type Option func(*Agent)

// WithThreats sets the registry polled during search
func WithThreats(r ThreatRegistry) Option {
	return func(a *Agent) { a.threats = r }
}

// WithSpawner sets the launcher controlled at reset
func WithSpawner(s ThreatSpawner) Option {
	return func(a *Agent) { a.spawner = s }
}

// WithSpeed sets the speed model
func WithSpeed(s SpeedSource) Option {
	return func(a *Agent) { a.speed = s }
}

// WithSink sets the telemetry destination
func WithSink(s telemetry.Sink) Option {
	return func(a *Agent) { a.sink = s }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// Agent is the evasion agent. Call ResetEpisode before the first Step.
type Agent struct {
	cfg        Config
	curriculum *curriculum.Controller
	threats    ThreatRegistry
	spawner    ThreatSpawner
	speed      SpeedSource
	sink       telemetry.Sink
	log        logger.Logger

	params   curriculum.Parameters
	pose     Pose
	tracking TrackingState
	status   EpisodeStatus
	turnSign float64
	reward   float64
	clock    float64
	ticks    int
	episodes int
}

// New creates an agent bound to ctrl
func New(cfg Config, ctrl *curriculum.Controller, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if ctrl == nil {
		return nil, errors.New("curriculum controller is required")
	}

	a := &Agent{
		cfg:        cfg,
		curriculum: ctrl,
		speed:      ConstantSpeed(DefaultSpeed),
		sink:       telemetry.Nop{},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.threats == nil {
		a.threats = noThreats{}
	}
	a.pose = a.startPose()
	return a, nil
}

type noThreats struct{}

func (noThreats) LiveThreats() []Threat { return nil }

func (a *Agent) startPose() Pose {
	return Pose{Position: a.cfg.StartPosition, Heading: geom.NormalizeDegrees(a.cfg.StartHeading)}
}

// Config returns the agent configuration
func (a *Agent) Config() Config { return a.cfg }

// Parameters returns the curriculum snapshot taken at the last reset
func (a *Agent) Parameters() curriculum.Parameters { return a.params }

// Pose returns the current pose
func (a *Agent) Pose() Pose { return a.pose }

// Tracking returns the current tracking state
func (a *Agent) Tracking() TrackingState { return a.tracking }

// Status returns the episode status
func (a *Agent) Status() EpisodeStatus { return a.status }

// Wins returns the number of episodes won since construction
func (a *Agent) Wins() int { return a.status.Wins }

// Losses returns the number of episodes lost since construction
func (a *Agent) Losses() int { return a.status.Losses }

// Episodes returns how many episodes have been started
func (a *Agent) Episodes() int { return a.episodes }

// Ticks returns the number of ticks stepped in the current episode
func (a *Agent) Ticks() int { return a.ticks }

// Clock returns sim time elapsed in the current episode
func (a *Agent) Clock() float64 { return a.clock }

// Reward returns the reward of the last tick
func (a *Agent) Reward() float64 { return a.reward }

// Result returns the latest state, reward and termination
func (a *Agent) Result() StepResult {
	return StepResult{
		State:   a.BuildState(),
		Reward:  a.reward,
		Done:    a.status.Done,
		Outcome: a.status.Outcome,
	}
}

// DistanceToTargetSq returns the squared distance to the tracked threat.
// It panics when nothing is tracked.
func (a *Agent) DistanceToTargetSq() float64 {
	if a.tracking.Active == nil {
		panic("agent: DistanceToTargetSq called with no tracked threat")
	}
	return a.threatDistanceSq(a.tracking.Active)
}
