package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/picogrid/evasion-sim/pkg/agent"
	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/geom"
	"github.com/picogrid/evasion-sim/pkg/policy"
	"github.com/picogrid/evasion-sim/pkg/threat"
)

// Curriculum modes
const (
	CurriculumLessons = "lessons"
	CurriculumFixed   = "fixed"
)

// SimulationConfig holds the complete scenario configuration
type SimulationConfig struct {
	Simulation SimulationSettings `yaml:"simulation"`
	Agent      AgentConfig        `yaml:"agent"`
	Threats    ThreatConfig       `yaml:"threats"`
	Curriculum CurriculumConfig   `yaml:"curriculum"`
	Policy     PolicyConfig       `yaml:"policy"`
	Logging    LoggingConfig      `yaml:"logging"`
	Storage    StorageConfig      `yaml:"storage"`
}

// SimulationSettings holds the driver loop settings
type SimulationSettings struct {
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Episodes     int           `yaml:"episodes"`
	// MaxEpisodeTicks caps an episode that never terminates; 0 derives the
	// cap from the episode duration.
	MaxEpisodeTicks int `yaml:"max_episode_ticks"`
}

// AgentConfig mirrors agent.Config in YAML form
type AgentConfig struct {
	MaxTurnRate     float64       `yaml:"max_turn_rate"`
	SearchRadius    float64       `yaml:"search_radius"`
	SearchInterval  time.Duration `yaml:"search_interval"`
	Speed           float64       `yaml:"speed"`
	StartHeading    float64       `yaml:"start_heading"`
	HoldReward      float64       `yaml:"hold_reward"`
	WinReward       float64       `yaml:"win_reward"`
	LossReward      float64       `yaml:"loss_reward"`
	DistanceEpsilon float64       `yaml:"distance_epsilon"`
}

// ThreatConfig shapes the reference missile field
type ThreatConfig struct {
	RingRadius      float64 `yaml:"ring_radius"`
	TurnRate        float64 `yaml:"turn_rate"`
	SpeedScale      float64 `yaml:"speed_scale"`
	CollisionRadius float64 `yaml:"collision_radius"`
	Seed            int64   `yaml:"seed"`
}

// CurriculumConfig selects where episode difficulty comes from
type CurriculumConfig struct {
	Mode        string             `yaml:"mode"` // "lessons" or "fixed"
	File        string             `yaml:"file,omitempty"`
	StartLesson int                `yaml:"start_lesson"`
	Parameters  map[string]float64 `yaml:"parameters,omitempty"`
}

// PolicyConfig selects the action policy
type PolicyConfig struct {
	Name string `yaml:"name"`
	Seed int64  `yaml:"seed"`
}

// LoggingConfig defines console and file output
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"` // "debug", "info", "warn", "error"
	EpisodeLines bool   `yaml:"episode_lines"`
	HistoryLimit int    `yaml:"history_limit"`
	OutputDir    string `yaml:"output_dir,omitempty"`
}

// StorageConfig selects the episode store
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path,omitempty"`
}

// Validate checks if the configuration is valid
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.Simulation.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive")
	}
	if c.Simulation.MaxEpisodeTicks < 0 {
		return fmt.Errorf("max episode ticks must not be negative")
	}

	if err := c.AgentSettings().Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if c.Agent.Speed < 0 {
		return fmt.Errorf("agent: speed must not be negative")
	}

	if c.Threats.RingRadius <= 0 {
		return fmt.Errorf("threats: ring radius must be positive")
	}
	if c.Threats.TurnRate < 0 || c.Threats.SpeedScale < 0 || c.Threats.CollisionRadius < 0 {
		return fmt.Errorf("threats: turn rate, speed scale and collision radius must not be negative")
	}

	switch c.Curriculum.Mode {
	case CurriculumLessons:
		if c.Curriculum.StartLesson < 0 {
			return fmt.Errorf("curriculum: start lesson must not be negative")
		}
	case CurriculumFixed:
		for _, key := range curriculum.RequiredKeys {
			if _, ok := c.Curriculum.Parameters[key]; !ok {
				return fmt.Errorf("curriculum: fixed mode requires parameter %s", key)
			}
		}
	default:
		return fmt.Errorf("curriculum: mode must be %q or %q", CurriculumLessons, CurriculumFixed)
	}

	if _, err := policy.New(c.Policy.Name, c.Policy.Seed); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	switch c.Logging.ConsoleLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: invalid console level %q", c.Logging.ConsoleLevel)
	}

	switch c.Storage.Backend {
	case "", "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: sqlite backend requires a path")
		}
	default:
		return fmt.Errorf("storage: unsupported backend %q", c.Storage.Backend)
	}

	return nil
}

// AgentSettings converts the agent section into an agent.Config
func (c *SimulationConfig) AgentSettings() agent.Config {
	cfg := agent.DefaultConfig()
	cfg.MaxTurnRate = c.Agent.MaxTurnRate
	cfg.SearchRadius = c.Agent.SearchRadius
	cfg.SearchInterval = c.Agent.SearchInterval.Seconds()
	cfg.StartPosition = geom.Vec{}
	cfg.StartHeading = c.Agent.StartHeading
	cfg.HoldReward = c.Agent.HoldReward
	cfg.WinReward = c.Agent.WinReward
	cfg.LossReward = c.Agent.LossReward
	cfg.DistanceEpsilon = c.Agent.DistanceEpsilon
	return cfg
}

// ThreatSettings converts the threats section into a threat.Config
func (c *SimulationConfig) ThreatSettings() threat.Config {
	return threat.Config{
		RingRadius:      c.Threats.RingRadius,
		TurnRate:        c.Threats.TurnRate,
		SpeedScale:      c.Threats.SpeedScale,
		CollisionRadius: c.Threats.CollisionRadius,
		Seed:            c.Threats.Seed,
	}
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *SimulationConfig {
	defaults := agent.DefaultConfig()
	field := threat.DefaultConfig()

	return &SimulationConfig{
		Simulation: SimulationSettings{
			Name:         "evasion",
			Description:  "Evasive flight agent against homing missiles",
			TickInterval: 20 * time.Millisecond,
			Episodes:     50,
		},
		Agent: AgentConfig{
			MaxTurnRate:     defaults.MaxTurnRate,
			SearchRadius:    defaults.SearchRadius,
			SearchInterval:  time.Duration(defaults.SearchInterval * float64(time.Second)),
			Speed:           agent.DefaultSpeed,
			StartHeading:    defaults.StartHeading,
			HoldReward:      defaults.HoldReward,
			WinReward:       defaults.WinReward,
			LossReward:      defaults.LossReward,
			DistanceEpsilon: defaults.DistanceEpsilon,
		},
		Threats: ThreatConfig{
			RingRadius:      field.RingRadius,
			TurnRate:        field.TurnRate,
			SpeedScale:      field.SpeedScale,
			CollisionRadius: field.CollisionRadius,
			Seed:            field.Seed,
		},
		Curriculum: CurriculumConfig{
			Mode: CurriculumLessons,
		},
		Policy: PolicyConfig{
			Name: "evade",
			Seed: 1,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			EpisodeLines: true,
			HistoryLimit: 1000,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
	}
}

// String returns a summary of the configuration
func (c *SimulationConfig) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulation: %s (%s)\n", c.Simulation.Name, c.Simulation.Description)
	fmt.Fprintf(&b, "Episodes: %d, Tick: %v\n", c.Simulation.Episodes, c.Simulation.TickInterval)
	fmt.Fprintf(&b, "Agent: speed %.1f, turn %.0f°/s, search radius %.1f every %v\n",
		c.Agent.Speed, c.Agent.MaxTurnRate, c.Agent.SearchRadius, c.Agent.SearchInterval)
	fmt.Fprintf(&b, "Threats: ring %.1f, turn %.0f°/s, speed x%.1f, hit radius %.2f\n",
		c.Threats.RingRadius, c.Threats.TurnRate, c.Threats.SpeedScale, c.Threats.CollisionRadius)

	switch c.Curriculum.Mode {
	case CurriculumFixed:
		keys := make([]string, 0, len(c.Curriculum.Parameters))
		for k := range c.Curriculum.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%g", k, c.Curriculum.Parameters[k]))
		}
		fmt.Fprintf(&b, "Curriculum: fixed %s\n", strings.Join(parts, " "))
	default:
		file := c.Curriculum.File
		if file == "" {
			file = "default"
		}
		fmt.Fprintf(&b, "Curriculum: lessons from %s, starting at %d\n", file, c.Curriculum.StartLesson)
	}

	fmt.Fprintf(&b, "Policy: %s (seed %d)\n", c.Policy.Name, c.Policy.Seed)
	fmt.Fprintf(&b, "Storage: %s", c.Storage.Backend)
	if c.Storage.Path != "" {
		fmt.Fprintf(&b, " at %s", c.Storage.Path)
	}
	return b.String()
}
