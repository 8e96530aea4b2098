package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/logger"
)

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from path, then the usual locations, then
// falls back to defaults. Environment overrides are always applied.
func LoadConfigOrDefault(path string) (*SimulationConfig, error) {
	var config *SimulationConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			logger.Warnf("Could not load config from %s: %v", path, err)
			config = nil
		}
	}

	if config == nil {
		defaultPaths := []string{
			"evasion.yaml",
			filepath.Join("cmd", "evasion", "config.yaml"),
			"config.yaml",
		}

		for _, p := range defaultPaths {
			if _, statErr := os.Stat(p); statErr != nil {
				continue
			}
			if config, err = LoadConfig(p); err == nil {
				logger.Debugf("Loaded config from: %s", p)
				break
			}
			config = nil
		}
	}

	if config == nil {
		logger.Debug("Using default configuration")
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *SimulationConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithCLIOverrides applies scenario parameters collected by the CLI
func MergeWithCLIOverrides(config *SimulationConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "episodes":
			if count, ok := value.(int); ok && count > 0 {
				config.Simulation.Episodes = count
			}
		case "tick_interval":
			if d, ok := value.(time.Duration); ok && d > 0 {
				config.Simulation.TickInterval = d
			}
		case "max_episode_ticks":
			if n, ok := value.(int); ok && n >= 0 {
				config.Simulation.MaxEpisodeTicks = n
			}
		case "policy":
			if name, ok := value.(string); ok && name != "" {
				config.Policy.Name = strings.ToLower(name)
			}
		case "seed":
			if seed, ok := value.(int); ok {
				config.Policy.Seed = int64(seed)
				config.Threats.Seed = int64(seed)
			}
		case "speed":
			if speed, ok := value.(float64); ok && speed >= 0 {
				config.Agent.Speed = speed
			}
		case "search_radius":
			if r, ok := value.(float64); ok && r > 0 {
				config.Agent.SearchRadius = r
			}
		case "curriculum_file":
			if file, ok := value.(string); ok && file != "" {
				config.Curriculum.File = file
				config.Curriculum.Mode = CurriculumLessons
			}
		case "start_lesson":
			if lesson, ok := value.(int); ok && lesson >= 0 {
				config.Curriculum.StartLesson = lesson
			}
		case curriculum.KeyGoalTime, curriculum.KeyMissileAmount, curriculum.KeyMissileFuelAmount, curriculum.KeyMissileSpeed:
			if v, ok := toFloat(value); ok {
				if config.Curriculum.Parameters == nil {
					config.Curriculum.Parameters = make(map[string]float64)
				}
				config.Curriculum.Parameters[key] = v
				config.Curriculum.Mode = CurriculumFixed
			}
		case "output_dir":
			if dir, ok := value.(string); ok && dir != "" {
				config.Logging.OutputDir = dir
			}
		case "storage":
			if backend, ok := value.(string); ok && backend != "" {
				config.Storage.Backend = backend
			}
		case "storage_path":
			if path, ok := value.(string); ok && path != "" {
				config.Storage.Path = path
			}
		case "log_level":
			if level, ok := value.(string); ok && validLevel(level) {
				config.Logging.ConsoleLevel = strings.ToLower(level)
			}
		case "quiet":
			if quiet, ok := value.(bool); ok {
				config.Logging.EpisodeLines = !quiet
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and CLI overrides
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*SimulationConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// MergeWithEnvironment applies EVASION_* environment overrides
func MergeWithEnvironment(config *SimulationConfig) {
	if v := os.Getenv("EVASION_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Simulation.TickInterval = d
		}
	}

	if v := os.Getenv("EVASION_EPISODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Simulation.Episodes = n
		}
	}

	if v := os.Getenv("EVASION_MAX_EPISODE_TICKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Simulation.MaxEpisodeTicks = n
		}
	}

	if v := os.Getenv("EVASION_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			config.Agent.Speed = f
		}
	}

	if v := os.Getenv("EVASION_SEARCH_RADIUS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			config.Agent.SearchRadius = f
		}
	}

	if v := os.Getenv("EVASION_POLICY"); v != "" {
		config.Policy.Name = strings.ToLower(v)
	}

	if v := os.Getenv("EVASION_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Policy.Seed = seed
			config.Threats.Seed = seed
		}
	}

	if v := os.Getenv("EVASION_CURRICULUM_FILE"); v != "" {
		config.Curriculum.File = v
		config.Curriculum.Mode = CurriculumLessons
	}

	if v := os.Getenv("EVASION_START_LESSON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Curriculum.StartLesson = n
		}
	}

	if v := os.Getenv("EVASION_OUTPUT_DIR"); v != "" {
		config.Logging.OutputDir = v
	}

	if v := os.Getenv("EVASION_STORAGE"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}

	if v := os.Getenv("EVASION_STORAGE_PATH"); v != "" {
		config.Storage.Path = v
	}

	if v := os.Getenv("EVASION_LOG_LEVEL"); v != "" && validLevel(v) {
		config.Logging.ConsoleLevel = strings.ToLower(v)
	}
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
