package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/simulation"
)

// DescriptorFile is the scenario descriptor looked for under cmd/
const DescriptorFile = "simulation.yaml"

// SimulationInfo is a discovered scenario descriptor
type SimulationInfo struct {
	Path   string
	Config simulation.SimulationConfig
}

// DiscoverSimulations scans <project root>/cmd for scenario descriptors
func DiscoverSimulations() ([]SimulationInfo, error) {
	rootDir, err := FindProjectRoot()
	if err != nil {
		return nil, err
	}
	return DiscoverSimulationsIn(filepath.Join(rootDir, "cmd"))
}

// DiscoverSimulationsIn scans dir recursively. Unreadable or invalid
// descriptors are logged and skipped.
func DiscoverSimulationsIn(dir string) ([]SimulationInfo, error) {
	var found []SimulationInfo

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != DescriptorFile {
			return nil
		}

		info, err := LoadSimulationConfig(path)
		if err != nil {
			logger.Warnf("skipping %s: %v", path, err)
			return nil
		}
		found = append(found, *info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for simulations: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Config.Name < found[j].Config.Name })
	return found, nil
}

// FindSimulation returns the descriptor registered under name
func FindSimulation(name string) (*SimulationInfo, error) {
	sims, err := DiscoverSimulations()
	if err != nil {
		return nil, err
	}
	for i := range sims {
		if sims[i].Config.Name == name {
			return &sims[i], nil
		}
	}
	return nil, fmt.Errorf("no %s found for simulation %s", DescriptorFile, name)
}

// LoadSimulationConfig reads and validates one descriptor
func LoadSimulationConfig(path string) (*SimulationInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation config: %w", err)
	}

	var config simulation.SimulationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse simulation config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SimulationInfo{Path: filepath.Dir(path), Config: config}, nil
}

// FindProjectRoot walks up from the working directory to the nearest go.mod
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
