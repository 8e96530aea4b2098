package curriculum

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Reset parameter keys read at the start of every episode
const (
	KeyGoalTime          = "GoalTime"
	KeyMissileAmount     = "MissileAmount"
	KeyMissileFuelAmount = "MissileFuelAmount"
	KeyMissileSpeed      = "MissileSpeed"
)

// RequiredKeys lists every key Sample reads, in lookup order
var RequiredKeys = []string{KeyGoalTime, KeyMissileAmount, KeyMissileFuelAmount, KeyMissileSpeed}

// ErrMissingParameter is matched by every MissingParameterError
var ErrMissingParameter = errors.New("missing curriculum parameter")

// ErrInvalidParameter is matched by every InvalidParameterError
var ErrInvalidParameter = errors.New("invalid curriculum parameter")

// MissingParameterError reports a required key absent from the source
type MissingParameterError struct {
	Key string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing curriculum parameter %q", e.Key)
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// InvalidParameterError reports a key whose value is outside its domain
type InvalidParameterError struct {
	Key    string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid curriculum parameter %q=%g: %s", e.Key, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Parameters is one episode's difficulty
type Parameters struct {
	EpisodeDuration float64 // seconds, > 0
	ThreatCount     int
	ThreatSpeed     float64
	ThreatEndurance float64 // seconds of missile fuel
}

// ParameterSource is the external key/value store difficulty is read from
type ParameterSource interface {
	Lookup(key string) (float64, bool)
}

// MapSource is a fixed ParameterSource
type MapSource map[string]float64

// Lookup implements ParameterSource
func (m MapSource) Lookup(key string) (float64, bool) {
	v, ok := m[key]
	return v, ok
}

// Controller derives Parameters from a ParameterSource and remembers the
// last successful sample for observers.
type Controller struct {
	mu      sync.RWMutex
	source  ParameterSource
	current Parameters
	sampled bool
}

// NewController creates a controller bound to source
func NewController(source ParameterSource) *Controller {
	return &Controller{source: source}
}

// Sample reads all four parameters. Nothing is stored unless every key is
// present and valid.
func (c *Controller) Sample() (Parameters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return Parameters{}, fmt.Errorf("curriculum has no parameter source: %w", ErrMissingParameter)
	}

	values := make(map[string]float64, len(RequiredKeys))
	for _, key := range RequiredKeys {
		v, ok := c.source.Lookup(key)
		if !ok {
			return Parameters{}, &MissingParameterError{Key: key}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Parameters{}, &InvalidParameterError{Key: key, Value: v, Reason: "must be finite"}
		}
		values[key] = v
	}

	if values[KeyGoalTime] <= 0 {
		return Parameters{}, &InvalidParameterError{Key: KeyGoalTime, Value: values[KeyGoalTime], Reason: "must be positive"}
	}
	for _, key := range []string{KeyMissileAmount, KeyMissileFuelAmount, KeyMissileSpeed} {
		if values[key] < 0 {
			return Parameters{}, &InvalidParameterError{Key: key, Value: values[key], Reason: "must not be negative"}
		}
	}

	c.current = Parameters{
		EpisodeDuration: values[KeyGoalTime],
		ThreatCount:     int(values[KeyMissileAmount]),
		ThreatSpeed:     values[KeyMissileSpeed],
		ThreatEndurance: values[KeyMissileFuelAmount],
	}
	c.sampled = true
	return c.current, nil
}

// Current returns the last sampled parameters
func (c *Controller) Current() Parameters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Sampled reports whether Sample has succeeded at least once
func (c *Controller) Sampled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sampled
}

// Source returns the bound parameter source
func (c *Controller) Source() ParameterSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}
