package curriculum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Progress measures a lesson can be gated on
const (
	MeasureWinRate = "win_rate"
	MeasureReward  = "reward"
)

// Curriculum is a lesson plan: one value per lesson for each reset parameter
// and one threshold per lesson transition.
type Curriculum struct {
	Measure         string               `yaml:"measure"`
	Thresholds      []float64            `yaml:"thresholds"`
	MinLessonLength int                  `yaml:"min_lesson_length"`
	SignalSmoothing bool                 `yaml:"signal_smoothing"`
	Parameters      map[string][]float64 `yaml:"parameters"`
}

// Lessons returns the number of lessons in the plan
func (c *Curriculum) Lessons() int {
	return len(c.Thresholds) + 1
}

// Validate checks that every parameter list has one entry per lesson
func (c *Curriculum) Validate() error {
	if c.Measure != MeasureWinRate && c.Measure != MeasureReward {
		return fmt.Errorf("measure must be %q or %q", MeasureWinRate, MeasureReward)
	}
	if c.MinLessonLength < 0 {
		return fmt.Errorf("min lesson length must not be negative")
	}
	for _, key := range RequiredKeys {
		values, ok := c.Parameters[key]
		if !ok {
			return &MissingParameterError{Key: key}
		}
		if len(values) != c.Lessons() {
			return fmt.Errorf("parameter %s has %d values, expected %d", key, len(values), c.Lessons())
		}
	}
	return nil
}

// Keys returns the parameter names in a stable order
func (c *Curriculum) Keys() []string {
	keys := make([]string, 0, len(c.Parameters))
	for k := range c.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultCurriculum returns the built-in four lesson plan
func DefaultCurriculum() *Curriculum {
	return &Curriculum{
		Measure:         MeasureWinRate,
		Thresholds:      []float64{0.5, 0.6, 0.7},
		MinLessonLength: 20,
		SignalSmoothing: true,
		Parameters: map[string][]float64{
			KeyGoalTime:          {20, 30, 45, 60},
			KeyMissileAmount:     {2, 4, 8, 12},
			KeyMissileFuelAmount: {8, 10, 15, 20},
			KeyMissileSpeed:      {1, 2, 3, 4},
		},
	}
}

// DefaultPath returns $HOME/.evasion-sim/curriculum.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".evasion-sim", "curriculum.yaml"), nil
}

// LoadCurriculum reads a lesson plan. A missing file yields the default plan.
func LoadCurriculum(path string) (*Curriculum, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultCurriculum(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum file: %w", err)
	}

	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid curriculum: %w", err)
	}
	return &c, nil
}

// SaveCurriculum writes a lesson plan, creating parent directories
func SaveCurriculum(c *Curriculum, path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid curriculum: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create curriculum directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal curriculum: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write curriculum file: %w", err)
	}
	return nil
}

// LessonSource serves the parameters of the current lesson and advances
// through the plan as progress is reported.
type LessonSource struct {
	mu           sync.Mutex
	plan         *Curriculum
	lesson       int
	lessonLength int
	smoothed     float64
}

// NewLessonSource starts plan at lesson 0
func NewLessonSource(plan *Curriculum) *LessonSource {
	return &LessonSource{plan: plan}
}

// Lookup implements ParameterSource
func (s *LessonSource) Lookup(key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.plan.Parameters[key]
	if !ok || len(values) == 0 {
		return 0, false
	}
	if s.lesson >= len(values) {
		return values[len(values)-1], true
	}
	return values[s.lesson], true
}

// Lesson returns the zero-based current lesson
func (s *LessonSource) Lesson() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lesson
}

// SetLesson jumps to a lesson, clamped to the plan
func (s *LessonSource) SetLesson(lesson int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lesson < 0 {
		lesson = 0
	}
	if last := s.plan.Lessons() - 1; lesson > last {
		lesson = last
	}
	s.lesson = lesson
	s.lessonLength = 0
}

// Report records one episode's progress measure and reports whether the
// lesson advanced.
func (s *LessonSource) Report(measure float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lessonLength++
	if s.plan.SignalSmoothing {
		measure = s.smoothed*0.25 + measure*0.75
		s.smoothed = measure
	}

	if s.lesson >= len(s.plan.Thresholds) {
		return false
	}
	if s.lessonLength < s.plan.MinLessonLength || measure <= s.plan.Thresholds[s.lesson] {
		return false
	}

	s.lesson++
	s.lessonLength = 0
	return true
}
