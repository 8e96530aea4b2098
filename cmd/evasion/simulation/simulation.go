package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/evasion-sim/cmd/evasion/config"
	"github.com/picogrid/evasion-sim/pkg/agent"
	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/geom"
	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/policy"
	"github.com/picogrid/evasion-sim/pkg/simulation"
	"github.com/picogrid/evasion-sim/pkg/storage"
	"github.com/picogrid/evasion-sim/pkg/telemetry"
	"github.com/picogrid/evasion-sim/pkg/threat"
)

// Name is the registered scenario name
const Name = "evasion"

// EvasionSimulation trains the evasion agent against the reference missile
// field for a fixed number of episodes.
type EvasionSimulation struct {
	config *config.SimulationConfig
	out    io.Writer
	log    logger.Logger

	// per-run components
	runID    string
	ctrl     *curriculum.Controller
	lessons  *curriculum.LessonSource
	plan     *curriculum.Curriculum
	agent    *agent.Agent
	field    *threat.Field
	policy   policy.Policy
	recorder *telemetry.Recorder
	output   *telemetry.OutputManager
	store    storage.Store

	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewEvasionSimulation creates a scenario with the default configuration
func NewEvasionSimulation() simulation.Simulation {
	return &EvasionSimulation{
		config:   config.GetDefaultConfig(),
		out:      os.Stdout,
		log:      logger.WithPrefix(Name),
		stopChan: make(chan struct{}),
	}
}

// Name returns the simulation name
func (s *EvasionSimulation) Name() string {
	return Name
}

// Description returns the simulation description
func (s *EvasionSimulation) Description() string {
	return "Evasive flight agent trained against curriculum-scaled homing missiles"
}

// Configure loads the scenario config (optionally from params["config_file"])
// and applies the remaining params as overrides.
func (s *EvasionSimulation) Configure(params map[string]interface{}) error {
	path, _ := params["config_file"].(string)

	cfg, err := config.LoadConfigWithOverrides(path, params)
	if err != nil {
		return fmt.Errorf("failed to configure %s: %w", Name, err)
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))
	s.log.Debugf("Configuration:\n%s", cfg)
	return nil
}

// Config returns the active configuration
func (s *EvasionSimulation) Config() *config.SimulationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// RunID returns the identifier of the current or last run
func (s *EvasionSimulation) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Recorder returns the telemetry recorder of the current or last run
func (s *EvasionSimulation) Recorder() *telemetry.Recorder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorder
}

// Run trains for the configured number of episodes
func (s *EvasionSimulation) Run(ctx context.Context) error {
	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize simulation: %w", err)
	}
	defer s.shutdown()

	cfg := s.Config()
	s.log.Infof("Starting run %s: %d episodes with policy %s", s.runID, cfg.Simulation.Episodes, cfg.Policy.Name)

	// Quiet runs draw a progress bar instead of one line per episode
	var bar *logger.ProgressBar
	if !cfg.Logging.EpisodeLines {
		bar = logger.NewProgressBarTo(s.out, !color.NoColor, cfg.Simulation.Episodes, "Training")
	}

	for episode := 1; episode <= cfg.Simulation.Episodes; episode++ {
		select {
		case <-ctx.Done():
			s.finishProgress(bar)
			s.log.Info("Run cancelled by context")
			return ctx.Err()
		case <-s.stopChan:
			s.finishProgress(bar)
			s.log.Info("Run stopped by user")
			s.recorder.PrintSummary(s.out)
			return nil
		default:
		}

		rec, err := s.runEpisode(episode)
		if err != nil {
			return fmt.Errorf("episode %d: %w", episode, err)
		}
		if err := s.persist(ctx, rec); err != nil {
			return fmt.Errorf("episode %d: %w", episode, err)
		}
		s.reportProgress(rec)
		if bar != nil {
			bar.SetMessage(fmt.Sprintf("Training (lesson %d)", rec.Lesson))
			bar.Increment()
		}
	}

	s.finishProgress(bar)
	s.recorder.PrintSummary(s.out)
	return nil
}

func (s *EvasionSimulation) finishProgress(bar *logger.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}

// initialize builds the per-run components from the configuration
func (s *EvasionSimulation) initialize(ctx context.Context) error {
	cfg := s.Config()

	source, err := s.parameterSource(cfg)
	if err != nil {
		return err
	}

	pol, err := policy.New(cfg.Policy.Name, cfg.Policy.Seed)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	recorder := telemetry.NewRecorder(runID, cfg.Logging.HistoryLimit)
	if cfg.Logging.EpisodeLines {
		recorder.SetOutput(s.out)
	} else {
		recorder.SetOutput(nil)
	}

	output, err := telemetry.NewOutputManager(cfg.Logging.OutputDir)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		_ = output.Close()
		return err
	}
	if err := store.Init(ctx); err != nil {
		_ = output.Close()
		return fmt.Errorf("failed to initialize %s store: %w", cfg.Storage.Backend, err)
	}

	ctrl := curriculum.NewController(source)

	var ag *agent.Agent
	field := threat.NewField(cfg.ThreatSettings(), func() geom.Vec { return ag.Pose().Position }, s.log.WithPrefix("threats"))
	ag, err = agent.New(cfg.AgentSettings(), ctrl,
		agent.WithThreats(field),
		agent.WithSpawner(field),
		agent.WithSpeed(agent.ConstantSpeed(cfg.Agent.Speed)),
		agent.WithSink(recorder),
		agent.WithLogger(s.log.WithPrefix("agent")),
	)
	if err != nil {
		_ = output.Close()
		_ = storage.CloseIfSupported(store)
		return err
	}

	s.mu.Lock()
	s.runID = runID
	s.ctrl = ctrl
	s.agent = ag
	s.field = field
	s.policy = pol
	s.recorder = recorder
	s.output = output
	s.store = store
	s.mu.Unlock()

	return nil
}

// parameterSource returns the lesson plan or the fixed parameters
func (s *EvasionSimulation) parameterSource(cfg *config.SimulationConfig) (curriculum.ParameterSource, error) {
	if cfg.Curriculum.Mode == config.CurriculumFixed {
		s.lessons, s.plan = nil, nil
		return curriculum.MapSource(cfg.Curriculum.Parameters), nil
	}

	path := cfg.Curriculum.File
	if path == "" {
		p, err := curriculum.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	plan, err := curriculum.LoadCurriculum(path)
	if err != nil {
		return nil, err
	}

	lessons := curriculum.NewLessonSource(plan)
	lessons.SetLesson(cfg.Curriculum.StartLesson)
	s.lessons, s.plan = lessons, plan
	s.log.Debugf("Curriculum: %d lessons from %s, starting at %d", plan.Lessons(), path, lessons.Lesson())
	return lessons, nil
}

// runEpisode drives one episode to termination or the tick cap
func (s *EvasionSimulation) runEpisode(episode int) (telemetry.EpisodeRecord, error) {
	cfg := s.Config()
	lesson := 0
	if s.lessons != nil {
		lesson = s.lessons.Lesson()
	}

	if err := s.agent.ResetEpisode(); err != nil {
		return telemetry.EpisodeRecord{}, err
	}
	params := s.agent.Parameters()

	dt := cfg.Simulation.TickInterval.Seconds()
	maxTicks := cfg.Simulation.MaxEpisodeTicks
	if maxTicks == 0 {
		maxTicks = int(math.Ceil(params.EpisodeDuration/dt)) + 1
	}

	state := s.agent.BuildState()
	var result agent.StepResult
	var episodeReturn float64
	for tick := 0; tick < maxTicks; tick++ {
		result = s.agent.Step(s.policy.SelectAction(state), dt)
		if !result.Done && s.field.Advance(dt) {
			s.agent.NotifyCollision()
			result = s.agent.Result()
		}

		episodeReturn += result.Reward
		state = result.State
		if result.Done {
			break
		}
	}

	outcome := telemetry.OutcomeTimeout
	switch result.Outcome {
	case agent.Won:
		outcome = telemetry.OutcomeWon
	case agent.Lost:
		outcome = telemetry.OutcomeLost
	}

	return telemetry.EpisodeRecord{
		RunID:           s.runID,
		EpisodeID:       uuid.NewString(),
		Episode:         episode,
		Lesson:          lesson,
		Outcome:         outcome,
		Return:          episodeReturn,
		Ticks:           s.agent.Ticks(),
		Duration:        s.agent.Clock(),
		GoalTime:        params.EpisodeDuration,
		ThreatCount:     params.ThreatCount,
		ThreatSpeed:     params.ThreatSpeed,
		ThreatEndurance: params.ThreatEndurance,
		Wins:            s.agent.Wins(),
		Losses:          s.agent.Losses(),
		FinishedAt:      time.Now(),
	}, nil
}

// persist fans a finished episode out to the recorder, CSV and store
func (s *EvasionSimulation) persist(ctx context.Context, rec telemetry.EpisodeRecord) error {
	s.recorder.RecordEpisode(rec)
	if err := s.output.WriteEpisode(rec); err != nil {
		return err
	}
	if err := s.store.SaveEpisode(ctx, rec); err != nil {
		return fmt.Errorf("failed to save episode: %w", err)
	}
	return nil
}

// reportProgress feeds the lesson plan and logs lesson changes
func (s *EvasionSimulation) reportProgress(rec telemetry.EpisodeRecord) {
	if s.lessons == nil {
		return
	}

	measure := rec.Return
	if s.plan.Measure == curriculum.MeasureWinRate {
		measure = 0
		if rec.Outcome == telemetry.OutcomeWon {
			measure = 1
		}
	}

	if s.lessons.Report(measure) {
		logger.Successf("Advanced to lesson %d after episode %d", s.lessons.Lesson(), rec.Episode)
	}
}

// shutdown flushes and closes run outputs
func (s *EvasionSimulation) shutdown() {
	s.field.DestroyAll()
	if err := s.output.Close(); err != nil {
		s.log.Warnf("Failed to close episode output: %v", err)
	}
	if err := storage.CloseIfSupported(s.store); err != nil {
		s.log.Warnf("Failed to close store: %v", err)
	}
}

// Episodes returns the stored episodes of the current or last run
func (s *EvasionSimulation) Episodes(ctx context.Context) ([]telemetry.EpisodeRecord, error) {
	s.mu.RLock()
	store, runID := s.store, s.runID
	s.mu.RUnlock()

	if store == nil {
		return nil, errors.New("simulation has not run")
	}
	return store.ListEpisodes(ctx, runID)
}

// Stop ends the run after the current episode
func (s *EvasionSimulation) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return nil
}

func init() {
	if err := simulation.DefaultRegistry.Register(Name, NewEvasionSimulation); err != nil {
		logger.Errorf("Failed to register %s simulation: %v", Name, err)
	}
}
