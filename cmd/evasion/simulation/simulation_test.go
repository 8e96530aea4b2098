package simulation

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/simulation"
	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

func fixedParams(dir string) map[string]interface{} {
	return map[string]interface{}{
		"episodes":                      3,
		"policy":                        "hold",
		"quiet":                         true,
		"output_dir":                    dir,
		curriculum.KeyGoalTime:          1.0,
		curriculum.KeyMissileAmount:     1,
		curriculum.KeyMissileFuelAmount: 0.0,
		curriculum.KeyMissileSpeed:      0.0,
	}
}

func newTestSimulation(t *testing.T, params map[string]interface{}) (*EvasionSimulation, *bytes.Buffer) {
	t.Helper()
	sim := NewEvasionSimulation().(*EvasionSimulation)
	out := &bytes.Buffer{}
	sim.out = out
	if err := sim.Configure(params); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return sim, out
}

func TestRegistered(t *testing.T) {
	sim, err := simulation.DefaultRegistry.Get(Name)
	if err != nil {
		t.Fatalf("expected %s to be registered: %v", Name, err)
	}
	if sim.Name() != Name {
		t.Errorf("expected name %s, got %s", Name, sim.Name())
	}
}

func TestRunFixedCurriculum(t *testing.T) {
	dir := t.TempDir()
	sim, out := newTestSimulation(t, fixedParams(dir))

	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	summary := sim.Recorder().GetSummary()
	if summary.Episodes != 3 || summary.Wins != 3 {
		t.Errorf("expected 3 won episodes, got %+v", summary)
	}
	if !strings.Contains(out.String(), "TRAINING SUMMARY") {
		t.Errorf("expected summary output, got %q", out.String())
	}
	if !strings.Contains(out.String(), "(3/3)") {
		t.Errorf("expected a finished progress bar, got %q", out.String())
	}

	stored, err := sim.Episodes(context.Background())
	if err != nil {
		t.Fatalf("Episodes failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored episodes, got %d", len(stored))
	}
	for i, rec := range stored {
		if rec.Outcome != telemetry.OutcomeWon {
			t.Errorf("episode %d: expected won, got %s", i+1, rec.Outcome)
		}
		if rec.Ticks < 50 || rec.Ticks > 51 {
			t.Errorf("episode %d: expected ~50 ticks, got %d", i+1, rec.Ticks)
		}
		if rec.Wins != i+1 || rec.Losses != 0 {
			t.Errorf("episode %d: expected cumulative wins %d, got %d/%d", i+1, i+1, rec.Wins, rec.Losses)
		}
		if rec.RunID != sim.RunID() {
			t.Errorf("episode %d: run id %s, want %s", i+1, rec.RunID, sim.RunID())
		}
	}

	csv, err := telemetry.ReadEpisodes(filepath.Join(dir, "episodes.csv"))
	if err != nil {
		t.Fatalf("ReadEpisodes failed: %v", err)
	}
	if len(csv) != 3 {
		t.Errorf("expected 3 csv rows, got %d", len(csv))
	}
}

func TestRunHonorsTickCap(t *testing.T) {
	params := fixedParams("")
	params["episodes"] = 1
	params["max_episode_ticks"] = 10
	sim, _ := newTestSimulation(t, params)

	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	episodes := sim.Recorder().Episodes()
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(episodes))
	}
	if episodes[0].Outcome != telemetry.OutcomeTimeout || episodes[0].Ticks != 10 {
		t.Errorf("expected timeout after 10 ticks, got %+v", episodes[0])
	}
}

func TestRunLessonsAdvance(t *testing.T) {
	dir := t.TempDir()
	plan := &curriculum.Curriculum{
		Measure:         curriculum.MeasureWinRate,
		Thresholds:      []float64{0.5},
		MinLessonLength: 1,
		Parameters: map[string][]float64{
			curriculum.KeyGoalTime:          {0.5, 0.5},
			curriculum.KeyMissileAmount:     {0, 1},
			curriculum.KeyMissileFuelAmount: {0, 0},
			curriculum.KeyMissileSpeed:      {0, 0},
		},
	}
	path := filepath.Join(dir, "curriculum.yaml")
	if err := curriculum.SaveCurriculum(plan, path); err != nil {
		t.Fatalf("SaveCurriculum failed: %v", err)
	}

	sim, _ := newTestSimulation(t, map[string]interface{}{
		"episodes":        2,
		"policy":          "hold",
		"quiet":           true,
		"curriculum_file": path,
	})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	episodes := sim.Recorder().Episodes()
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].Lesson != 0 || episodes[1].Lesson != 1 {
		t.Errorf("expected lessons 0 then 1, got %d and %d", episodes[0].Lesson, episodes[1].Lesson)
	}
	if episodes[1].ThreatCount != 1 {
		t.Errorf("expected lesson 1 threat count, got %d", episodes[1].ThreatCount)
	}
}

func TestStopBeforeRun(t *testing.T) {
	sim, _ := newTestSimulation(t, fixedParams(""))
	if err := sim.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := sim.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n := len(sim.Recorder().Episodes()); n != 0 {
		t.Errorf("expected no episodes after stop, got %d", n)
	}
}

func TestRunCancelledContext(t *testing.T) {
	sim, _ := newTestSimulation(t, fixedParams(""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestConfigureRejectsInvalid(t *testing.T) {
	sim := NewEvasionSimulation()
	if err := sim.Configure(map[string]interface{}{"storage": "postgres"}); err == nil {
		t.Error("expected error for unknown storage backend")
	}
}
