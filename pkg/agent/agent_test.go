package agent

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/picogrid/evasion-sim/pkg/curriculum"
	"github.com/picogrid/evasion-sim/pkg/geom"
)

const tick = 0.02

type fakeThreat struct {
	pos     geom.Vec
	heading float64
	dead    bool
}

func (f *fakeThreat) Position() geom.Vec { return f.pos }
func (f *fakeThreat) Heading() float64   { return f.heading }
func (f *fakeThreat) Active() bool       { return !f.dead }

type fakeRegistry struct {
	threats []Threat
}

func (r *fakeRegistry) LiveThreats() []Threat { return r.threats }

type fakeSpawner struct {
	calls []string
	cfg   LaunchConfig
}

func (s *fakeSpawner) Configure(cfg LaunchConfig) {
	s.calls = append(s.calls, "configure")
	s.cfg = cfg
}
func (s *fakeSpawner) Restart()    { s.calls = append(s.calls, "restart") }
func (s *fakeSpawner) DestroyAll() { s.calls = append(s.calls, "destroy") }

type recordingSink map[string][]float64

func (s recordingSink) Log(key string, value float64) { s[key] = append(s[key], value) }

func defaultParams() curriculum.MapSource {
	return curriculum.MapSource{
		curriculum.KeyGoalTime:          30,
		curriculum.KeyMissileAmount:     4,
		curriculum.KeyMissileFuelAmount: 10,
		curriculum.KeyMissileSpeed:      2,
	}
}

func newTestAgent(t *testing.T, cfg Config, src curriculum.MapSource, opts ...Option) *Agent {
	t.Helper()
	a, err := New(cfg, curriculum.NewController(src), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.ResetEpisode(); err != nil {
		t.Fatalf("ResetEpisode failed: %v", err)
	}
	return a
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchRadius = 0
	if _, err := New(cfg, curriculum.NewController(defaultParams())); err == nil {
		t.Error("expected error for zero search radius")
	}
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Error("expected error for missing controller")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   int
		want Action
		ok   bool
	}{
		{0, Hold, true},
		{1, TurnLeft, true},
		{2, TurnRight, true},
		{3, Hold, false},
		{-1, Hold, false},
	}
	for _, tt := range tests {
		got, ok := ParseAction(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAction(%d) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHoldRewardIsExact(t *testing.T) {
	reg := &fakeRegistry{threats: []Threat{&fakeThreat{pos: geom.Vec{X: 0, Y: 2}}}}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	for i := 0; i < 200; i++ {
		res := a.Step(int(Hold), tick)
		if res.Reward != 0.01 {
			t.Fatalf("tick %d: expected hold reward 0.01, got %v", i, res.Reward)
		}
	}
	if !a.Tracking().Tracking() {
		t.Error("holding should not stop the search poll")
	}
}

func TestUnknownActionIsHold(t *testing.T) {
	a := newTestAgent(t, DefaultConfig(), defaultParams())
	heading := a.Pose().Heading

	res := a.Step(7, tick)
	if res.Reward != 0.01 {
		t.Errorf("expected hold reward, got %v", res.Reward)
	}
	if a.Pose().Heading != heading {
		t.Errorf("unknown action should not turn, heading %v -> %v", heading, a.Pose().Heading)
	}
}

func TestUntrackedRewardRange(t *testing.T) {
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithSpeed(ConstantSpeed(0)))

	var last float64
	for i := 0; i < 300; i++ {
		res := a.Step(int(TurnLeft), tick)
		if res.Reward < 0.01 || res.Reward > 0.04 {
			t.Fatalf("tick %d: untracked reward %v outside [0.01, 0.04]", i, res.Reward)
		}
		last = res.Reward
	}
	if last != 0.04 {
		t.Errorf("expected search bonus to cap at 0.04, got %v", last)
	}
}

func TestTrackedRewardRange(t *testing.T) {
	reg := &fakeRegistry{threats: []Threat{&fakeThreat{pos: geom.Vec{X: 0, Y: 3}}}}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	for i := 0; i < 300; i++ {
		res := a.Step(int(TurnRight), tick)
		if !a.Tracking().Tracking() {
			t.Fatalf("tick %d: expected threat to stay tracked", i)
		}
		if res.Reward < -0.03 || res.Reward > -0.01 {
			t.Fatalf("tick %d: tracked reward %v outside [-0.03, -0.01]", i, res.Reward)
		}
	}
}

func TestRewardShapingFunctions(t *testing.T) {
	tests := []struct {
		name     string
		distSq   float64
		tracking float64
		want     float64
	}{
		{"unit distance one second", 1, 1, -0.03},
		{"just acquired", 9, 0, -0.01},
		{"far and brief", 25, 0.5, -0.01},
		{"close and long", 0.5, 10, -0.03},
		{"mid range", 1, 0.5, -0.015},
		{"zero distance", 0, 1, -0.03},
		{"below epsilon", 1e-9, 0, -0.03},
		{"nan distance", math.NaN(), 1, -0.03},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trackedReward(tt.distSq, tt.tracking, 1e-6)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("trackedReward(%v, %v) = %v, want %v", tt.distSq, tt.tracking, got, tt.want)
			}
		})
	}

	if got := untrackedReward(0); got != 0.01 {
		t.Errorf("untrackedReward(0) = %v", got)
	}
	if got := untrackedReward(2); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("untrackedReward(2) = %v", got)
	}
	if got := untrackedReward(100); got != 0.04 {
		t.Errorf("untrackedReward(100) = %v", got)
	}
}

func TestAcquisitionBoundary(t *testing.T) {
	cfg := DefaultConfig()
	r := cfg.SearchRadius

	tests := []struct {
		name    string
		pos     geom.Vec
		tracked bool
	}{
		{"just outside", geom.Vec{Y: math.Sqrt(r*r + 1e-6)}, false},
		{"far away", geom.Vec{X: 20, Y: 20}, false},
		{"inside", geom.Vec{X: 3, Y: -4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{threats: []Threat{&fakeThreat{pos: tt.pos}}}
			a := newTestAgent(t, cfg, defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))
			a.Step(int(Hold), tick)
			if got := a.Tracking().Tracking(); got != tt.tracked {
				t.Errorf("tracked = %v, want %v", got, tt.tracked)
			}
		})
	}
}

func TestNearestThreatWinsAndTiesKeepScanOrder(t *testing.T) {
	first := &fakeThreat{pos: geom.Vec{X: 2}}
	second := &fakeThreat{pos: geom.Vec{X: -2}}
	far := &fakeThreat{pos: geom.Vec{Y: 5}}
	dead := &fakeThreat{pos: geom.Vec{Y: 0.5}, dead: true}
	reg := &fakeRegistry{threats: []Threat{far, dead, first, second}}

	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))
	a.Step(int(Hold), tick)

	if a.Tracking().Active != first {
		t.Errorf("expected the first of the nearest threats to be tracked")
	}
	if a.DistanceToTargetSq() != 4 {
		t.Errorf("expected distance² 4, got %v", a.DistanceToTargetSq())
	}
}

func TestTrackingDropsBeyondRadius(t *testing.T) {
	threat := &fakeThreat{pos: geom.Vec{Y: 3}}
	reg := &fakeRegistry{threats: []Threat{threat}}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	for i := 0; i < 10; i++ {
		a.Step(int(Hold), tick)
	}
	tr := a.Tracking()
	if !tr.Tracking() || math.Abs(tr.TimeSpentTracking-9*tick) > 1e-9 {
		t.Fatalf("expected 9 polls of tracking time, got %+v", tr)
	}
	if tr.TimeSinceLastSeen != 0 {
		t.Errorf("time since last seen should reset on acquisition, got %v", tr.TimeSinceLastSeen)
	}

	// exactly on the radius keeps the lock
	threat.pos = geom.Vec{Y: 6}
	a.Step(int(Hold), tick)
	if !a.Tracking().Tracking() {
		t.Fatal("threat on the radius should stay tracked")
	}

	threat.pos = geom.Vec{Y: 6.01}
	a.Step(int(Hold), tick)
	tr = a.Tracking()
	if tr.Tracking() {
		t.Fatal("threat beyond the radius should be dropped")
	}
	if tr.TimeSpentTracking != 0 {
		t.Errorf("tracking time should reset on loss, got %v", tr.TimeSpentTracking)
	}
}

func TestInactiveThreatIsDropped(t *testing.T) {
	threat := &fakeThreat{pos: geom.Vec{Y: 1}}
	reg := &fakeRegistry{threats: []Threat{threat}}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	a.Step(int(Hold), tick)
	threat.dead = true
	a.Step(int(Hold), tick)
	if a.Tracking().Tracking() {
		t.Error("inactive threat should be dropped")
	}
}

func TestSearchPollCadence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchInterval = 0.1
	a := newTestAgent(t, cfg, defaultParams(), WithSpeed(ConstantSpeed(0)))

	var rewards []float64
	for i := 0; i < 11; i++ {
		rewards = append(rewards, a.Step(int(TurnLeft), tick).Reward)
	}

	for i, r := range rewards {
		polled := i%5 == 0
		if polled && r == 0 {
			t.Errorf("tick %d should have polled", i)
		}
		if !polled && r != 0 {
			t.Errorf("tick %d should not have polled, reward %v", i, r)
		}
	}
	if math.Abs(a.Tracking().TimeSinceLastSeen-0.3) > 1e-9 {
		t.Errorf("expected 3 polls worth of unseen time, got %v", a.Tracking().TimeSinceLastSeen)
	}
}

func TestEpisodeWinScenario(t *testing.T) {
	sink := recordingSink{}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithSink(sink))

	var res StepResult
	doneAt := -1
	for i := 0; i < int(31/tick); i++ {
		res = a.Step(int(Hold), tick)
		if res.Done && doneAt < 0 {
			doneAt = i + 1
		}
	}

	if !res.Done || res.Outcome != Won {
		t.Fatalf("expected episode to be won, got %+v", res)
	}
	if res.Reward != 10 {
		t.Errorf("expected win reward 10, got %v", res.Reward)
	}
	if doneAt < 1500 || doneAt > 1501 {
		t.Errorf("expected win after 30s of ticks, got tick %d", doneAt)
	}
	if a.Wins() != 1 || a.Losses() != 0 {
		t.Errorf("expected 1 win 0 losses, got %d/%d", a.Wins(), a.Losses())
	}
	if got := sink["WinCount"]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected one WinCount record, got %v", got)
	}
	if n := len(sink["Reward"]); n != doneAt {
		t.Errorf("expected %d reward records, got %d", doneAt, n)
	}
}

func TestWinBeatsTurningAndTracking(t *testing.T) {
	src := defaultParams()
	src[curriculum.KeyGoalTime] = tick
	reg := &fakeRegistry{threats: []Threat{&fakeThreat{pos: geom.Vec{Y: 1}}}}
	a := newTestAgent(t, DefaultConfig(), src, WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	res := a.Step(int(TurnLeft), tick)
	if !res.Done || res.Reward != 10 || a.Wins() != 1 {
		t.Fatalf("expected win on the first tick, got %+v wins=%d", res, a.Wins())
	}

	if a.NotifyCollision() {
		t.Error("collision after a win must be ignored")
	}
	if a.Losses() != 0 || a.Reward() != 10 || a.Status().Outcome != Won {
		t.Errorf("win was overridden: %+v reward=%v", a.Status(), a.Reward())
	}

	again := a.Step(int(Hold), tick)
	if a.Wins() != 1 || again.Reward != 10 || a.Ticks() != 1 {
		t.Errorf("stepping a finished episode must be a no-op")
	}
}

func TestCollisionEndsEpisode(t *testing.T) {
	sink := recordingSink{}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithSink(sink))
	a.Step(int(Hold), tick)

	if !a.NotifyCollision() {
		t.Fatal("expected collision to end the episode")
	}
	res := a.Result()
	if !res.Done || res.Outcome != Lost || res.Reward != -10 {
		t.Errorf("unexpected result after collision: %+v", res)
	}
	if a.NotifyCollision() || a.Losses() != 1 {
		t.Errorf("second collision must not double count, losses=%d", a.Losses())
	}
	if got := sink["LossCount"]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected one LossCount record, got %v", got)
	}
}

func TestResetEpisode(t *testing.T) {
	spawner := &fakeSpawner{}
	reg := &fakeRegistry{threats: []Threat{&fakeThreat{pos: geom.Vec{Y: 2}}}}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithThreats(reg), WithSpawner(spawner))

	if !reflect.DeepEqual(spawner.calls, []string{"destroy", "configure", "restart"}) {
		t.Errorf("unexpected spawner calls %v", spawner.calls)
	}
	want := LaunchConfig{Speed: 2, Endurance: 10, Launchers: 4, AutoFireInterval: 8}
	if spawner.cfg != want {
		t.Errorf("launch config = %+v, want %+v", spawner.cfg, want)
	}

	fresh := a.BuildState()
	for i := 0; i < 20; i++ {
		a.Step(int(TurnLeft), tick)
	}
	a.NotifyCollision()

	if err := a.ResetEpisode(); err != nil {
		t.Fatalf("ResetEpisode failed: %v", err)
	}
	if !reflect.DeepEqual(a.BuildState(), fresh) {
		t.Errorf("reset state %v differs from fresh %v", a.BuildState(), fresh)
	}
	if a.Tracking().Tracking() || a.Status().Done || a.Ticks() != 0 {
		t.Errorf("reset left episode state behind: %+v", a.Status())
	}
	if a.Pose() != (Pose{}) {
		t.Errorf("expected start pose, got %+v", a.Pose())
	}
	if a.Losses() != 1 {
		t.Errorf("loss count must survive reset, got %d", a.Losses())
	}

	if err := a.ResetEpisode(); err != nil {
		t.Fatalf("second ResetEpisode failed: %v", err)
	}
	if !reflect.DeepEqual(a.BuildState(), fresh) || a.Tracking() != (TrackingState{LastScanTime: -tick}) {
		t.Errorf("reset is not idempotent")
	}
}

func TestResetFailureLeavesAgentUntouched(t *testing.T) {
	src := defaultParams()
	a := newTestAgent(t, DefaultConfig(), src)
	a.Step(int(TurnLeft), tick)
	before := a.Result()
	pose := a.Pose()

	delete(src, curriculum.KeyMissileSpeed)
	err := a.ResetEpisode()
	if !errors.Is(err, curriculum.ErrMissingParameter) {
		t.Fatalf("expected missing parameter error, got %v", err)
	}
	if a.Episodes() != 1 || a.Pose() != pose || !reflect.DeepEqual(a.Result(), before) {
		t.Error("failed reset mutated the agent")
	}

	src[curriculum.KeyMissileSpeed] = -1
	if err := a.ResetEpisode(); !errors.Is(err, curriculum.ErrInvalidParameter) {
		t.Errorf("expected invalid parameter error, got %v", err)
	}
}

func TestBuildState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartHeading = 90
	threat := &fakeThreat{pos: geom.Vec{X: 3, Y: -3}, heading: 270}
	reg := &fakeRegistry{threats: []Threat{threat}}
	a := newTestAgent(t, cfg, defaultParams(), WithThreats(reg), WithSpeed(ConstantSpeed(0)))

	untracked := a.BuildState()
	if len(untracked) != StateSize {
		t.Fatalf("expected %d slots, got %d", StateSize, len(untracked))
	}
	if untracked[1] != 0 || untracked[2] != 0 || untracked[3] != 0 || untracked[4] != 0 {
		t.Errorf("threat slots must be zero while untracked: %v", untracked)
	}

	a.Step(int(Hold), tick)
	got := a.BuildState()
	want := []float64{-0.5, 1, 0.5, 0.5, -0.5, 0.5, 4.0 / 12, 2, 0.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("state[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if !reflect.DeepEqual(a.BuildState(), got) {
		t.Error("BuildState must not mutate the agent")
	}
}

func TestMotionIntegration(t *testing.T) {
	t.Run("turn rate", func(t *testing.T) {
		a := newTestAgent(t, DefaultConfig(), defaultParams(), WithSpeed(ConstantSpeed(0)))
		for i := 0; i < 50; i++ {
			a.Step(int(TurnLeft), tick)
		}
		if math.Abs(a.Pose().Heading-175) > 1e-9 {
			t.Errorf("expected heading 175 after 1s left, got %v", a.Pose().Heading)
		}
		for i := 0; i < 50; i++ {
			a.Step(int(TurnRight), tick)
		}
		if h := a.Pose().Heading; math.Abs(h) > 1e-9 && math.Abs(h-360) > 1e-9 {
			t.Errorf("expected heading back at 0, got %v", h)
		}
	})

	t.Run("translation", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StartHeading = 90
		a := newTestAgent(t, cfg, defaultParams())
		for i := 0; i < 50; i++ {
			a.Step(int(Hold), tick)
		}
		p := a.Pose().Position
		if math.Abs(p.X+6) > 1e-9 || math.Abs(p.Y) > 1e-9 {
			t.Errorf("expected (-6, 0) after 1s at heading 90, got %+v", p)
		}
	})

	t.Run("degenerate heading", func(t *testing.T) {
		a := newTestAgent(t, DefaultConfig(), defaultParams())
		a.pose.Heading = math.NaN()
		a.integrate(1)
		if a.Pose().Heading != 0 {
			t.Errorf("expected heading reset to 0, got %v", a.Pose().Heading)
		}
		if p := a.Pose().Position; geom.IsDegenerate(p) || math.Abs(p.Y-6) > 1e-9 {
			t.Errorf("expected position (0, 6), got %+v", p)
		}
	})
}

func TestTelemetryPerTick(t *testing.T) {
	sink := recordingSink{}
	a := newTestAgent(t, DefaultConfig(), defaultParams(), WithSink(sink))

	a.Step(int(TurnLeft), tick)
	a.Step(int(TurnRight), tick)

	if got := sink["Rotation"]; !reflect.DeepEqual(got, []float64{1, -1}) {
		t.Errorf("unexpected rotation records %v", got)
	}
	frac := sink["GoalTimeFraction"]
	if len(frac) != 2 || math.Abs(frac[1]-(30-2*tick)/30) > 1e-12 {
		t.Errorf("unexpected goal time fraction %v", frac)
	}
}

func TestPreconditionPanics(t *testing.T) {
	a, err := New(DefaultConfig(), curriculum.NewController(defaultParams()))
	if err != nil {
		t.Fatal(err)
	}

	assertPanics(t, "Step before reset", func() { a.Step(0, tick) })

	if err := a.ResetEpisode(); err != nil {
		t.Fatal(err)
	}
	assertPanics(t, "distance without target", func() { a.DistanceToTargetSq() })
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
