package agent

import (
	"fmt"
	"math"

	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

// ApplyAction stores the turn direction for this tick's motion. Hold also
// sets the hold reward.
func (a *Agent) ApplyAction(action Action) {
	a.turnSign = action.turnSign()
	if action == Hold {
		a.reward = a.cfg.HoldReward
	}
}

// Step advances the episode by dt seconds under the given action. Values
// outside {0,1,2} are treated as Hold. Stepping a finished episode changes
// nothing and returns its terminal result.
func (a *Agent) Step(action int, dt float64) StepResult {
	if a.episodes == 0 {
		panic("agent: Step called before ResetEpisode")
	}
	if a.status.Done {
		return a.Result()
	}

	act, ok := ParseAction(action)
	if !ok {
		a.log.Warnf("unknown action %d, holding", action)
	}

	a.reward = 0
	a.ApplyAction(act)
	a.integrate(dt)

	a.ticks++
	a.clock += dt
	a.status.RemainingTime -= dt
	polled := a.UpdateTracking()

	switch {
	case a.status.RemainingTime <= 0:
		a.reward = a.cfg.WinReward
		a.status.Done = true
		a.status.Outcome = Won
		a.status.Wins++
		a.sink.Log(telemetry.KeyWinCount, float64(a.status.Wins))
		a.log.Debugf("episode %d won after %d ticks", a.episodes, a.ticks)
	case act == Hold:
		a.reward = a.cfg.HoldReward
	case polled:
		a.reward = a.searchReward()
	}

	a.sink.Log(telemetry.KeyReward, a.reward)
	a.sink.Log(telemetry.KeyRotation, a.turnSign)
	a.sink.Log(telemetry.KeyGoalTimeFraction, a.goalTimeFraction())

	return a.Result()
}

func (a *Agent) goalTimeFraction() float64 {
	if a.status.Duration <= 0 {
		return 0
	}
	return math.Max(0, a.status.RemainingTime/a.status.Duration)
}

// NotifyCollision ends the episode as a loss. It is ignored, and reports
// false, when the episode has already finished.
func (a *Agent) NotifyCollision() bool {
	if a.episodes == 0 || a.status.Done {
		return false
	}

	a.reward = a.cfg.LossReward
	a.status.Done = true
	a.status.Outcome = Lost
	a.status.Losses++
	a.sink.Log(telemetry.KeyLossCount, float64(a.status.Losses))
	a.log.Debugf("episode %d lost after %d ticks", a.episodes, a.ticks)
	return true
}

// ResetEpisode samples new difficulty and starts a fresh episode. If sampling
// fails the agent is left untouched.
func (a *Agent) ResetEpisode() error {
	params, err := a.curriculum.Sample()
	if err != nil {
		return fmt.Errorf("reset episode: %w", err)
	}

	a.params = params
	a.pose = a.startPose()
	a.turnSign = 0
	a.reward = 0
	a.clock = 0
	a.ticks = 0
	a.tracking = TrackingState{LastScanTime: -a.cfg.SearchInterval}
	a.status = EpisodeStatus{
		Duration:      params.EpisodeDuration,
		RemainingTime: params.EpisodeDuration,
		Outcome:       Running,
		Wins:          a.status.Wins,
		Losses:        a.status.Losses,
	}
	a.episodes++

	if a.spawner != nil {
		a.spawner.DestroyAll()
		a.spawner.Configure(LaunchConfig{
			Speed:            params.ThreatSpeed,
			Endurance:        params.ThreatEndurance,
			Launchers:        params.ThreatCount,
			AutoFireInterval: math.Max(params.ThreatEndurance-2, 0),
		})
		a.spawner.Restart()
	}

	a.log.Debugf("episode %d: duration %.1fs, %d threats, speed %.2f, fuel %.1fs",
		a.episodes, params.EpisodeDuration, params.ThreatCount, params.ThreatSpeed, params.ThreatEndurance)
	return nil
}
