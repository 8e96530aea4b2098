package agent

import "github.com/picogrid/evasion-sim/pkg/geom"

// normalizeHeading maps degrees onto [-1, 1)
func normalizeHeading(deg float64) float64 {
	return geom.NormalizeDegrees(deg)/180.0 - 1
}

// BuildState returns the observation for the next policy decision. The
// tracked-threat slots are zero while nothing is tracked.
func (a *Agent) BuildState() []float64 {
	state := make([]float64, StateSize)
	state[0] = normalizeHeading(a.pose.Heading)

	if t := a.tracking.Active; t != nil {
		offset := geom.Offset(a.pose.Position, t.Position())
		state[1] = 1
		state[2] = normalizeHeading(t.Heading())
		state[3] = offset.X / a.cfg.SearchRadius
		state[4] = offset.Y / a.cfg.SearchRadius
	}

	s := a.cfg.Scales
	state[5] = a.params.EpisodeDuration / s.GoalTime
	state[6] = float64(a.params.ThreatCount) / s.ThreatCount
	state[7] = a.params.ThreatSpeed / s.ThreatSpeed
	state[8] = a.params.ThreatEndurance / s.ThreatEndurance
	return state
}
