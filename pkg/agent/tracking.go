package agent

import (
	"math"

	"github.com/picogrid/evasion-sim/pkg/geom"
)

// pollSlack absorbs float drift when the tick length equals the poll interval
const pollSlack = 1e-9

func (a *Agent) threatDistanceSq(t Threat) float64 {
	if t == nil || !t.Active() {
		return math.Inf(1)
	}
	return geom.DistanceSq(a.pose.Position, t.Position())
}

// UpdateTracking runs a search poll if SearchInterval of sim time has passed
// since the last one, and reports whether it did.
func (a *Agent) UpdateTracking() bool {
	if a.clock-a.tracking.LastScanTime+pollSlack < a.cfg.SearchInterval {
		return false
	}
	a.tracking.LastScanTime = a.clock
	a.poll()
	return true
}

// poll acquires the nearest threat strictly inside the search radius, or
// drops the held threat once it is beyond the radius.
func (a *Agent) poll() {
	interval := a.cfg.SearchInterval
	radiusSq := a.cfg.SearchRadius * a.cfg.SearchRadius

	if a.tracking.Active == nil {
		a.tracking.TimeSinceLastSeen += interval

		var nearest Threat
		best := math.Inf(1)
		for _, t := range a.threats.LiveThreats() {
			d := a.threatDistanceSq(t)
			if d < radiusSq && d < best {
				nearest, best = t, d
			}
		}
		if nearest == nil {
			return
		}

		a.tracking.Active = nearest
		a.tracking.DistanceSq = best
		a.tracking.TimeSinceLastSeen = 0
		a.tracking.TimeSpentTracking = 0
		a.log.Debugf("acquired threat at %.2f", math.Sqrt(best))
		return
	}

	d := a.threatDistanceSq(a.tracking.Active)
	if d > radiusSq {
		a.log.Debugf("lost threat after %.2fs", a.tracking.TimeSpentTracking)
		a.tracking.Active = nil
		a.tracking.DistanceSq = 0
		a.tracking.TimeSpentTracking = 0
		return
	}
	a.tracking.DistanceSq = d
	a.tracking.TimeSpentTracking += interval
}
