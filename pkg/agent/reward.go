package agent

import "math"

const (
	searchBonusRate  = 0.01
	searchBonusMin   = 0.01
	searchBonusMax   = 0.04
	proximityRate    = -0.03
	proximityPenalty = -0.03
	proximityMin     = -0.01
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// untrackedReward grows with time since a threat was last in range
func untrackedReward(timeSinceLastSeen float64) float64 {
	return clamp(searchBonusRate*timeSinceLastSeen, searchBonusMin, searchBonusMax)
}

// trackedReward penalizes closeness and time spent near a threat
func trackedReward(distanceSq, timeSpentTracking, epsilon float64) float64 {
	if distanceSq <= epsilon || math.IsNaN(distanceSq) {
		return proximityPenalty
	}
	return clamp(proximityRate*(1/distanceSq)*timeSpentTracking, proximityPenalty, proximityMin)
}

// searchReward is the reward of a poll tick that neither won nor held
func (a *Agent) searchReward() float64 {
	if a.tracking.Active == nil {
		return untrackedReward(a.tracking.TimeSinceLastSeen)
	}
	return trackedReward(a.tracking.DistanceSq, a.tracking.TimeSpentTracking, a.cfg.DistanceEpsilon)
}
