package agent

import "github.com/picogrid/evasion-sim/pkg/geom"

// integrate turns by the stored sign and advances along the new heading
func (a *Agent) integrate(dt float64) {
	heading := geom.NormalizeDegrees(a.pose.Heading + a.turnSign*a.cfg.MaxTurnRate*dt)

	forward := geom.Forward(heading)
	if geom.IsDegenerate(forward) {
		a.log.Warnf("degenerate heading %v, resetting to default forward", heading)
		heading = 0
		forward = geom.DefaultForward
	}

	speed := a.speed.CurrentSpeed()
	a.pose.Heading = heading
	a.pose.Position = geom.Advance(a.pose.Position, forward, speed*dt)
}
