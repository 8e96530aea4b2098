// Package telemetry receives the per-tick key/value stream emitted by the
// evasion agent and the per-episode outcomes emitted by the training driver.
package telemetry

// Keys emitted by the agent every tick
const (
	KeyReward           = "Reward"
	KeyRotation         = "Rotation"
	KeyGoalTimeFraction = "GoalTimeFraction"
	KeyWinCount         = "WinCount"
	KeyLossCount        = "LossCount"
)

// Sink is a fire-and-forget destination for named scalar series
type Sink interface {
	Log(key string, value float64)
}

// Nop discards everything
type Nop struct{}

// Log implements Sink
func (Nop) Log(string, float64) {}

// Fanout forwards every record to each sink in order
type Fanout []Sink

// Log implements Sink
func (f Fanout) Log(key string, value float64) {
	for _, s := range f {
		if s != nil {
			s.Log(key, value)
		}
	}
}
