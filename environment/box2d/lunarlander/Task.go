package lunarlander

import (
	"math"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
)

// Task describes the starting states, rewards, and episode endings of
// a lunar lander environment
type Task interface {
	environment.Starter
	environment.Ender

	registerEnv(*lunarLander)
	reset()
	reward(state []float64) float64
}

// Land implements the task of landing the lander gently on the
// landing pad. Rewards are shaped by the distance to the pad, the
// speed, and the tilt of the lander, with bonuses for leg contact and
// penalties for firing the engines.
//
// Episodes end in a terminal state if the lander crashes, flies out
// of the viewport, or comes to rest. Otherwise, episodes are cut off
// after a fixed number of steps.
type Land struct {
	environment.Starter
	stepLimit environment.Ender

	prevShaping *float64

	env *lunarLander
}

// NewLand returns a new Land task with starting states drawn from s
// and episodes cut off after cutoff steps
func NewLand(s environment.Starter, cutoff int) *Land {
	return &Land{Starter: s, stepLimit: environment.NewStepLimit(cutoff)}
}

func (l *Land) registerEnv(env *lunarLander) {
	l.env = env
}

func (l *Land) reset() {
	l.prevShaping = nil
}

// crashed returns whether the lander hit the ground with its body or
// left the viewport
func (l *Land) crashed(state []float64) bool {
	return l.env.IsGameOver() || math.Abs(state[0]) >= 1.0
}

func (l *Land) reward(state []float64) float64 {
	shaping := (-100 * math.Sqrt(state[0]*state[0]+state[1]*state[1])) +
		(-100 * math.Sqrt(state[2]*state[2]+state[3]*state[3])) +
		(-100 * math.Abs(state[4])) +
		(10 * state[6]) +
		(10 * state[7])

	reward := 0.0
	if l.prevShaping != nil {
		reward = shaping - *l.prevShaping
	}
	l.prevShaping = &shaping

	// Less fuel spent is better
	reward -= l.env.MPower() * 0.30
	reward -= l.env.SPower() * 0.03

	if l.crashed(state) {
		reward = -100
	} else if !l.env.IsAwake() {
		reward = 100
	}
	return reward
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End() will modify the timestep so that its StepType
// field is timestep.Last and its EndType is the appropriate ending
// type.
func (l *Land) End(t *timestep.TimeStep) bool {
	if l.crashed(t.Observation.Float64s()) || !l.env.IsAwake() {
		t.StepType = timestep.Last
		t.EndType = timestep.TerminalStateReached
		return true
	}
	return l.stepLimit.End(t)
}
