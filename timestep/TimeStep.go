// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gorgonia.org/tensor"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended on a Last TimeStep
type EndType int

const (
	// TerminalStateReached denotes that the environment reached a
	// terminal state
	TerminalStateReached EndType = iota

	// Timeout denotes that the episode was cut off by a step limit
	Timeout

	// Unknown is used for TimeSteps that are not Last
	Unknown
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Discount    float64
	Observation *tensor.Dense
	Number      int
}

// New returns a new TimeStep. The EndType of the TimeStep is Unknown
// until an Ender marks it as Last.
func New(t StepType, r, d float64, o *tensor.Dense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		EndType:     Unknown,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
	}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// TerminalEnd returns whether the episode ended in a terminal state
func (t *TimeStep) TerminalEnd() bool {
	return t.Last() && t.EndType == TerminalStateReached
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
