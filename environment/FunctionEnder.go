package environment

import (
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/timestep"
)

// FunctionEnder ends an episode whenever a function of the observation
// returns true.
type FunctionEnder struct {
	end     func(*tensor.Dense) bool
	endType timestep.EndType
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes with
// end type endType when f returns true.
func NewFunctionEnder(f func(*tensor.Dense) bool,
	endType timestep.EndType) *FunctionEnder {
	return &FunctionEnder{f, endType}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode temrination. If the episode
// should be ended, End() will modify the timestep so that its StepType
// field is timestep.Last and its EndType is the appropriate ending
// type.
func (f *FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.end(t.Observation) {
		t.StepType = timestep.Last
		t.EndType = f.endType
		return true
	}
	return false
}

// MultiEnder ends an episode when any of its Enders does. Enders are
// consulted in order and the first to end the episode sets its
// EndType.
type MultiEnder []Ender

// End implements the Ender interface
func (m MultiEnder) End(t *timestep.TimeStep) bool {
	for _, ender := range m {
		if ender.End(t) {
			return true
		}
	}
	return false
}
