// Package environment outlines the interfaces and sturcts needed to implement
// concrete environments
package environment

import (
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *tensor.Dense
}

// Ender determines when an episode ends. End modifies the TimeStep so
// that its StepType is Last and its EndType describes the ending.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simualted environment that an agent acts in
type Environment interface {
	Reset() (timestep.TimeStep, error) // Resets between episodes
	Step(action *tensor.Dense) (timestep.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}
