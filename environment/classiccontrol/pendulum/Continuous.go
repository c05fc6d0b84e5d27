package pendulum

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
)

// Continuous implements the classic control environment Pendulum with
// continuous actions.
//
// Actions are 1-dimensional and determine the torque applied to the
// pendulum at its fixed base. Actions outside of
// [-TorqueBound, TorqueBound] are clipped.
//
// Continuous implements the environment.Environment interface
type Continuous struct {
	*base
}

// NewContinuous creates and returns a new Continuous environment along
// with the first timestep of the first episode
func NewContinuous(t Task, discount float64) (*Continuous, timestep.TimeStep,
	error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newContinuous: %v", err)
	}
	return &Continuous{baseEnv}, firstStep, nil
}

// Step takes one environmental step given action and returns the next
// timestep and whether the episode has ended
func (p *Continuous) Step(action *tensor.Dense) (timestep.TimeStep, bool,
	error) {
	torque := action.Float64s()
	if len(torque) != ActionDims {
		return timestep.TimeStep{}, false, fmt.Errorf("step: illegal "+
			"action size \n\twant(%v)\n\thave(%v)", ActionDims, len(torque))
	}

	step, last := p.update(p.nextState(torque[0]))
	return step, last, nil
}

// ActionSpec returns the action specification of the environment
func (p *Continuous) ActionSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{ActionDims},
		environment.Action, p.torqueBounds.Min, p.torqueBounds.Max,
		environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("actionSpec: %v", err))
	}
	return spec
}
