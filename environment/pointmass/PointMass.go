// Package pointmass implements a continuous control environment in
// which a point must be pushed to the origin
package pointmass

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
	"github.com/samuelfneumann/gopg/utils/floatutils"
)

// default physical constants
const (
	PositionBound float64 = 5.0 // +/- Position bounds
	ForceBound    float64 = 1.0 // +/- Force bounds
	GoalRadius    float64 = 0.1

	dt float64 = 0.1
)

// PointMass implements a point in a d-dimensional box. On each step,
// a force bounded by ForceBound in each dimension moves the point, and
// the agent is rewarded by the negative squared distance of the point
// to the origin.
//
// Observations are the position of the point. Episodes end when the
// point is within GoalRadius of the origin or leaves the box
// [-PositionBound, PositionBound]^d, both of which are terminal, or
// when the step limit is reached.
//
// PointMass implements the environment.Environment interface
type PointMass struct {
	environment.Starter
	environment.Ender

	dims        int
	forceBounds r1.Interval
	discount    float64
	lastStep    timestep.TimeStep
}

// New creates and returns a new PointMass environment in dims
// dimensions along with the first timestep of the first episode
func New(dims int, s environment.Starter, episodeSteps int,
	discount float64) (*PointMass, timestep.TimeStep, error) {
	if dims < 1 {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: dimensions must "+
			"be positive: %v", dims)
	}
	if episodeSteps < 1 {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: episode steps "+
			"must be positive: %v", episodeSteps)
	}

	limits := make([]r1.Interval, dims)
	indices := make([]int, dims)
	for i := range limits {
		limits[i] = r1.Interval{Min: -PositionBound, Max: PositionBound}
		indices[i] = i
	}
	outOfBounds, err := environment.NewIntervalLimit(limits, indices,
		timestep.TerminalStateReached)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	goal := environment.NewFunctionEnder(func(obs *tensor.Dense) bool {
		x := obs.Float64s()
		return math.Sqrt(floats.Dot(x, x)) < GoalRadius
	}, timestep.TerminalStateReached)

	p := &PointMass{
		Starter: s,
		Ender: environment.MultiEnder{
			goal,
			outOfBounds,
			environment.NewStepLimit(episodeSteps),
		},
		dims:        dims,
		forceBounds: r1.Interval{Min: -ForceBound, Max: ForceBound},
		discount:    discount,
	}

	step, err := p.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return p, step, nil
}

// Reset resets the environment and returns a starting state drawn from
// the Starter
func (p *PointMass) Reset() (timestep.TimeStep, error) {
	state := p.Start()
	if environment.Size(state.Shape()) != p.dims {
		return timestep.TimeStep{}, fmt.Errorf("reset: starting state "+
			"must have %v features: %v", p.dims, state.Shape())
	}

	p.lastStep = timestep.New(timestep.First, 0, p.discount, state, 0)
	return p.lastStep, nil
}

// Step takes one environmental step given some action. Each component
// of the action is clipped to [-ForceBound, ForceBound].
func (p *PointMass) Step(action *tensor.Dense) (timestep.TimeStep, bool,
	error) {
	force := action.Float64s()
	if len(force) != p.dims {
		return timestep.TimeStep{}, false, fmt.Errorf("step: illegal "+
			"action size \n\twant(%v)\n\thave(%v)", p.dims, len(force))
	}

	position := p.lastStep.Observation.Float64s()
	next := make([]float64, p.dims)
	for i := range next {
		next[i] = position[i] + dt*floatutils.ClipInterval(force[i],
			p.forceBounds)
	}

	obs := tensor.New(tensor.WithShape(p.dims), tensor.WithBacking(next))
	step := timestep.New(timestep.Mid, -floats.Dot(next, next), p.discount,
		obs, p.lastStep.Number+1)
	p.End(&step)

	p.lastStep = step
	return step, step.Last(), nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (p *PointMass) LastTimeStep() timestep.TimeStep {
	return p.lastStep
}

// ObservationSpec returns the observation specification of the
// environment
func (p *PointMass) ObservationSpec() environment.Spec {
	return p.spec(environment.Observation, -PositionBound, PositionBound)
}

// ActionSpec returns the action specification of the environment
func (p *PointMass) ActionSpec() environment.Spec {
	return p.spec(environment.Action, p.forceBounds.Min, p.forceBounds.Max)
}

// DiscountSpec returns the discount specification of the environment
func (p *PointMass) DiscountSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{1},
		environment.Discount, p.discount, p.discount, environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("discountSpec: %v", err))
	}
	return spec
}

func (p *PointMass) spec(t environment.SpecType, min,
	max float64) environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{p.dims}, t, min,
		max, environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("spec: %v", err))
	}
	return spec
}

// String converts the environment to a string representation
func (p *PointMass) String() string {
	return fmt.Sprintf("PointMass  |  position: %v  |  step: %v",
		p.lastStep.Observation.Float64s(), p.lastStep.Number)
}
