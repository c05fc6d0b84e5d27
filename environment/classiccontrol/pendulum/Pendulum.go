// Package pendulum implements the pendulum classic control environment
package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
	"github.com/samuelfneumann/gopg/utils/floatutils"
)

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	dt              float64 = 0.05
	Gravity         float64 = 9.8
	Mass            float64 = 1.0
	Length          float64 = 1.0
	ActionDims      int     = 1
	ObservationDims int     = 2
)

// base implements the physics shared by pendulum environments. A
// pendulum is attached to a fixed base and swung by an underpowered
// torque, so it must be rocked back and forth to climb to the
// vertical.
//
// State features are the angle of the pendulum from the positive
// y-axis, wrapped to [-AngleBound, AngleBound], and the angular
// velocity clipped to [-SpeedBound, SpeedBound].
type base struct {
	Task
	dt           float64
	gravity      float64
	mass         float64
	length       float64
	angleBounds  r1.Interval
	speedBounds  r1.Interval
	torqueBounds r1.Interval
	lastStep     timestep.TimeStep
	discount     float64
}

func newBase(t Task, d float64) (*base, timestep.TimeStep, error) {
	if t == nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newBase: task " +
			"cannot be nil")
	}

	p := &base{
		Task:         t,
		dt:           dt,
		gravity:      Gravity,
		mass:         Mass,
		length:       Length,
		angleBounds:  r1.Interval{Min: -AngleBound, Max: AngleBound},
		speedBounds:  r1.Interval{Min: -SpeedBound, Max: SpeedBound},
		torqueBounds: r1.Interval{Min: -TorqueBound, Max: TorqueBound},
		discount:     d,
	}

	step, err := p.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newBase: %v", err)
	}
	return p, step, nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (p *base) LastTimeStep() timestep.TimeStep {
	return p.lastStep
}

// Reset resets the environment and returns a starting state drawn from
// the Starter
func (p *base) Reset() (timestep.TimeStep, error) {
	state := p.Start()
	if err := validateState(state, p.angleBounds, p.speedBounds); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	p.lastStep = timestep.New(timestep.First, 0, p.discount, state, 0)
	return p.lastStep, nil
}

// nextState computes the next state of the environment after applying
// torque to the fixed base of the pendulum. The torque is clipped to
// the torque bounds first.
func (p *base) nextState(torque float64) []float64 {
	obs := p.lastStep.Observation.Float64s()
	th, thdot := obs[0], obs[1]

	torque = floatutils.ClipInterval(torque, p.torqueBounds)

	newthdot := thdot + (-3*p.gravity/(2*p.length)*math.Sin(th+math.Pi)+
		3.0/(p.mass*math.Pow(p.length, 2))*torque)*p.dt
	newth := th + newthdot*p.dt

	newthdot = floatutils.ClipInterval(newthdot, p.speedBounds)
	newth = floatutils.Wrap(newth, p.angleBounds.Min, p.angleBounds.Max)

	return []float64{newth, newthdot}
}

// update moves the environment to newState
func (p *base) update(newState []float64) (timestep.TimeStep, bool) {
	obs := tensor.New(tensor.WithShape(ObservationDims),
		tensor.WithBacking(newState))
	step := timestep.New(timestep.Mid, p.GetReward(obs), p.discount, obs,
		p.lastStep.Number+1)
	p.End(&step)

	p.lastStep = step
	return step, step.Last()
}

// DiscountSpec returns the discount specification of the environment
func (p *base) DiscountSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{1},
		environment.Discount, p.discount, p.discount, environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("discountSpec: %v", err))
	}
	return spec
}

// ObservationSpec returns the observation specification of the
// environment
func (p *base) ObservationSpec() environment.Spec {
	lower := []float64{p.angleBounds.Min, p.speedBounds.Min}
	upper := []float64{p.angleBounds.Max, p.speedBounds.Max}

	spec, err := environment.NewSpec(tensor.Shape{ObservationDims},
		environment.Observation, vec(lower), vec(upper),
		environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("observationSpec: %v", err))
	}
	return spec
}

// String converts the environment to a string representation
func (p *base) String() string {
	obs := p.lastStep.Observation.Float64s()
	return fmt.Sprintf("Pendulum  |  theta: %v  |  theta dot: %v", obs[0],
		obs[1])
}

// validateState validates the state to ensure that the angle and
// angular velocity are within the environmental limits
func validateState(obs *tensor.Dense, angleBounds,
	speedBounds r1.Interval) error {
	if !obs.Shape().Eq(tensor.Shape{ObservationDims}) {
		return fmt.Errorf("state must have shape (%v): %v", ObservationDims,
			obs.Shape())
	}

	state := obs.Float64s()
	if state[0] < angleBounds.Min || state[0] > angleBounds.Max {
		return fmt.Errorf("theta %v is not within bounds %v", state[0],
			angleBounds)
	}
	if state[1] < speedBounds.Min || state[1] > speedBounds.Max {
		return fmt.Errorf("theta dot %v is not within bounds %v", state[1],
			speedBounds)
	}
	return nil
}

func vec(x []float64) *mat.VecDense {
	return mat.NewVecDense(len(x), x)
}
