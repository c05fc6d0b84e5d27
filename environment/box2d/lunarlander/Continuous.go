package lunarlander

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
)

// Continuous implements the lunar lander environment with continuous
// actions. In this environment, an agent flies a ship within a
// bounding box viewport. At the bottom of the viewport is the moon,
// which has a flat landing pad at its center.
//
// State observations are vectors of the following 8 features:
//
//	1. The x distance from the lander to the center of the viewport,
//	   in [-1, 1]
//	2. The y distance from the lander's legs to the landing pad,
//	   normalized by the distance from the pad to the top of the
//	   viewport
//	3. The x velocity of the lander
//	4. The y velocity of the lander
//	5. The angle of the lander, wrapped to [-π, π)
//	6. The angular velocity of the lander
//	7. Whether the left leg has contact with the ground, in {0, 1}
//	8. Whether the right leg has contact with the ground, in {0, 1}
//
// Unlike the OpenAI Gym implementation, a boundary surrounds the
// viewport so that the lander cannot leave it, and the observation
// bounds take the velocity limits of Box2D into account.
//
// The Starter of the Task must return vectors of 3 elements within
// StartBounds(): the starting x and y positions of the lander in the
// Box2D world and the magnitude of the random force initially applied
// to the lander. DefaultStarter returns the standard starting
// configuration.
//
// Actions are 2-dimensional. The first coordinate is the power of the
// main engine: [-1, 0] leaves the engine off while (0, 1] throttles it
// from 50% to 100% power. The second coordinate fires the orientation
// engines: [-1, -0.5) fires the left engine from 100% to 50% power,
// [-0.5, 0.5] leaves both engines off, and (0.5, 1] fires the right
// engine from 50% to 100% power. Actions are clipped to [-1, 1].
//
// Continuous implements the environment.Environment interface.
type Continuous struct {
	*lunarLander
}

// NewContinuous returns a new lunar lander environment with continuous
// actions along with the first timestep of the first episode
func NewContinuous(task Task, discount float64,
	seed uint64) (*Continuous, timestep.TimeStep, error) {
	l, step, err := newLunarLander(task, discount, seed)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newContinuous: %v", err)
	}
	return &Continuous{l}, step, nil
}

// Step takes one environmental step given a 2-dimensional action
func (c *Continuous) Step(action *tensor.Dense) (timestep.TimeStep, bool,
	error) {
	return c.step(action.Float64s())
}

// ActionSpec returns the action specification of the environment
func (c *Continuous) ActionSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{2},
		environment.Action, MinContinuousAction, MaxContinuousAction,
		environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("actionSpec: %v", err))
	}
	return spec
}
