package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
)

// Task implements the reward scheme and episode ends of a pendulum
// environment
type Task interface {
	environment.Starter
	environment.Ender
	GetReward(state *tensor.Dense) float64
	RewardSpec() environment.Spec
}

// SwingUp implements a task where the agent must swing the pendulum up
// and hold it in a vertical position. Rewards are the cosine of the
// pendulum angle measured from the positive y-axis, so the agent gets
// a reward of 1.0 on each timestep the pendulum points straight up.
// Episodes end only by the step limit.
type SwingUp struct {
	environment.Starter
	environment.Ender
}

// NewSwingUp creates and returns a new SwingUp task
func NewSwingUp(s environment.Starter, maxSteps int) *SwingUp {
	return &SwingUp{s, environment.NewStepLimit(maxSteps)}
}

// DefaultStarter returns a Starter which draws the starting angle
// uniformly from [-π, π] and the starting angular velocity from
// [-1, 1]
func DefaultStarter(seed uint64) environment.Starter {
	bounds := []r1.Interval{
		{Min: -AngleBound, Max: AngleBound},
		{Min: -1, Max: 1},
	}
	return environment.NewUniformStarter(bounds, seed)
}

// GetReward gets the reward for transitioning into state
func (s *SwingUp) GetReward(state *tensor.Dense) float64 {
	return math.Cos(state.Float64s()[0])
}

// AtGoal determines whether or not state is the goal state
func (s *SwingUp) AtGoal(state *tensor.Dense) bool {
	return state.Float64s()[0] == 0
}

// Min returns the minimum possible reward
func (s *SwingUp) Min() float64 {
	return -1.0
}

// Max returns the maximum possible reward
func (s *SwingUp) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification of the Task
func (s *SwingUp) RewardSpec() environment.Spec {
	spec, err := environment.NewBoundedSpec(tensor.Shape{1},
		environment.Reward, s.Min(), s.Max(), environment.Continuous)
	if err != nil {
		panic(fmt.Sprintf("rewardSpec: %v", err))
	}
	return spec
}
