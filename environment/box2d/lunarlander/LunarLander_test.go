package lunarlander

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
)

func newEnv(t *testing.T, cutoff int) (*Continuous, timestep.TimeStep) {
	env, step, err := NewContinuous(NewLand(DefaultStarter(1), cutoff), 0.99,
		1)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	return env, step
}

func action(main, side float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(2),
		tensor.WithBacking([]float64{main, side}))
}

func TestReset(t *testing.T) {
	env, step := newEnv(t, 100)

	if !step.First() || step.Number != 0 {
		t.Errorf("first step: want(First, 0) have(%v, %v)", step.StepType,
			step.Number)
	}
	if !step.Observation.Shape().Eq(tensor.Shape{StateObservations}) {
		t.Errorf("observation shape: want(%v) have(%v)", StateObservations,
			step.Observation.Shape())
	}

	// The lander starts near the top center of the viewport
	obs := step.Observation.Float64s()
	if math.Abs(obs[0]) > 0.1 || obs[1] <= 0 {
		t.Errorf("unexpected starting position: (%v, %v)", obs[0], obs[1])
	}
	if obs[6] != 0 || obs[7] != 0 {
		t.Error("legs should not touch the ground at the start")
	}

	// Resetting again starts a new episode
	if _, _, err := env.Step(action(0, 0)); err != nil {
		t.Fatal(err)
	}
	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() || env.LastTimeStep().Number != 0 {
		t.Error("reset did not start a new episode")
	}
}

func TestIllegalStart(t *testing.T) {
	bounds := []r1.Interval{
		{Min: -5, Max: -5},
		{Min: InitialY, Max: InitialY},
		{Min: InitialRandom, Max: InitialRandom},
	}
	task := NewLand(environment.NewUniformStarter(bounds, 1), 10)
	if _, _, err := NewContinuous(task, 0.99, 1); err == nil {
		t.Error("expected error for a start outside the viewport")
	}

	if _, _, err := NewContinuous(nil, 0.99, 1); err == nil {
		t.Error("expected error for a nil task")
	}
}

func TestStep(t *testing.T) {
	env, _ := newEnv(t, 100)

	if _, _, err := env.Step(tensor.New(tensor.WithShape(3),
		tensor.WithBacking([]float64{0, 0, 0}))); err == nil {
		t.Error("expected error for an illegal action size")
	}

	tests := []struct {
		main, side     float64
		mPower, sPower float64
	}{
		{0, 0, 0, 0},
		{-1, 0.4, 0, 0},
		{1, 0, 1, 0},
		{0.2, 0.7, 0.6, 0.7},
		{5, -5, 1, 1}, // clipped
	}

	for i, test := range tests {
		step, last, err := env.Step(action(test.main, test.side))
		if err != nil {
			t.Fatal(err)
		}
		if last {
			t.Fatalf("step %v: episode ended early", i)
		}
		if step.Number != i+1 {
			t.Errorf("step number: want(%v) have(%v)", i+1, step.Number)
		}
		if math.Abs(env.MPower()-test.mPower) > 1e-12 ||
			math.Abs(env.SPower()-test.sPower) > 1e-12 {
			t.Errorf("action (%v, %v): want power (%v, %v) have (%v, %v)",
				test.main, test.side, test.mPower, test.sPower,
				env.MPower(), env.SPower())
		}
	}
}

func TestTimeout(t *testing.T) {
	const cutoff = 5
	env, _ := newEnv(t, cutoff)

	for i := 1; i <= cutoff; i++ {
		step, last, err := env.Step(action(0, 0))
		if err != nil {
			t.Fatal(err)
		}
		if last != (i == cutoff) {
			t.Fatalf("step %v: last(%v)", i, last)
		}
		if last && step.EndType != timestep.Timeout {
			t.Errorf("end type: want(%v) have(%v)", timestep.Timeout,
				step.EndType)
		}
	}
}

func TestFallingLanderTerminates(t *testing.T) {
	const cutoff = 2000
	env, _ := newEnv(t, cutoff)

	// Without its engines the lander falls until it crashes or comes
	// to rest
	var step timestep.TimeStep
	for last := false; !last; {
		var err error
		step, last, err = env.Step(action(-1, 0))
		if err != nil {
			t.Fatal(err)
		}
	}

	if step.Number >= cutoff || step.EndType != timestep.TerminalStateReached {
		t.Errorf("episode should end in a terminal state: step(%v) end(%v)",
			step.Number, step.EndType)
	}
	if math.Abs(step.Reward) != 100 {
		t.Errorf("terminal reward: want(±100) have(%v)", step.Reward)
	}
}

func TestSpecs(t *testing.T) {
	env, _ := newEnv(t, 10)

	actionSpec := env.ActionSpec()
	if !actionSpec.Shape.Eq(tensor.Shape{2}) || !actionSpec.Bounded() {
		t.Errorf("action spec: %v", actionSpec)
	}
	obsSpec := env.ObservationSpec()
	if !obsSpec.Shape.Eq(tensor.Shape{StateObservations}) {
		t.Errorf("observation spec: %v", obsSpec)
	}
	if d := env.DiscountSpec().LowerBound.AtVec(0); d != 0.99 {
		t.Errorf("discount: want(0.99) have(%v)", d)
	}

	// Observations stay within the observation bounds
	for i := 0; i < 50; i++ {
		step, last, err := env.Step(action(1, 1))
		if err != nil {
			t.Fatal(err)
		}
		for j, v := range step.Observation.Float64s() {
			if v < obsSpec.LowerBound.AtVec(j) ||
				v > obsSpec.UpperBound.AtVec(j) {
				t.Errorf("feature %v out of bounds: %v", j, v)
			}
		}
		if last {
			break
		}
	}
}

func TestRender(t *testing.T) {
	env, _ := newEnv(t, 10)
	filename := filepath.Join(t.TempDir(), "frame.png")

	if err := env.Render(filename); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
		t.Errorf("frame not saved: %v", err)
	}
}
