package pointmass

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/timestep"
)

func newPointMass(t *testing.T, start []float64, steps int) *PointMass {
	bounds := make([]r1.Interval, len(start))
	for i := range bounds {
		bounds[i] = r1.Interval{Min: start[i], Max: start[i]}
	}
	s := environment.NewUniformStarter(bounds, 1)

	p, first, err := New(len(start), s, steps, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if !first.First() {
		t.Errorf("first step type: want(First) have(%v)", first.StepType)
	}
	return p
}

func action(a ...float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(a)), tensor.WithBacking(a))
}

func TestStep(t *testing.T) {
	p := newPointMass(t, []float64{1, -2}, 100)

	// The second force component is clipped to ForceBound
	step, last, err := p.Step(action(1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if last {
		t.Error("episode ended early")
	}

	want := []float64{1.1, -1.9}
	if !floats.EqualApprox(step.Observation.Float64s(), want, 1e-12) {
		t.Errorf("position: want(%v) have(%v)", want,
			step.Observation.Float64s())
	}
	if wantReward := -(1.1*1.1 + 1.9*1.9); !floats.EqualApprox(
		[]float64{step.Reward}, []float64{wantReward}, 1e-12) {
		t.Errorf("reward: want(%v) have(%v)", wantReward, step.Reward)
	}
	if step.Number != 1 {
		t.Errorf("step number: want(1) have(%v)", step.Number)
	}

	if _, _, err := p.Step(action(1)); err == nil {
		t.Error("illegal action size: expected error")
	}
}

func TestEpisodeEnds(t *testing.T) {
	tests := []struct {
		name    string
		start   []float64
		force   []float64
		steps   int
		endType timestep.EndType
	}{
		{"goal", []float64{0.15, 0}, []float64{-1, 0}, 100,
			timestep.TerminalStateReached},
		{"outOfBounds", []float64{4.95, 0}, []float64{1, 0}, 100,
			timestep.TerminalStateReached},
		{"timeout", []float64{2, 2}, []float64{0, 0}, 3, timestep.Timeout},
	}

	for _, test := range tests {
		p := newPointMass(t, test.start, test.steps)

		var step timestep.TimeStep
		var last bool
		var err error
		for i := 0; i < test.steps && !last; i++ {
			step, last, err = p.Step(action(test.force...))
			if err != nil {
				t.Fatal(err)
			}
		}

		if !last {
			t.Errorf("%v: episode did not end", test.name)
			continue
		}
		if step.EndType != test.endType {
			t.Errorf("%v: end type want(%v) have(%v)", test.name,
				test.endType, step.EndType)
		}
	}
}

func TestSpecs(t *testing.T) {
	p := newPointMass(t, []float64{0, 1, 2}, 10)

	action := p.ActionSpec()
	if !action.Shape.Eq(tensor.Shape{3}) || action.Cardinality !=
		environment.Continuous || action.UpperBound.AtVec(2) != ForceBound {
		t.Errorf("illegal action spec: %v", action)
	}

	obs := p.ObservationSpec()
	if obs.Type != environment.Observation || obs.LowerBound.AtVec(0) !=
		-PositionBound {
		t.Errorf("illegal observation spec: %v", obs)
	}
}
