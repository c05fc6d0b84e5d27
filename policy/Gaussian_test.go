package policy

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/distribution"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/solver"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func spec(t *testing.T, typ env.SpecType, size int) env.Spec {
	s, err := env.NewSpec(tensor.Shape{size}, typ, nil, nil, env.Continuous)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newPolicy(t *testing.T, init *initwfn.InitWFn) *Gaussian {
	s, err := solver.NewVanilla(0.01, 1, -1)
	if err != nil {
		t.Fatal(err)
	}

	c := Config{
		Gamma:               0.99,
		EntropyCoefficient:  0.01,
		GradSteps:           5,
		NormalizeAdvantages: true,
		Solver:              s,
		InitWFn:             init,
		Seed:                1,
	}
	p, err := New("policy", spec(t, env.Observation, 2),
		spec(t, env.Action, 2), c)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func dense(shape []int, data ...float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// fixedBatch returns a batch of two paths with a total of four steps
func fixedBatch() agent.Batch {
	return agent.Batch{
		{
			States:        dense([]int{3, 2}, 1, 0, 0, 1, 1, 1),
			Actions:       dense([]int{3, 2}, 0.5, -0.5, 1, 0, 0.2, 0.4),
			Rewards:       dense([]int{3}, 1, 0, 2),
			ActionMeans:   dense([]int{3, 2}, 0, 0, 0, 0, 0, 0),
			ActionLogStds: dense([]int{3, 2}, 0, 0, 0, 0, 0, 0),
			Terminated:    true,
		},
		{
			States:        dense([]int{1, 2}, -1, 0.5),
			Actions:       dense([]int{1, 2}, -1, 1),
			Rewards:       dense([]int{1}, -1),
			ActionMeans:   dense([]int{1, 2}, 0, 0),
			ActionLogStds: dense([]int{1, 2}, 0, 0),
			Terminated:    false,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	s, err := solver.NewDefaultAdam(0.01, 1)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		c    Config
	}{
		{"gamma", Config{Gamma: 1.5, GradSteps: 1, Solver: s}},
		{"entropy", Config{EntropyCoefficient: -1, GradSteps: 1, Solver: s}},
		{"gradSteps", Config{GradSteps: 0, Solver: s}},
		{"solver", Config{GradSteps: 1}},
	}
	for _, test := range tests {
		if err := test.c.Validate(); err == nil {
			t.Errorf("%v: expected error", test.name)
		}
	}
}

func TestNewIllegalObservation(t *testing.T) {
	s, err := solver.NewDefaultAdam(0.01, 1)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := env.NewSpec(tensor.Shape{2, 2}, env.Observation, nil, nil,
		env.Continuous)
	if err != nil {
		t.Fatal(err)
	}

	_, err = New("policy", obs, spec(t, env.Action, 2),
		Config{GradSteps: 1, Solver: s})
	if err == nil {
		t.Error("rank 2 observations: expected error")
	}
}

func TestGetAction(t *testing.T) {
	p := newPolicy(t, nil)
	p.SetDeterministic(true)

	action, outputs, err := p.GetAction(dense([]int{2}, 1, 2))
	if err != nil {
		t.Fatal(err)
	}

	// Zero weights give a standard normal whose mean is the action
	if !floats.Equal(action.Float64s(), []float64{0, 0}) {
		t.Errorf("action: want(%v) have(%v)", []float64{0, 0},
			action.Float64s())
	}
	if !outputs.ActionMeans.Shape().Eq(tensor.Shape{1, 2}) {
		t.Errorf("means shape: want(%v) have(%v)", tensor.Shape{1, 2},
			outputs.ActionMeans.Shape())
	}
	if !outputs.ActionLogStds.Shape().Eq(tensor.Shape{1, 2}) {
		t.Errorf("log stds shape: want(%v) have(%v)", tensor.Shape{1, 2},
			outputs.ActionLogStds.Shape())
	}

	if _, _, err := p.GetAction(dense([]int{3}, 1, 2, 3)); err == nil {
		t.Error("illegal state shape: expected error")
	}
}

func TestUpdateDecreasesLoss(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	p := newPolicy(t, init)
	batch := fixedBatch()

	before, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}
	headsBefore := p.Distribution().Heads()

	if err := p.Update(batch); err != nil {
		t.Fatal(err)
	}

	after, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}
	if after >= before {
		t.Errorf("loss did not decrease: before(%v) after(%v)", before, after)
	}

	if mat.Equal(headsBefore.MeanWeights, p.Distribution().Heads().MeanWeights) {
		t.Error("update did not change the mean weights")
	}
}

func TestLossMatchesDistribution(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.NewVanilla(0.01, 1, -1)
	if err != nil {
		t.Fatal(err)
	}
	p, err := New("policy", spec(t, env.Observation, 2),
		spec(t, env.Action, 2), Config{Gamma: 1, GradSteps: 1, Solver: s,
			InitWFn: init})
	if err != nil {
		t.Fatal(err)
	}

	// Single step path, advantage equals the reward
	batch := agent.Batch{{
		States:  dense([]int{1, 2}, 0.5, -1),
		Actions: dense([]int{1, 2}, 0.3, 0.1),
		Rewards: dense([]int{1}, 2),
	}}

	loss, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}

	params, err := p.Distribution().Parametrize(dense([]int{2}, 0.5, -1))
	if err != nil {
		t.Fatal(err)
	}
	logProb := p.Distribution().LogProbability(params,
		dense([]int{2}, 0.3, 0.1))
	want := -2 * floats.Sum(logProb.Float64s())

	if !floats.EqualApprox([]float64{want}, []float64{loss}, 1e-9) {
		t.Errorf("loss: want(%v) have(%v)", want, loss)
	}
}

// failingSolver fails every step without touching the model
type failingSolver struct{}

func (failingSolver) Step([]G.ValueGrad) error {
	return errors.New("step failed")
}

func TestFailedUpdateLeavesPolicyUsable(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	p := newPolicy(t, init)
	batch := fixedBatch()

	before, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}

	p.solver.Solver = failingSolver{}
	if err := p.Update(batch); err == nil {
		t.Fatal("expected update error")
	}

	// The failed update changed nothing and left a clean tape
	after, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox([]float64{before}, []float64{after}, 1e-12) {
		t.Errorf("loss changed by failed update: before(%v) after(%v)",
			before, after)
	}

	p.solver.Reset()
	if err := p.Update(batch); err != nil {
		t.Fatal(err)
	}
	updated, err := p.Loss(batch)
	if err != nil {
		t.Fatal(err)
	}
	if updated >= before {
		t.Errorf("loss did not decrease: before(%v) after(%v)", before,
			updated)
	}
}

func TestSaveLoadModel(t *testing.T) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	p := newPolicy(t, init)
	if err := p.Update(fixedBatch()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "model.bin")
	if err := p.SaveModel(path); err != nil {
		t.Fatal(err)
	}

	loaded := newPolicy(t, nil)
	if err := loaded.LoadModel(path); err != nil {
		t.Fatal(err)
	}

	want, have := p.Distribution().Heads(), loaded.Distribution().Heads()
	pairs := []struct {
		name       string
		want, have mat.Matrix
	}{
		{"mean weights", want.MeanWeights, have.MeanWeights},
		{"mean bias", want.MeanBias, have.MeanBias},
		{"log stddev weights", want.LogStddevWeights, have.LogStddevWeights},
		{"log stddev bias", want.LogStddevBias, have.LogStddevBias},
	}
	for _, pair := range pairs {
		if !mat.Equal(pair.want, pair.have) {
			t.Errorf("%v: want(%v) have(%v)", pair.name,
				mat.Formatted(pair.want), mat.Formatted(pair.have))
		}
	}

	if err := loaded.LoadModel(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("missing model: expected error")
	}
}

func TestUpdateThroughAgentOutputs(t *testing.T) {
	p := newPolicy(t, nil)

	// Outputs of GetAction can be concatenated into path tensors
	_, out1, err := p.GetAction(dense([]int{2}, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	_, out2, err := p.GetAction(dense([]int{2}, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	means, err := out1.ActionMeans.Concat(0, out2.ActionMeans)
	if err != nil {
		t.Fatal(err)
	}
	if !means.Shape().Eq(tensor.Shape{2, 2}) {
		t.Errorf("concatenated means: want(%v) have(%v)", tensor.Shape{2, 2},
			means.Shape())
	}

	var _ agent.Updater = p
	var _ distribution.Distribution = p.Distribution()
}
