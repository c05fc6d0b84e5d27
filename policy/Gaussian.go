// Package policy implements agent.Updaters which own a parametrized
// policy and learn it from batches of paths.
package policy

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/buffer/returns"
	"github.com/samuelfneumann/gopg/distribution"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/solver"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Gaussian implements a linear Gaussian policy learned with REINFORCE.
// States are used directly as the embeddings of a Gaussian
// distribution, whose mean and log standard deviation are affine in
// the state.
//
// The distribution holds the current policy parameters. On each update,
// its heads are loaded into a computational graph of the policy
// gradient loss, the loss is minimized for a fixed number of gradient
// steps, and the learned weights are written back to the distribution.
type Gaussian struct {
	dist *distribution.Gaussian

	features int
	outputs  int

	gamma         float64
	entropyCoeff  float64
	gradSteps     int
	normalize     bool
	deterministic bool
	solver        *solver.Solver

	train *trainGraph
}

// New creates and returns a new Gaussian policy which acts in states
// described by observationSpec. The observation spec must have rank
// 1.
func New(name string, observationSpec, actionSpec env.Spec,
	c Config) (*Gaussian, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if len(observationSpec.Shape) != 1 {
		return nil, fmt.Errorf("new: observations must have rank 1: %v",
			observationSpec.Shape)
	}

	dist, err := distribution.NewGaussian(name, actionSpec,
		observationSpec.Shape, c.InitWFn, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	outputs, features := dist.Heads().MeanWeights.Dims()

	return &Gaussian{
		dist:          dist,
		features:      features,
		outputs:       outputs,
		gamma:         c.Gamma,
		entropyCoeff:  c.EntropyCoefficient,
		gradSteps:     c.GradSteps,
		normalize:     c.NormalizeAdvantages,
		deterministic: c.Deterministic,
		solver:        c.Solver,
	}, nil
}

// Distribution returns the distribution which defines the policy
func (g *Gaussian) Distribution() *distribution.Gaussian {
	return g.dist
}

// SetDeterministic sets whether the policy returns its mean action
func (g *Gaussian) SetDeterministic(deterministic bool) {
	g.deterministic = deterministic
}

// GetAction implements the agent.Updater interface
func (g *Gaussian) GetAction(state *tensor.Dense) (*tensor.Dense,
	agent.Outputs, error) {
	params, err := g.dist.Parametrize(state)
	if err != nil {
		return nil, agent.Outputs{}, fmt.Errorf("getAction: %v", err)
	}

	temperature := 1.0
	if g.deterministic {
		temperature = 0.0
	}
	action := g.dist.Sample(params, temperature)

	// Outputs carry a leading batch axis
	shape := append([]int{1}, params.Shape()...)
	means := params.Mean.Clone().(*tensor.Dense)
	if err := means.Reshape(shape...); err != nil {
		return nil, agent.Outputs{}, fmt.Errorf("getAction: %v", err)
	}
	logStds := params.LogStddev.Clone().(*tensor.Dense)
	if err := logStds.Reshape(shape...); err != nil {
		return nil, agent.Outputs{}, fmt.Errorf("getAction: %v", err)
	}

	return action, agent.Outputs{ActionMeans: means, ActionLogStds: logStds},
		nil
}

// Update implements the agent.Updater interface
func (g *Gaussian) Update(batch agent.Batch) error {
	if batch.Steps() == 0 {
		return nil
	}
	if err := g.load(batch); err != nil {
		return fmt.Errorf("update: %v", err)
	}

	for i := 0; i < g.gradSteps; i++ {
		if err := g.step(); err != nil {
			return fmt.Errorf("update: %v", err)
		}
	}

	if err := g.dist.SetHeads(g.train.heads()); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	return nil
}

// step takes a single gradient step on the loaded batch. The tape is
// reset even if the step fails.
func (g *Gaussian) step() error {
	defer g.train.vm.Reset()

	if _, err := g.train.run(); err != nil {
		return err
	}
	return g.solver.Step(g.train.model())
}

// Loss returns the policy gradient loss of the current policy on a
// batch without changing the policy
func (g *Gaussian) Loss(batch agent.Batch) (float64, error) {
	if err := g.load(batch); err != nil {
		return 0, fmt.Errorf("loss: %v", err)
	}
	defer g.train.vm.Reset()
	return g.train.run()
}

// load loads a batch and the current distribution heads into the
// training graph, constructing the graph if the batch size changed
func (g *Gaussian) load(batch agent.Batch) error {
	steps := batch.Steps()
	if g.train == nil || g.train.steps != steps {
		train, err := newTrainGraph(steps, g.features, g.outputs,
			g.entropyCoeff)
		if err != nil {
			return err
		}
		if g.train != nil {
			g.train.vm.Close()
		}
		g.train = train
		g.solver.Reset()
	}

	states := make([]float64, 0, steps*g.features)
	actions := make([]float64, 0, steps*g.outputs)
	for _, path := range batch {
		states = append(states, path.States.Float64s()...)
		actions = append(actions, path.Actions.Float64s()...)
	}
	advantages := returns.Advantages(batch, g.gamma, g.normalize)

	if err := g.train.setBatch(states, actions, advantages); err != nil {
		return err
	}
	return g.train.setHeads(g.dist.Heads())
}

// SaveModel implements the agent.Updater interface. The distribution
// heads are gob encoded to the file at path.
func (g *Gaussian) SaveModel(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saveModel: %v", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(g.dist.Heads()); err != nil {
		return fmt.Errorf("saveModel: %v", err)
	}
	return nil
}

// LoadModel implements the agent.Updater interface
func (g *Gaussian) LoadModel(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loadModel: %v", err)
	}
	defer f.Close()

	var heads distribution.Heads
	if err := gob.NewDecoder(f).Decode(&heads); err != nil {
		return fmt.Errorf("loadModel: %v", err)
	}
	if err := g.dist.SetHeads(heads); err != nil {
		return fmt.Errorf("loadModel: %v", err)
	}
	return nil
}

// newHeads builds distribution heads from layer weights of shape
// (features, outputs) and biases of length outputs
func newHeads(meanW, meanB, logStdW, logStdB []float64, features,
	outputs int) distribution.Heads {
	return distribution.Heads{
		MeanWeights: mat.NewDense(outputs, features,
			transpose(meanW, features, outputs)),
		MeanBias: mat.NewVecDense(outputs, meanB),
		LogStddevWeights: mat.NewDense(outputs, features,
			transpose(logStdW, features, outputs)),
		LogStddevBias: mat.NewVecDense(outputs, logStdB),
	}
}
