package policy

import (
	"fmt"

	"github.com/samuelfneumann/gopg/distribution"
	"github.com/samuelfneumann/gopg/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// trainGraph holds the computational graph of the policy gradient loss
// for batches of a fixed number of steps
type trainGraph struct {
	g     *G.ExprGraph
	steps int

	states     *G.Node // (steps, features)
	actions    *G.Node // (steps, outputs)
	advantages *G.Node // (steps)

	mean      *network.Linear
	logStddev *network.Linear

	loss      *G.Node
	lossValue G.Value

	learnables G.Nodes
	vm         G.VM
}

// newTrainGraph constructs the graph of
//
//	-mean(Σ log π(a|s) · A) - β mean(Σ H[π(·|s)])
//
// where each sum is over action dimensions
func newTrainGraph(steps, features, outputs int,
	entropyCoefficient float64) (*trainGraph, error) {
	g := G.NewGraph()

	states := G.NewMatrix(g, tensor.Float64, G.WithShape(steps, features),
		G.WithName("States"), G.WithInit(G.Zeroes()))
	actions := G.NewMatrix(g, tensor.Float64, G.WithShape(steps, outputs),
		G.WithName("Actions"), G.WithInit(G.Zeroes()))
	advantages := G.NewVector(g, tensor.Float64, G.WithShape(steps),
		G.WithName("Advantages"), G.WithInit(G.Zeroes()))

	meanLayer, err := network.NewLinear(g, "Mean", features, outputs, true,
		nil, nil)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}
	logStddevLayer, err := network.NewLinear(g, "LogStddev", features,
		outputs, true, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}

	meanHead, err := meanLayer.Fwd(states)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}
	logStddevHead, err := logStddevLayer.Fwd(states)
	if err != nil {
		return nil, fmt.Errorf("newTrainGraph: %v", err)
	}
	mean, stddev, logStddev := distribution.ParametrizeNodes(meanHead,
		logStddevHead)

	logProb := distribution.LogProbabilityNode(mean, stddev, logStddev,
		actions)
	logProb = G.Must(G.Sum(logProb, 1))

	loss := G.Must(G.HadamardProd(logProb, advantages))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))

	if entropyCoefficient != 0 {
		entropy := distribution.EntropyNode(logStddev)
		entropy = G.Must(G.Mean(G.Must(G.Sum(entropy, 1))))
		entropy = G.Must(G.HadamardProd(G.NewConstant(entropyCoefficient),
			entropy))
		loss = G.Must(G.Sub(loss, entropy))
	}

	learnables := append(meanLayer.Learnables(), logStddevLayer.Learnables()...)
	if _, err := G.Grad(loss, learnables...); err != nil {
		return nil, fmt.Errorf("newTrainGraph: could not compute "+
			"gradient: %v", err)
	}

	t := &trainGraph{
		g:          g,
		steps:      steps,
		states:     states,
		actions:    actions,
		advantages: advantages,
		mean:       meanLayer,
		logStddev:  logStddevLayer,
		loss:       loss,
		learnables: learnables,
	}
	G.Read(loss, &t.lossValue)
	t.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))

	return t, nil
}

// setHeads copies the distribution heads into the layers. Heads store
// weights as (outputs, features) while the layers use (features,
// outputs).
func (t *trainGraph) setHeads(h distribution.Heads) error {
	if err := t.mean.SetWeights(transpose(h.MeanWeights.RawMatrix().Data,
		t.mean.Out(), t.mean.In())); err != nil {
		return err
	}
	if err := t.mean.SetBias(h.MeanBias.RawVector().Data); err != nil {
		return err
	}
	if err := t.logStddev.SetWeights(transpose(
		h.LogStddevWeights.RawMatrix().Data, t.logStddev.Out(),
		t.logStddev.In())); err != nil {
		return err
	}
	return t.logStddev.SetBias(h.LogStddevBias.RawVector().Data)
}

// heads returns the current layer weights as distribution heads
func (t *trainGraph) heads() distribution.Heads {
	return newHeads(
		network.Values(t.mean.Weights()),
		network.Values(t.mean.Bias()),
		network.Values(t.logStddev.Weights()),
		network.Values(t.logStddev.Bias()),
		t.mean.In(),
		t.mean.Out(),
	)
}

// setBatch binds the data of a batch to the input nodes
func (t *trainGraph) setBatch(states, actions, advantages []float64) error {
	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{t.states, states},
		{t.actions, actions},
		{t.advantages, advantages},
	}

	for _, in := range inputs {
		shape := in.node.Shape()
		if len(in.data) != shape.TotalSize() {
			return fmt.Errorf("setBatch: invalid number of values for %v"+
				"\n\twant(%v)\n\thave(%v)", in.node.Name(), shape.TotalSize(),
				len(in.data))
		}
		value := tensor.New(tensor.WithShape(shape.Clone()...),
			tensor.WithBacking(in.data))
		if err := G.Let(in.node, value); err != nil {
			return fmt.Errorf("setBatch: %v", err)
		}
	}
	return nil
}

// run runs the forward and backward passes, returning the loss. The
// VM must be reset before the next call.
func (t *trainGraph) run() (float64, error) {
	if err := t.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("run: %v", err)
	}
	return t.lossValue.Data().(float64), nil
}

// model returns the learnables along with their gradients
func (t *trainGraph) model() []G.ValueGrad {
	return G.NodesToValueGrads(t.learnables)
}

// transpose returns the transpose of the rows x cols row major
// matrix data
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}
