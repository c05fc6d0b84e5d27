// Package network implements layers which are added to Gorgonia
// computational graphs.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Linear implements a fully connected layer computing act(x·W + b) for
// a matrix input x of shape (batch, in). The weights W have shape
// (in, out) and the bias b has shape (1, out) so that it can be
// broadcast along the batch dimension.
type Linear struct {
	in, out int
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// NewLinear adds the learnable weights of a new Linear layer to g. The
// weights are drawn from init and the bias, if present, starts at zero.
// A nil activation is treated as the identity.
func NewLinear(g *G.ExprGraph, name string, in, out int, bias bool,
	init G.InitWFn, act *Activation) (*Linear, error) {
	if in < 1 || out < 1 {
		return nil, fmt.Errorf("newLinear: layer dimensions must be "+
			"positive: (%v, %v)", in, out)
	}
	if init == nil {
		init = G.Zeroes()
	}
	if act == nil {
		act = Identity()
	}

	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
		G.WithName(name+"Weights"), G.WithInit(init))

	var biasNode *G.Node
	if bias {
		biasNode = G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
			G.WithName(name+"Bias"), G.WithInit(G.Zeroes()))
	}

	return &Linear{
		in:      in,
		out:     out,
		weights: weights,
		bias:    biasNode,
		act:     act,
	}, nil
}

// Fwd adds the forward pass of the layer to the computational graph
func (l *Linear) Fwd(x *G.Node) (*G.Node, error) {
	if !x.IsMatrix() || x.Shape()[1] != l.in {
		return nil, fmt.Errorf("fwd: input must be a matrix with %v "+
			"columns: %v", l.in, x.Shape())
	}

	x, err := G.Mul(x, l.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}
	if l.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, l.bias, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: %v", err)
		}
	}
	return l.act.fwd(x)
}

// Learnables returns the learnable nodes of the layer
func (l *Linear) Learnables() G.Nodes {
	if l.bias == nil {
		return G.Nodes{l.weights}
	}
	return G.Nodes{l.weights, l.bias}
}

// In returns the number of input features of the layer
func (l *Linear) In() int { return l.in }

// Out returns the number of outputs of the layer
func (l *Linear) Out() int { return l.out }

func (l *Linear) Weights() *G.Node { return l.weights }
func (l *Linear) Bias() *G.Node    { return l.bias }

func (l *Linear) Activation() *Activation { return l.act }

// SetWeights sets the weights of the layer. The weights are given in
// row major order with shape (in, out).
func (l *Linear) SetWeights(weights []float64) error {
	return set(l.weights, weights)
}

// SetBias sets the bias of the layer
func (l *Linear) SetBias(bias []float64) error {
	if l.bias == nil {
		return fmt.Errorf("setBias: layer has no bias")
	}
	return set(l.bias, bias)
}

// set binds a copy of data to the variable node n
func set(n *G.Node, data []float64) error {
	shape := n.Shape()
	if len(data) != shape.TotalSize() {
		return fmt.Errorf("set: invalid number of values for %v"+
			"\n\twant(%v)\n\thave(%v)", n.Name(), shape.TotalSize(), len(data))
	}

	backing := make([]float64, len(data))
	copy(backing, data)
	value := tensor.New(tensor.WithShape(shape.Clone()...),
		tensor.WithBacking(backing))
	return G.Let(n, value)
}

// Values returns a copy of the current value of the variable node n
func Values(n *G.Node) []float64 {
	if n == nil || n.Value() == nil {
		return nil
	}
	data := n.Value().(*tensor.Dense).Float64s()
	out := make([]float64, len(data))
	copy(out, data)
	return out
}
