package distribution

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// graphVector adds a named vector holding data to g
func graphVector(g *G.ExprGraph, name string, data []float64) *G.Node {
	return G.NewVector(g, tensor.Float64, G.WithShape(len(data)),
		G.WithName(name), G.WithValue(vector(data...)))
}

func run(t *testing.T, g *G.ExprGraph, nodes ...*G.Node) [][]float64 {
	values := make([]G.Value, len(nodes))
	for i := range nodes {
		G.Read(nodes[i], &values[i])
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	out := make([][]float64, len(nodes))
	for i := range values {
		out[i] = append([]float64(nil), values[i].(*tensor.Dense).Float64s()...)
	}
	return out
}

func TestClampNode(t *testing.T) {
	g := G.NewGraph()
	x := graphVector(g, "x", []float64{-3, -1, 0, 0.5, 1, 4})

	out := run(t, g, ClampNode(x, -1, 1))[0]
	want := []float64{-1, -1, 0, 0.5, 1, 1}
	if !floats.EqualApprox(out, want, tol) {
		t.Errorf("clamp: want(%v) have(%v)", want, out)
	}
}

func TestNodesMatchGaussian(t *testing.T) {
	dist := newGaussian(t, continuousSpec(t, 3), 3)

	meanData := []float64{0.5, -1, 2}
	logStdData := []float64{-0.5, 0, 40} // 40 must be clamped
	actionData := []float64{1, 1, -3}
	mean2Data := []float64{0, 0.5, 2}
	logStd2Data := []float64{0.2, -0.1, 1}

	g := G.NewGraph()
	meanHead := graphVector(g, "mean", meanData)
	logStdHead := graphVector(g, "logStd", logStdData)
	action := graphVector(g, "action", actionData)
	mean2Head := graphVector(g, "mean2", mean2Data)
	logStd2Head := graphVector(g, "logStd2", logStd2Data)

	mean, stddev, logStd := ParametrizeNodes(meanHead, logStdHead)
	mean2, stddev2, logStd2 := ParametrizeNodes(mean2Head, logStd2Head)

	out := run(t, g,
		stddev,
		logStd,
		LogProbabilityNode(mean, stddev, logStd, action),
		EntropyNode(logStd),
		KLDivergenceNode(mean, stddev, logStd, mean2, stddev2, logStd2),
		StatesValueNode(logStd),
		ActionValueNode(mean, stddev, logStd, action),
	)

	p := params(t, meanData, logStdData)
	p2 := params(t, mean2Data, logStd2Data)
	a := vector(actionData...)
	_, wantStd, wantLogStd := p.data()

	tests := []struct {
		name string
		want []float64
		have []float64
	}{
		{"stddev", wantStd, out[0]},
		{"logStddev", wantLogStd, out[1]},
		{"logProbability", dist.LogProbability(p, a).Float64s(), out[2]},
		{"entropy", dist.Entropy(p).Float64s(), out[3]},
		{"klDivergence", dist.KLDivergence(p, p2).Float64s(), out[4]},
		{"statesValue", dist.StatesValue(p).Float64s(), out[5]},
		{"actionValue", dist.ActionValue(p, a).Float64s(), out[6]},
	}

	for _, test := range tests {
		if !floats.EqualApprox(test.want, test.have, 1e-6) {
			t.Errorf("%v: \n\twant(%v)\n\thave(%v)", test.name, test.want,
				test.have)
		}
	}
}
