package distribution

import (
	G "gorgonia.org/gorgonia"
)

// The functions in this file add the Gaussian statistics to a Gorgonia
// computational graph so that losses built from them can be
// differentiated. They compute exactly the same quantities as the
// methods of Gaussian. All nodes passed to a single function must share
// a graph and a shape, otherwise the function panics.
//
// Gorgonia has no elementwise maximum, so max(x, c) is computed as
// ½(x + c + |x - c|) and min(x, c) as ½(x + c - |x - c|).

// MaxNode adds max(x, c) elementwise to the graph of x
func MaxNode(x *G.Node, c float64) *G.Node {
	constant := G.NewConstant(c)
	abs := G.Must(G.Abs(G.Must(G.Sub(x, constant))))
	sum := G.Must(G.Add(G.Must(G.Add(x, constant)), abs))
	return G.Must(G.HadamardProd(G.NewConstant(0.5), sum))
}

// MinNode adds min(x, c) elementwise to the graph of x
func MinNode(x *G.Node, c float64) *G.Node {
	constant := G.NewConstant(c)
	abs := G.Must(G.Abs(G.Must(G.Sub(x, constant))))
	sum := G.Must(G.Sub(G.Must(G.Add(x, constant)), abs))
	return G.Must(G.HadamardProd(G.NewConstant(0.5), sum))
}

// ClampNode adds the elementwise clamp of x to [min, max] to the graph
func ClampNode(x *G.Node, min, max float64) *G.Node {
	return MinNode(MaxNode(x, min), max)
}

// ParametrizeNodes turns the raw outputs of the mean and log standard
// deviation heads into Gaussian parameters. The log standard deviation
// is clamped to [MinLogStddev, MaxLogStddev] before being exponentiated.
func ParametrizeNodes(meanHead, logStddevHead *G.Node) (mean, stddev,
	logStddev *G.Node) {
	logStddev = ClampNode(logStddevHead, MinLogStddev, MaxLogStddev)
	stddev = G.Must(G.Exp(logStddev))
	return meanHead, stddev, logStddev
}

// LogProbabilityNode adds the elementwise Gaussian log density of
// action to the graph
func LogProbabilityNode(mean, stddev, logStddev, action *G.Node) *G.Node {
	sqDistance := G.Must(G.Square(G.Must(G.Sub(action, mean))))
	variance := MaxNode(G.Must(G.Square(stddev)), Epsilon)

	term := G.Must(G.HadamardDiv(sqDistance, variance))
	term = G.Must(G.HadamardProd(G.NewConstant(-0.5), term))
	term = G.Must(G.Sub(term, logStddev))

	return G.Must(G.Sub(term, G.NewConstant(halfLog2Pi)))
}

// EntropyNode adds the elementwise Gaussian entropy to the graph
func EntropyNode(logStddev *G.Node) *G.Node {
	return G.Must(G.Add(logStddev, G.NewConstant(halfLog2PiE)))
}

// KLDivergenceNode adds the elementwise KL divergence between two
// Gaussians to the graph
func KLDivergenceNode(mean1, stddev1, logStddev1, mean2, stddev2,
	logStddev2 *G.Node) *G.Node {
	logRatio := G.Must(G.Sub(logStddev2, logStddev1))
	sqDistance := G.Must(G.Square(G.Must(G.Sub(mean1, mean2))))
	variance1 := G.Must(G.Square(stddev1))
	variance2 := MaxNode(G.Must(G.Square(stddev2)), Epsilon)

	term := G.Must(G.HadamardDiv(G.Must(G.Add(variance1, sqDistance)),
		variance2))
	term = G.Must(G.HadamardProd(G.NewConstant(0.5), term))
	term = G.Must(G.Add(logRatio, term))

	return G.Must(G.Sub(term, G.NewConstant(0.5)))
}

// StatesValueNode adds -log σ - ½ log 2π to the graph
func StatesValueNode(logStddev *G.Node) *G.Node {
	return G.Must(G.Sub(G.Must(G.Neg(logStddev)), G.NewConstant(halfLog2Pi)))
}

// ActionValueNode adds -½(a - μ)² / max(σ², ε) - 2 log σ - log 2π to
// the graph
func ActionValueNode(mean, stddev, logStddev, action *G.Node) *G.Node {
	sqDistance := G.Must(G.Square(G.Must(G.Sub(action, mean))))
	variance := MaxNode(G.Must(G.Square(stddev)), Epsilon)

	term := G.Must(G.HadamardDiv(sqDistance, variance))
	term = G.Must(G.HadamardProd(G.NewConstant(-0.5), term))
	twoLogStddev := G.Must(G.HadamardProd(G.NewConstant(2.0), logStddev))
	term = G.Must(G.Sub(term, twoLogStddev))

	return G.Must(G.Sub(term, G.NewConstant(log2Pi)))
}
