// Package distribution implements parametric action distributions for
// policies. A distribution maps an embedding produced by some policy
// network to the parameters of a probability distribution over actions
// and exposes the statistics needed to construct policy gradient
// losses: sampling, log probabilities, entropies, KL divergences, and
// value baselines derived from the parameters.
package distribution

import (
	"math"

	"gorgonia.org/tensor"
)

// Epsilon is the numerical floor used by all distributions. Variances
// are floored at Epsilon and log standard deviations are clamped to
// [ln(Epsilon), -ln(Epsilon)].
const Epsilon float64 = 1e-6

var (
	// MinLogStddev and MaxLogStddev bound every log standard deviation
	// produced by a distribution
	MinLogStddev = math.Log(Epsilon)
	MaxLogStddev = -math.Log(Epsilon)

	halfLog2Pi  = 0.5 * math.Log(2*math.Pi)
	halfLog2PiE = 0.5 * math.Log(2*math.Pi*math.E)
	log2Pi      = math.Log(2 * math.Pi)
)

// Distribution is a parametric distribution over actions.
//
// All returned tensors are elementwise and keep the shape of the
// distribution parameters. Aggregating over action dimensions is the
// responsibility of the caller.
type Distribution interface {
	// Parametrize maps an embedding to distribution parameters
	Parametrize(embedding *tensor.Dense) (Parameters, error)

	// Sample samples an action. The temperature scales the sampling
	// noise; a temperature of 0 returns the mode of the distribution.
	Sample(p Parameters, temperature float64) *tensor.Dense

	LogProbability(p Parameters, action *tensor.Dense) *tensor.Dense
	Entropy(p Parameters) *tensor.Dense
	KLDivergence(p1, p2 Parameters) *tensor.Dense

	// StatesValue returns a baseline computed from the parameters
	// alone, while ActionValue conditions the baseline on an action
	StatesValue(p Parameters) *tensor.Dense
	ActionValue(p Parameters, action *tensor.Dense) *tensor.Dense
}
