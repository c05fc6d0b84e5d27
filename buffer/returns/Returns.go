// Package returns computes the learning targets of policy gradient
// methods from finalized paths: discounted rewards-to-go and
// normalized advantages.
package returns

import (
	"math"

	"github.com/samuelfneumann/gopg/agent"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizationEpsilon is added to the standard deviation of the
// advantages before dividing by it
const NormalizationEpsilon = 1e-8

// DiscountCumSum returns the discounted cumulative sum of x, where
// element i of the returned slice is Σⱼ discountʲ x[i+j]
func DiscountCumSum(x []float64, discount float64) []float64 {
	cumSums := make([]float64, len(x))

	next := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		next = x[i] + discount*next
		cumSums[i] = next
	}
	return cumSums
}

// RewardsToGo returns the discounted rewards-to-go for each step of
// path. Rewards after the last step of the path count as zero whether
// or not the path terminated.
func RewardsToGo(path agent.Path, gamma float64) []float64 {
	return DiscountCumSum(path.Rewards.Float64s(), gamma)
}

// Batch returns the rewards-to-go of every step in the batch, path by
// path
func Batch(batch agent.Batch, gamma float64) []float64 {
	out := make([]float64, 0, batch.Steps())
	for _, path := range batch {
		out = append(out, RewardsToGo(path, gamma)...)
	}
	return out
}

// Normalize shifts and scales x in place to zero mean and unit
// (sample) standard deviation
func Normalize(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}

	mean := stat.Mean(x, nil)
	std := stat.StdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	floats.AddConst(-mean, x)
	floats.Scale(1/(std+NormalizationEpsilon), x)
	return x
}

// Advantages returns the advantage of each step in the batch, which are
// the rewards-to-go, optionally normalized over the whole batch
func Advantages(batch agent.Batch, gamma float64, normalize bool) []float64 {
	adv := Batch(batch, gamma)
	if normalize {
		Normalize(adv)
	}
	return adv
}
