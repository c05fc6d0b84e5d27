package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gorgonia.org/tensor"
)

// UniformStarter samples starting observations uniformly within a
// box given by one r1.Interval per feature
type UniformStarter struct {
	features int
	rand     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter with the given bounds
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)
	rand := distmv.NewUniform(bounds, source)

	return UniformStarter{len(bounds), rand}
}

// Start samples a starting observation as a vector tensor
func (u UniformStarter) Start() *tensor.Dense {
	return tensor.New(
		tensor.WithShape(u.features),
		tensor.WithBacking(u.rand.Rand(nil)),
	)
}
