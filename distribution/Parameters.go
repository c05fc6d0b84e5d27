package distribution

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// Parameters holds the parameters of a Gaussian distribution. Each
// field has the shape of the action the distribution is over.
//
// Stddev is always exp(LogStddev) and LogStddev always lies in
// [MinLogStddev, MaxLogStddev] for Parameters constructed with
// NewParameters or returned by a distribution.
type Parameters struct {
	Mean      *tensor.Dense
	Stddev    *tensor.Dense
	LogStddev *tensor.Dense
}

// NewParameters returns the Parameters with the given mean and log
// standard deviation. The log standard deviation is clamped before the
// standard deviation is computed from it. Neither argument is modified.
func NewParameters(mean, logStddev *tensor.Dense) (Parameters, error) {
	if !mean.Shape().Eq(logStddev.Shape()) {
		return Parameters{}, fmt.Errorf("newParameters: mean shape %v "+
			"does not match log standard deviation shape %v", mean.Shape(),
			logStddev.Shape())
	}
	if mean.Dtype() != tensor.Float64 || logStddev.Dtype() != tensor.Float64 {
		return Parameters{}, fmt.Errorf("newParameters: parameters must "+
			"be of type %v", tensor.Float64)
	}
	meanData, logStdData := mean.Float64s(), logStddev.Float64s()

	shape := mean.Shape().Clone()
	return newParameters(shape, append([]float64(nil), meanData...),
		append([]float64(nil), logStdData...)), nil
}

// newParameters clamps logStd in place and builds Parameters that take
// ownership of both slices
func newParameters(shape tensor.Shape, mean, logStd []float64) Parameters {
	stddev := make([]float64, len(logStd))
	for i := range logStd {
		logStd[i] = math.Min(math.Max(logStd[i], MinLogStddev), MaxLogStddev)
		stddev[i] = math.Exp(logStd[i])
	}

	return Parameters{
		Mean:      dense(shape, mean),
		Stddev:    dense(shape, stddev),
		LogStddev: dense(shape, logStd),
	}
}

// Shape returns the shape of the parameters
func (p Parameters) Shape() tensor.Shape {
	return p.Mean.Shape().Clone()
}

// data returns the backing data of each parameter
func (p Parameters) data() (mean, stddev, logStd []float64) {
	return p.Mean.Float64s(), p.Stddev.Float64s(), p.LogStddev.Float64s()
}

// dense returns a float64 tensor with the given shape and backing data
func dense(shape tensor.Shape, data []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// actionData returns the backing data of an action, panicking if it
// does not hold n float64 values.
func actionData(caller string, action *tensor.Dense, n int) []float64 {
	if action.Dtype() != tensor.Float64 {
		panic(fmt.Sprintf("%v: action must be of type %v", caller,
			tensor.Float64))
	}
	data := action.Float64s()
	if len(data) != n {
		panic(fmt.Sprintf("%v: action size does not match parameters "+
			"\n\twant(%v)\n\thave(%v)", caller, n, len(data)))
	}
	return data
}
