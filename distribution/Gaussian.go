package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/utils/floatutils"
)

// Heads holds the weights of the two affine projections of a Gaussian.
// Weights have one row per output and one column per embedding
// feature; biases have one entry per output.
type Heads struct {
	MeanWeights      *mat.Dense
	MeanBias         *mat.VecDense
	LogStddevWeights *mat.Dense
	LogStddevBias    *mat.VecDense
}

// Gaussian implements a diagonal Gaussian distribution over continuous
// actions.
//
// Two independent affine heads project an embedding onto the mean and
// the log standard deviation of the distribution. Embeddings may be a
// single flat vector (rank 1), in which case both heads output one
// value per action element and the outputs are reshaped to the action
// shape, or one embedding per action component (rank 2 or 3), in which
// case the heads are applied along the last embedding axis.
//
// Given a mean μ and standard deviation σ, actions are sampled as
// μ + σ * τ * ɛ with ɛ ~ N(0, 1) and temperature τ. Bounded action
// specs clip sampled actions after the noise is added; the density
// remains that of the unclipped Gaussian.
type Gaussian struct {
	name       string
	actionSpec env.Spec
	inputShape tensor.Shape

	// paramShape is the shape of each parameter tensor. It is the
	// action shape, except for scalar actions which use shape (1).
	paramShape tensor.Shape

	features int // Size of the last embedding axis
	outputs  int // Outputs of each head per embedding row
	heads    Heads

	normal distuv.Normal
}

// NewGaussian returns a new Gaussian distribution named name over
// actions described by actionSpec, parametrized from embeddings of
// shape inputShape.
//
// The init parameter determines the weight initialization scheme for
// both heads; if nil, all weights are zero so that the distribution
// starts as a standard normal. Biases always start at zero. The seed
// parameter seeds the action sampler.
//
// A *ValueError is returned if the action spec is not continuous, if
// the embedding rank is not in [1, 3], or if a multi-dimensional
// embedding is incompatible with the action shape.
func NewGaussian(name string, actionSpec env.Spec, inputShape tensor.Shape,
	init *initwfn.InitWFn, seed uint64) (*Gaussian, error) {
	if actionSpec.Cardinality != env.Continuous {
		return nil, &ValueError{
			Name:     name,
			Argument: "action_spec.type",
			Value:    actionSpec.Cardinality,
			Hint:     "gaussian requires continuous actions",
		}
	}

	actionShape := actionSpec.Shape
	rank := len(inputShape)
	var outputs int

	switch {
	case rank == 1:
		// Single embedding
		outputs = env.Size(actionShape)

	case rank < 1 || rank > 3:
		return nil, &ValueError{
			Name:     name,
			Argument: "input_spec.shape",
			Value:    inputShape,
			Hint:     "invalid rank",
		}

	case len(actionShape) > 0 &&
		shapeEq(inputShape[:rank-1], actionShape[:len(actionShape)-1]):
		// Embedding per action component, last action axis predicted
		outputs = actionShape[len(actionShape)-1]

	case shapeEq(inputShape[:rank-1], actionShape):
		// Embedding per action element, implicit singleton output
		outputs = 1

	default:
		return nil, &ValueError{
			Name:     name,
			Argument: "input_spec.shape",
			Value:    inputShape,
			Hint:     "not flattened and incompatible with action shape",
		}
	}

	for _, dim := range inputShape {
		if dim <= 0 {
			return nil, &ValueError{
				Name:     name,
				Argument: "input_spec.shape",
				Value:    inputShape,
				Hint:     "embedding dimensions must be positive",
			}
		}
	}
	features := inputShape[rank-1]

	paramShape := actionShape.Clone()
	if len(paramShape) == 0 {
		paramShape = tensor.Shape{1}
	}

	g := &Gaussian{
		name:       name,
		actionSpec: actionSpec,
		inputShape: inputShape.Clone(),
		paramShape: paramShape,
		features:   features,
		outputs:    outputs,
		heads: Heads{
			MeanWeights:      newWeights(init, outputs, features),
			MeanBias:         mat.NewVecDense(outputs, nil),
			LogStddevWeights: newWeights(init, outputs, features),
			LogStddevBias:    mat.NewVecDense(outputs, nil),
		},
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}

	return g, nil
}

// newWeights returns a rows x cols weight matrix drawn from init
func newWeights(init *initwfn.InitWFn, rows, cols int) *mat.Dense {
	if init == nil {
		return mat.NewDense(rows, cols, nil)
	}
	return mat.NewDense(rows, cols, init.Weights(rows, cols))
}

// shapeEq returns whether two shapes are equal, treating nil and empty
// shapes as equal
func shapeEq(a, b tensor.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Name returns the name of the distribution
func (g *Gaussian) Name() string {
	return g.name
}

// ActionSpec returns the specification of actions the distribution is
// over
func (g *Gaussian) ActionSpec() env.Spec {
	return g.actionSpec
}

// InputShape returns the embedding shape expected by Parametrize
func (g *Gaussian) InputShape() tensor.Shape {
	return g.inputShape.Clone()
}

// ParamShape returns the shape of each parameter tensor
func (g *Gaussian) ParamShape() tensor.Shape {
	return g.paramShape.Clone()
}

// Heads returns a copy of the projection weights of the distribution
func (g *Gaussian) Heads() Heads {
	return Heads{
		MeanWeights:      mat.DenseCopyOf(g.heads.MeanWeights),
		MeanBias:         mat.VecDenseCopyOf(g.heads.MeanBias),
		LogStddevWeights: mat.DenseCopyOf(g.heads.LogStddevWeights),
		LogStddevBias:    mat.VecDenseCopyOf(g.heads.LogStddevBias),
	}
}

// SetHeads replaces the projection weights of the distribution with
// copies of h. Projection weights are owned by whatever optimizes them;
// the distribution never modifies them itself.
func (g *Gaussian) SetHeads(h Heads) error {
	if h.MeanWeights == nil || h.LogStddevWeights == nil ||
		h.MeanBias == nil || h.LogStddevBias == nil {
		return fmt.Errorf("setHeads: all heads must be non-nil")
	}

	for _, w := range []*mat.Dense{h.MeanWeights, h.LogStddevWeights} {
		if r, c := w.Dims(); r != g.outputs || c != g.features {
			return fmt.Errorf("setHeads: illegal weight shape "+
				"\n\twant(%v, %v)\n\thave(%v, %v)", g.outputs, g.features,
				r, c)
		}
	}
	for _, b := range []*mat.VecDense{h.MeanBias, h.LogStddevBias} {
		if b.Len() != g.outputs {
			return fmt.Errorf("setHeads: illegal bias length "+
				"\n\twant(%v)\n\thave(%v)", g.outputs, b.Len())
		}
	}

	g.heads = Heads{
		MeanWeights:      mat.DenseCopyOf(h.MeanWeights),
		MeanBias:         mat.VecDenseCopyOf(h.MeanBias),
		LogStddevWeights: mat.DenseCopyOf(h.LogStddevWeights),
		LogStddevBias:    mat.VecDenseCopyOf(h.LogStddevBias),
	}
	return nil
}

// Parametrize computes the parameters of the distribution given an
// embedding of shape InputShape(). The log standard deviation is
// clamped to [MinLogStddev, MaxLogStddev] before being exponentiated.
func (g *Gaussian) Parametrize(embedding *tensor.Dense) (Parameters, error) {
	if !shapeEq(embedding.Shape(), g.inputShape) {
		return Parameters{}, fmt.Errorf("parametrize: illegal embedding "+
			"shape \n\twant(%v)\n\thave(%v)", g.inputShape, embedding.Shape())
	}
	if embedding.Dtype() != tensor.Float64 {
		return Parameters{}, fmt.Errorf("parametrize: embedding must be "+
			"of type %v", tensor.Float64)
	}

	data := embedding.Float64s()
	rows := len(data) / g.features
	in := mat.NewDense(rows, g.features, data)

	mean := g.project(in, g.heads.MeanWeights, g.heads.MeanBias)
	logStd := g.project(in, g.heads.LogStddevWeights, g.heads.LogStddevBias)

	return newParameters(g.paramShape.Clone(), mean, logStd), nil
}

// project applies an affine head to each row of in, returning the
// outputs in row major order
func (g *Gaussian) project(in, weights *mat.Dense, bias *mat.VecDense) []float64 {
	rows, _ := in.Dims()
	out := mat.NewDense(rows, g.outputs, nil)
	out.Mul(in, weights.T())
	for i := 0; i < rows; i++ {
		row := out.RowView(i).(*mat.VecDense)
		row.AddVec(row, bias)
	}
	return out.RawMatrix().Data
}

// Sample samples an action from the distribution with the given
// parameters as mean + stddev * temperature * ɛ, ɛ ~ N(0, 1). If the
// action spec is bounded, the action is clipped to the bounds after
// noise is added. The sign of temperature is ignored.
func (g *Gaussian) Sample(p Parameters, temperature float64) *tensor.Dense {
	mean, stddev, _ := p.data()
	temperature = math.Abs(temperature)

	lower, upper := g.actionSpec.LowerBound, g.actionSpec.UpperBound
	if lower != nil && lower.Len() != len(mean) ||
		upper != nil && upper.Len() != len(mean) {
		panic(fmt.Sprintf("sample: bounds do not match parameter size %v",
			len(mean)))
	}

	action := make([]float64, len(mean))
	for i := range action {
		action[i] = mean[i] + stddev[i]*temperature*g.normal.Rand()

		min, max := math.Inf(-1), math.Inf(1)
		if lower != nil {
			min = lower.AtVec(i)
		}
		if upper != nil {
			max = upper.AtVec(i)
		}
		action[i] = floatutils.Clip(action[i], min, max)
	}

	return dense(p.Shape(), action)
}

// LogProbability returns the elementwise log density of action:
//
//	-½(a - μ)² / max(σ², ε) - log σ - ½ log 2π
func (g *Gaussian) LogProbability(p Parameters, action *tensor.Dense) *tensor.Dense {
	mean, stddev, logStd := p.data()
	a := actionData("logProbability", action, len(mean))

	out := make([]float64, len(mean))
	for i := range out {
		diff := a[i] - mean[i]
		variance := math.Max(stddev[i]*stddev[i], Epsilon)
		out[i] = -0.5*diff*diff/variance - logStd[i] - halfLog2Pi
	}
	return dense(p.Shape(), out)
}

// Entropy returns the elementwise differential entropy
// log σ + ½ log 2πe
func (g *Gaussian) Entropy(p Parameters) *tensor.Dense {
	_, _, logStd := p.data()

	out := make([]float64, len(logStd))
	for i := range out {
		out[i] = logStd[i] + halfLog2PiE
	}
	return dense(p.Shape(), out)
}

// KLDivergence returns the elementwise KL(p1 || p2):
//
//	log σ₂ - log σ₁ + ½(σ₁² + (μ₁ - μ₂)²) / max(σ₂², ε) - ½
func (g *Gaussian) KLDivergence(p1, p2 Parameters) *tensor.Dense {
	mean1, stddev1, logStd1 := p1.data()
	mean2, stddev2, logStd2 := p2.data()
	if len(mean1) != len(mean2) {
		panic(fmt.Sprintf("klDivergence: parameter sizes differ "+
			"\n\twant(%v)\n\thave(%v)", len(mean1), len(mean2)))
	}

	out := make([]float64, len(mean1))
	for i := range out {
		diff := mean1[i] - mean2[i]
		variance2 := math.Max(stddev2[i]*stddev2[i], Epsilon)
		out[i] = logStd2[i] - logStd1[i] +
			0.5*(stddev1[i]*stddev1[i]+diff*diff)/variance2 - 0.5
	}
	return dense(p1.Shape(), out)
}

// StatesValue returns -log σ - ½ log 2π
func (g *Gaussian) StatesValue(p Parameters) *tensor.Dense {
	_, _, logStd := p.data()

	out := make([]float64, len(logStd))
	for i := range out {
		out[i] = -logStd[i] - halfLog2Pi
	}
	return dense(p.Shape(), out)
}

// ActionValue returns -½(a - μ)² / max(σ², ε) - 2 log σ - log 2π
func (g *Gaussian) ActionValue(p Parameters, action *tensor.Dense) *tensor.Dense {
	mean, stddev, logStd := p.data()
	a := actionData("actionValue", action, len(mean))

	out := make([]float64, len(mean))
	for i := range out {
		diff := a[i] - mean[i]
		variance := math.Max(stddev[i]*stddev[i], Epsilon)
		out[i] = -0.5*diff*diff/variance - 2*logStd[i] - log2Pi
	}
	return dense(p.Shape(), out)
}
