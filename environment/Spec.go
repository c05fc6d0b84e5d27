package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	case Discount:
		return "Discount"
	default:
		return "Reward"
	}
}

// Cardinality determines the cardinality of a number (discrete or
// continuous). Continuous specs describe float valued elements.
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment.
//
// Shape is the tensor shape of the data described. A nil or empty
// Shape describes a scalar. LowerBound and UpperBound hold one bound
// per flattened element in row major order, and either may be nil if
// the data is unbounded on that side.
type Spec struct {
	Shape      tensor.Shape
	Type       SpecType
	LowerBound *mat.VecDense
	UpperBound *mat.VecDense
	Cardinality
}

// NewSpec constructs a new environment specification.
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete. Bounds may be nil.
func NewSpec(shape tensor.Shape, t SpecType, lowerBound,
	upperBound *mat.VecDense, cardinality Cardinality) (Spec, error) {
	for _, dim := range shape {
		if dim <= 0 {
			return Spec{}, fmt.Errorf("newSpec: shape %v must have "+
				"positive dimensions", shape)
		}
	}

	size := Size(shape)
	if lowerBound != nil && lowerBound.Len() != size {
		return Spec{}, fmt.Errorf("newSpec: shape size %v must match "+
			"lower bounds length %v", size, lowerBound.Len())
	}
	if upperBound != nil && upperBound.Len() != size {
		return Spec{}, fmt.Errorf("newSpec: shape size %v must match "+
			"upper bounds length %v", size, upperBound.Len())
	}
	if lowerBound != nil && upperBound != nil {
		for i := 0; i < size; i++ {
			if lowerBound.AtVec(i) > upperBound.AtVec(i) {
				return Spec{}, fmt.Errorf("newSpec: lower bound %v "+
					"exceeds upper bound %v at index %d",
					lowerBound.AtVec(i), upperBound.AtVec(i), i)
			}
		}
	}

	return Spec{shape.Clone(), t, lowerBound, upperBound, cardinality}, nil
}

// NewBoundedSpec returns a Spec with every element bounded by the same
// [min, max] interval.
func NewBoundedSpec(shape tensor.Shape, t SpecType, min, max float64,
	cardinality Cardinality) (Spec, error) {
	size := Size(shape)
	lower := mat.NewVecDense(size, nil)
	upper := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		lower.SetVec(i, min)
		upper.SetVec(i, max)
	}
	return NewSpec(shape, t, lower, upper, cardinality)
}

// Size returns the number of elements described by shape. A scalar
// (empty) shape has a single element.
func Size(shape tensor.Shape) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

// Len returns the number of elements described by the Spec
func (s Spec) Len() int {
	return Size(s.Shape)
}

// Bounded returns whether either bound of the Spec is set
func (s Spec) Bounded() bool {
	return s.LowerBound != nil || s.UpperBound != nil
}

func (s Spec) String() string {
	return fmt.Sprintf("{%v Spec | Shape: %v | Cardinality: %v | "+
		"Bounded: %v}", s.Type, s.Shape, s.Cardinality, s.Bounded())
}
