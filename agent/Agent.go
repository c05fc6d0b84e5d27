// Package agent defines the interfaces and data exchanged between a
// policy gradient agent and the component that selects its actions and
// learns from its experience.
package agent

import (
	"gorgonia.org/tensor"
)

// Outputs holds the distribution parameters that generated an action.
// Both tensors carry a leading batch axis of size 1 followed by the
// action shape, so that the outputs of consecutive steps can be
// concatenated along the batch axis.
type Outputs struct {
	ActionMeans   *tensor.Dense
	ActionLogStds *tensor.Dense
}

// Path is a finalized episode (or the part of an episode collected
// before a batch ended). Every tensor has a leading axis of length
// Len(), one entry per step.
type Path struct {
	States        *tensor.Dense // (T, state shape...)
	Actions       *tensor.Dense // (T, action shape...)
	Rewards       *tensor.Dense // (T)
	ActionMeans   *tensor.Dense // (T, action shape...)
	ActionLogStds *tensor.Dense // (T, action shape...)

	// Terminated is true if the episode ended in a terminal step and
	// false if it was cut off because the batch was full
	Terminated bool
}

// Len returns the number of steps in the path
func (p Path) Len() int {
	if p.Rewards == nil {
		return 0
	}
	return p.Rewards.Shape()[0]
}

// Batch is a sequence of paths consumed by a single update
type Batch []Path

// Steps returns the total number of steps over all paths in the batch
func (b Batch) Steps() int {
	steps := 0
	for _, path := range b {
		steps += path.Len()
	}
	return steps
}

// Updater selects actions and learns from batches of experience.
//
// An Updater owns the learned parameters of a policy. The batch passed
// to Update is owned by the Updater once Update is called; the caller
// keeps no reference to it.
type Updater interface {
	// GetAction returns the action to take in state along with the
	// distribution parameters that produced it
	GetAction(state *tensor.Dense) (*tensor.Dense, Outputs, error)

	// Update performs a learning update with a batch of paths
	Update(batch Batch) error

	SaveModel(path string) error
	LoadModel(path string) error
}
