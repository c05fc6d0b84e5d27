// Package checkpointer implements functionality for periodically
// saving models during an experiment
package checkpointer

import (
	ts "github.com/samuelfneumann/gopg/timestep"
)

// Serializable is an object whose model can be saved to a file
type Serializable interface {
	SaveModel(filename string) error
}

// Checkpointer checkpoints/saves serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}
