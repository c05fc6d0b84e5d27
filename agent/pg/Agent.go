// Package pg implements an agent which accumulates the trajectories it
// experiences into batches of paths and hands each full batch to an
// agent.Updater, which performs the policy gradient update.
//
// The Agent itself performs no learning. It records every step it takes,
// finalizes an episode into an agent.Path when the episode terminates,
// and triggers an update once a fixed number of steps has been
// collected. If the batch fills up in the middle of an episode, the
// partial episode is finalized as a non-terminated path before the
// update.
package pg

import (
	"errors"
	"fmt"
	"log"

	"github.com/samuelfneumann/gopg/agent"
	"github.com/samuelfneumann/gopg/utils/floatutils"
	"gorgonia.org/tensor"
)

// ErrNoAction is returned when an observation is added before any
// action has been selected
var ErrNoAction = errors.New("no action has been selected")

// Agent implements a batching policy gradient agent
type Agent struct {
	updater    agent.Updater
	batchSize  int
	continuous bool

	episode episode
	batch   agent.Batch
	steps   int // Steps collected since the last update

	// Most recent action and the outputs which produced it
	lastAction  *tensor.Dense
	lastOutputs agent.Outputs
	hasAction   bool

	logger *log.Logger
}

// New creates and returns a new Agent
func New(updater agent.Updater, c Config) (*Agent, error) {
	if updater == nil {
		return nil, fmt.Errorf("new: updater cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Agent{
		updater:    updater,
		batchSize:  c.BatchSize,
		continuous: c.Continuous,
	}, nil
}

// SetLogger sets the logger on which batch updates are reported. A nil
// logger disables logging, which is the default.
func (a *Agent) SetLogger(l *log.Logger) {
	a.logger = l
}

// GetAction returns the action to take in state. For continuous action
// spaces the action produced by the updater is returned. For discrete
// action spaces, the index of the largest action component is returned
// as a single element tensor.
func (a *Agent) GetAction(state *tensor.Dense) (*tensor.Dense, error) {
	action, outputs, err := a.updater.GetAction(state)
	if err != nil {
		return nil, fmt.Errorf("getAction: %v", err)
	}

	a.lastAction = action
	a.lastOutputs = outputs
	a.hasAction = true

	if a.continuous {
		return action, nil
	}

	index := floatutils.Argmax(action.Float64s())
	return tensor.New(
		tensor.WithShape(1),
		tensor.WithBacking([]float64{float64(index)}),
	), nil
}

// AddObservation records a step taken in the environment. The state is
// the state in which the action was taken and reward the reward
// received for taking it. The action recorded is the most recent action
// produced by the updater in GetAction, not the action argument, which
// may have been post-processed (e.g. by taking the argmax) before being
// executed in the environment.
//
// If terminal is true, the current episode is finalized into a path. If
// the batch is full after recording the step, the batch is passed to
// the updater and all buffers are cleared.
func (a *Agent) AddObservation(state, action *tensor.Dense, reward float64,
	terminal bool) error {
	if !a.hasAction {
		return fmt.Errorf("addObservation: %w", ErrNoAction)
	}

	a.episode.store(state, a.lastAction, reward, a.lastOutputs)
	a.steps++

	if terminal {
		a.episode.terminated = true
		if err := a.finishEpisode(); err != nil {
			return fmt.Errorf("addObservation: %v", err)
		}
	}

	if a.steps == a.batchSize {
		// A terminal step has already been finalized above
		if !terminal && a.episode.len() > 0 {
			if err := a.finishEpisode(); err != nil {
				return fmt.Errorf("addObservation: %v", err)
			}
		}

		if err := a.flush(); err != nil {
			return fmt.Errorf("addObservation: %w", err)
		}
	}

	return nil
}

// finishEpisode moves the current episode into the batch. An episode
// that cannot be finalized is discarded and its steps are removed from
// the step count, so that the count always equals the number of steps
// held in the batch and the current episode.
func (a *Agent) finishEpisode() error {
	path, err := a.episode.path()
	if err != nil {
		a.steps -= a.episode.len()
		a.episode.reset()
		return fmt.Errorf("finishEpisode: episode discarded: %v", err)
	}
	a.batch = append(a.batch, path)
	a.episode.reset()
	return nil
}

// flush hands the batch to the updater. The Agent is reset before the
// update so that it holds no reference to the batch the updater owns.
func (a *Agent) flush() error {
	batch := a.batch
	a.batch = nil
	a.episode.reset()
	a.steps = 0

	if a.logger != nil {
		a.logger.Printf("updating with %d paths (%d steps)", len(batch),
			batch.Steps())
	}

	if err := a.updater.Update(batch); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// Steps returns the number of steps collected since the last update
func (a *Agent) Steps() int {
	return a.steps
}

// PendingEpisodes returns the number of finalized paths waiting for the
// next update
func (a *Agent) PendingEpisodes() int {
	return len(a.batch)
}

// EpisodeLen returns the number of steps recorded in the current,
// unfinished episode
func (a *Agent) EpisodeLen() int {
	return a.episode.len()
}

// SaveModel saves the model of the updater to path
func (a *Agent) SaveModel(path string) error {
	return a.updater.SaveModel(path)
}

// LoadModel loads the model of the updater from path
func (a *Agent) LoadModel(path string) error {
	return a.updater.LoadModel(path)
}
