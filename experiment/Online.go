package experiment

import (
	"fmt"

	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/experiment/checkpointer"
	"github.com/samuelfneumann/gopg/experiment/trackers"
	ts "github.com/samuelfneumann/gopg/timestep"
	"github.com/samuelfneumann/gopg/utils/progressbar"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	environment   env.Environment
	agent         Agent
	maxSteps      int
	currentSteps  int
	trackers      []trackers.Tracker
	checkpointers []checkpointer.Checkpointer
	progress      *progressbar.ProgressBar
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, the t parameter determines
// what data is saved, and the c parameter determines when the agent is
// checkpointed.
func NewOnline(e env.Environment, a Agent, steps int, t []trackers.Tracker,
	c []checkpointer.Checkpointer) *Online {
	return &Online{
		environment:   e,
		agent:         a,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: c,
	}
}

// SetProgressBar sets a progress bar which is incremented on each step
func (o *Online) SetProgressBar(p *progressbar.ProgressBar) {
	o.progress = p
}

// Register registers a Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// AddCheckpointer adds a Checkpointer that is consulted at every
// timestep
func (o *Online) AddCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// Steps returns the number of steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: could not reset: %v", err)
	}
	if err := o.track(step); err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}

	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++
		state := step.Observation

		action, err := o.agent.GetAction(state)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		step, _, err = o.environment.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		if err := o.agent.AddObservation(state, action, step.Reward,
			step.Last()); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.track(step); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		if o.progress != nil {
			o.progress.Increment()
			if o.currentSteps%100 == 0 {
				o.progress.Display()
			}
		}
	}

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run() error {
	for ended := false; !ended; {
		var err error
		if ended, err = o.RunEpisode(); err != nil {
			return err
		}
	}

	if o.progress != nil {
		o.progress.Close()
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			return err
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// Tracker and checkpointing the agent if needed
func (o *Online) track(t ts.TimeStep) error {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return fmt.Errorf("track: could not checkpoint: %v", err)
		}
	}
	return nil
}
