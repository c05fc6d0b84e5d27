// Package experiment implements functionality for running an experiment
package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/agent/pg"
	env "github.com/samuelfneumann/gopg/environment"
	"github.com/samuelfneumann/gopg/environment/box2d/lunarlander"
	"github.com/samuelfneumann/gopg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/gopg/environment/pointmass"
	"github.com/samuelfneumann/gopg/experiment/checkpointer"
	"github.com/samuelfneumann/gopg/experiment/trackers"
	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/policy"
	"github.com/samuelfneumann/gopg/solver"
)

// Experiment outlines structs that can run experiments.
// Experiments will track environment TimeSteps, caching each TimeStep
// in RAM to be later saved to disk. The Save() function will then take
// all cached data and save it to disk. This is usually performed after
// an experiment has been run. The Run() method will run all episodes
// util the maximum timestep limit is reached. The RunEpisode() function
// will run a single episode.
//
// In order to save data, Experiments use Trackers. Experiments will
// send each TimeStep to Trackers using the Tracker's Track() method.
// The Tracker then determines which data from the TimeStep it caches
// and saves.
type Experiment interface {
	Run() error

	// RunEpisode returns whether the step limit has been reached
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new Tracker to the (possibly already running) experiment.
	// Useful if you want to track data only after a specified event.
	Register(t trackers.Tracker)
}

// Agent is an agent that can be run in an experiment
type Agent interface {
	GetAction(state *tensor.Dense) (*tensor.Dense, error)
	AddObservation(state, action *tensor.Dense, reward float64,
		terminal bool) error
}

type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// EnvType determines the environment an experiment is run on
type EnvType string

const (
	PointMassEnv   EnvType = "PointMass"
	LunarLanderEnv EnvType = "LunarLander"
	PendulumEnv    EnvType = "Pendulum"
)

// EnvConfig represents a configuration of an environment. An empty
// Name selects the pointmass environment.
type EnvConfig struct {
	Name         EnvType `json:",omitempty"`
	EpisodeSteps int
	Discount     float64

	// Number of dimensions of the pointmass
	Dims int `json:",omitempty"`

	// Starting pointmass positions are drawn uniformly from
	// [-StartBound, StartBound] in each dimension
	StartBound float64 `json:",omitempty"`
}

// Validate checks an EnvConfig to ensure it is a valid configuration
func (e EnvConfig) Validate() error {
	if e.EpisodeSteps < 1 {
		return fmt.Errorf("episode steps must be positive: %v",
			e.EpisodeSteps)
	}
	if e.Discount < 0 || e.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1]: %v", e.Discount)
	}

	switch e.Name {
	case "", PointMassEnv:
		if e.Dims < 1 {
			return fmt.Errorf("pointmass dimensions must be positive: %v",
				e.Dims)
		}
		if e.StartBound < 0 || e.StartBound > pointmass.PositionBound {
			return fmt.Errorf("start bound must be in [0, %v]: %v",
				pointmass.PositionBound, e.StartBound)
		}
	case LunarLanderEnv, PendulumEnv:
	default:
		return fmt.Errorf("no such environment %v", e.Name)
	}
	return nil
}

// create creates the environment described by the EnvConfig, seeding
// all its randomness with seed
func (e EnvConfig) create(seed uint64) (env.Environment, error) {
	switch e.Name {
	case LunarLanderEnv:
		task := lunarlander.NewLand(lunarlander.DefaultStarter(seed),
			e.EpisodeSteps)
		lander, _, err := lunarlander.NewContinuous(task, e.Discount, seed)
		return lander, err

	case PendulumEnv:
		task := pendulum.NewSwingUp(pendulum.DefaultStarter(seed),
			e.EpisodeSteps)
		p, _, err := pendulum.NewContinuous(task, e.Discount)
		return p, err

	default:
		bounds := make([]r1.Interval, e.Dims)
		for i := range bounds {
			bounds[i] = r1.Interval{Min: -e.StartBound, Max: e.StartBound}
		}
		starter := env.NewUniformStarter(bounds, seed)

		p, _, err := pointmass.New(e.Dims, starter, e.EpisodeSteps,
			e.Discount)
		return p, err
	}
}

// Config represents a configuration of an experiment.
type Config struct {
	Type
	MaxSteps int
	Env      EnvConfig
	Agent    pg.Config
	Policy   policy.Config
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Type != OnlineExp {
		return fmt.Errorf("no such experiment type %v", c.Type)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("cannot have max steps < 1: %v", c.MaxSteps)
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("environment: %v", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %v", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %v", err)
	}
	return nil
}

// CreateExp creates the experiment described by the Config, returning
// the experiment along with its agent so that checkpointers can be
// attached to it. All randomness is seeded by seed.
func (c Config) CreateExp(seed uint64, t []trackers.Tracker,
	check []checkpointer.Checkpointer) (*Online, *pg.Agent, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("createExp: %v", err)
	}

	e, err := c.Env.create(seed)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create "+
			"environment: %v", err)
	}

	policyConfig := c.Policy
	policyConfig.Seed = seed
	updater, err := policy.New("policy", e.ObservationSpec(), e.ActionSpec(),
		policyConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create policy: %v",
			err)
	}

	a, err := pg.New(updater, c.Agent)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create agent: %v",
			err)
	}

	return NewOnline(e, a, c.MaxSteps, t, check), a, nil
}

// DefaultConfig returns the default experiment configuration: a linear
// Gaussian policy trained with Adam on a two dimensional pointmass
func DefaultConfig() (Config, error) {
	policySolver, err := solver.NewDefaultAdam(1e-2, 1)
	if err != nil {
		return Config{}, fmt.Errorf("defaultConfig: %v", err)
	}
	initWFn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return Config{}, fmt.Errorf("defaultConfig: %v", err)
	}

	return Config{
		Type:     OnlineExp,
		MaxSteps: 100_000,
		Env: EnvConfig{
			Name:         PointMassEnv,
			Dims:         2,
			EpisodeSteps: 200,
			Discount:     0.99,
			StartBound:   2.0,
		},
		Agent: pg.DefaultConfig(),
		Policy: policy.Config{
			Gamma:               0.99,
			EntropyCoefficient:  1e-3,
			GradSteps:           5,
			NormalizeAdvantages: true,
			Solver:              policySolver,
			InitWFn:             initWFn,
		},
	}, nil
}
