package experiment

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gopg/environment/box2d/lunarlander"
	"github.com/samuelfneumann/gopg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/gopg/experiment/checkpointer"
	"github.com/samuelfneumann/gopg/experiment/trackers"
	"github.com/samuelfneumann/gopg/solver"
)

const configJSON = `{
	"Type": "OnlineExperiment",
	"MaxSteps": 200,
	"Env": {"Dims": 2, "EpisodeSteps": 25, "Discount": 0.99, "StartBound": 2},
	"Agent": {"batch_size": 50, "continuous": true},
	"Policy": {
		"Gamma": 0.99,
		"EntropyCoefficient": 0.001,
		"GradSteps": 2,
		"NormalizeAdvantages": true,
		"Solver": {"Type": "Adam", "Config": {"StepSize": 0.01, "Epsilon": 1e-8, "Beta1": 0.9, "Beta2": 0.999, "Batch": 1, "Clip": -1}},
		"InitWFn": {"Type": "GlorotU", "Config": {"Gain": 1}}
	}
}`

func TestConfigJSON(t *testing.T) {
	var c Config
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.Agent.BatchSize != 50 || c.Env.Dims != 2 || c.Policy.GradSteps != 2 {
		t.Errorf("config not decoded: %+v", c)
	}
	if c.Policy.Solver.Type != solver.Adam {
		t.Errorf("solver: want(%v) have(%v)", solver.Adam, c.Policy.Solver.Type)
	}
	if c.Policy.InitWFn == nil {
		t.Error("weight initializer not decoded")
	}

	c.Type = "OfflineExperiment"
	if err := c.Validate(); err == nil {
		t.Error("unknown experiment type: expected error")
	}
}

func TestDefaultConfig(t *testing.T) {
	c, err := DefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Error(err)
	}

	// The default configuration survives a JSON round trip
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("could not decode %s: %v", data, err)
	}
	if decoded.Policy.Solver.Config != c.Policy.Solver.Config {
		t.Errorf("solver: want(%v) have(%v)", c.Policy.Solver,
			decoded.Policy.Solver)
	}
}

func TestOnlineRun(t *testing.T) {
	var c Config
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	returns := trackers.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))

	exp, a, err := c.CreateExp(1, []trackers.Tracker{returns}, nil)
	if err != nil {
		t.Fatal(err)
	}
	exp.Register(lengths)

	check, err := checkpointer.NewNStep(100, a, checkpointer.FilenameEnumerator(
		0, filepath.Join(dir, "model"), ".bin"))
	if err != nil {
		t.Fatal(err)
	}
	exp.AddCheckpointer(check)

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if exp.Steps() != c.MaxSteps {
		t.Errorf("steps: want(%v) have(%v)", c.MaxSteps, exp.Steps())
	}

	// Four full batches have been handed to the updater
	if a.Steps() != 0 || a.PendingEpisodes() != 0 {
		t.Errorf("agent buffers not flushed: steps(%v) paths(%v)", a.Steps(),
			a.PendingEpisodes())
	}

	if len(returns.Returns()) == 0 {
		t.Error("no episodic returns tracked")
	}
	for _, l := range lengths.Lengths() {
		if l > float64(c.Env.EpisodeSteps) {
			t.Errorf("episode longer than step limit: %v", l)
		}
	}

	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := trackers.LoadData(filepath.Join(dir, "returns.bin")); err != nil {
		t.Error(err)
	}
	if err := a.LoadModel(filepath.Join(dir, "model2.bin")); err != nil {
		t.Errorf("checkpoint not saved: %v", err)
	}
}

func TestEnvConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		env   EnvConfig
		valid bool
	}{
		{"pointmass", EnvConfig{Name: PointMassEnv, Dims: 2, EpisodeSteps: 10,
			Discount: 0.9, StartBound: 1}, true},
		{"defaultName", EnvConfig{Dims: 1, EpisodeSteps: 10, Discount: 1},
			true},
		{"lunarLander", EnvConfig{Name: LunarLanderEnv, EpisodeSteps: 10,
			Discount: 0.99}, true},
		{"pendulum", EnvConfig{Name: PendulumEnv, EpisodeSteps: 10,
			Discount: 0.99}, true},
		{"unknown", EnvConfig{Name: "CartPole", EpisodeSteps: 10,
			Discount: 0.99}, false},
		{"noDims", EnvConfig{Name: PointMassEnv, EpisodeSteps: 10,
			Discount: 0.99}, false},
		{"startBound", EnvConfig{Dims: 2, EpisodeSteps: 10, Discount: 0.99,
			StartBound: 10}, false},
		{"noSteps", EnvConfig{Name: LunarLanderEnv, Discount: 0.99}, false},
		{"discount", EnvConfig{Name: LunarLanderEnv, EpisodeSteps: 10,
			Discount: 1.5}, false},
	}

	for _, test := range tests {
		err := test.env.Validate()
		if test.valid && err != nil {
			t.Errorf("%v: unexpected error: %v", test.name, err)
		} else if !test.valid && err == nil {
			t.Errorf("%v: expected error", test.name)
		}
	}
}

func TestLunarLanderRun(t *testing.T) {
	var c Config
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		t.Fatal(err)
	}
	c.MaxSteps = 150
	c.Env = EnvConfig{Name: LunarLanderEnv, EpisodeSteps: 60, Discount: 0.99}

	lengths := trackers.NewEpisodeLength(filepath.Join(t.TempDir(),
		"lengths.bin"))
	exp, a, err := c.CreateExp(2, []trackers.Tracker{lengths}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// The policy acts on the 8 lunar lander features with 2 actions
	if spec := exp.environment.ObservationSpec(); !spec.Shape.Eq(
		tensor.Shape{lunarlander.StateObservations}) {
		t.Errorf("observation shape: %v", spec.Shape)
	}

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if exp.Steps() != c.MaxSteps {
		t.Errorf("steps: want(%v) have(%v)", c.MaxSteps, exp.Steps())
	}

	// Three full batches of 50 steps have been handed to the updater
	if a.Steps() != 0 || a.PendingEpisodes() != 0 {
		t.Errorf("agent buffers not flushed: steps(%v) paths(%v)", a.Steps(),
			a.PendingEpisodes())
	}
	if len(lengths.Lengths()) == 0 {
		t.Error("no episodes completed")
	}
	for _, l := range lengths.Lengths() {
		if l > float64(c.Env.EpisodeSteps) {
			t.Errorf("episode longer than step limit: %v", l)
		}
	}
}

func TestPendulumRun(t *testing.T) {
	var c Config
	if err := json.Unmarshal([]byte(configJSON), &c); err != nil {
		t.Fatal(err)
	}
	c.MaxSteps = 100
	c.Env = EnvConfig{Name: PendulumEnv, EpisodeSteps: 25, Discount: 0.99}

	lengths := trackers.NewEpisodeLength(filepath.Join(t.TempDir(),
		"lengths.bin"))
	exp, _, err := c.CreateExp(3, []trackers.Tracker{lengths}, nil)
	if err != nil {
		t.Fatal(err)
	}

	spec := exp.environment.ActionSpec()
	if !spec.Shape.Eq(tensor.Shape{pendulum.ActionDims}) {
		t.Errorf("action shape: %v", spec.Shape)
	}

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	// SwingUp only ends by its step limit
	if have := lengths.Lengths(); len(have) != 4 {
		t.Errorf("episodes: want(4) have(%v)", len(have))
	}
	for _, l := range lengths.Lengths() {
		if l != float64(c.Env.EpisodeSteps) {
			t.Errorf("episode length: want(%v) have(%v)", c.Env.EpisodeSteps,
				l)
		}
	}
}
