package trackers

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"

	ts "github.com/samuelfneumann/gopg/timestep"
)

// episode returns the timesteps of an episode with the given rewards
func episode(rewards ...float64) []ts.TimeStep {
	obs := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float64{0}))
	steps := []ts.TimeStep{ts.New(ts.First, 0, 1, obs, 0)}
	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		steps = append(steps, ts.New(stepType, r, 1, obs, i+1))
	}
	return steps
}

func TestReturn(t *testing.T) {
	dir := t.TempDir()
	r := NewReturn(filepath.Join(dir, "returns.bin"))
	l := NewEpisodeLength(filepath.Join(dir, "lengths.bin"))

	steps := append(episode(1, 2, 3), episode(-1, -1)...)
	for _, step := range steps {
		r.Track(step)
		l.Track(step)
	}

	want := []float64{6, -2}
	if !floats.Equal(r.Returns(), want) {
		t.Errorf("returns: want(%v) have(%v)", want, r.Returns())
	}
	if wantLens := []float64{3, 2}; !floats.Equal(l.Lengths(), wantLens) {
		t.Errorf("lengths: want(%v) have(%v)", wantLens, l.Lengths())
	}

	if err := r.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadData(filepath.Join(dir, "returns.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(loaded, want) {
		t.Errorf("loaded: want(%v) have(%v)", want, loaded)
	}

	if err := l.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadData(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestReturnNonSequential(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("non-sequential timesteps: expected panic")
		}
	}()

	r := NewReturn("")
	steps := episode(1, 2, 3)
	r.Track(steps[0])
	r.Track(steps[2])
}

func TestMovingAverage(t *testing.T) {
	have := MovingAverage([]float64{1, 3, 5, 7}, 2)
	want := []float64{1, 2, 4, 6}
	if !floats.Equal(have, want) {
		t.Errorf("want(%v) have(%v)", want, have)
	}
}

func TestPlot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.png")
	data := []float64{-10, -8, -9, -5, -3, -4, -1}

	if err := Plot(filename, "Returns", "Return", data, 3); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}

	if err := Plot(filename, "Returns", "Return", nil, 3); err == nil {
		t.Error("empty data: expected error")
	}
}
