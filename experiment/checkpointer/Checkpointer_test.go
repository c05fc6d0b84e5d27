package checkpointer

import (
	"strings"
	"testing"

	ts "github.com/samuelfneumann/gopg/timestep"
)

type recorder struct {
	saved []string
}

func (r *recorder) SaveModel(filename string) error {
	r.saved = append(r.saved, filename)
	return nil
}

func TestNStep(t *testing.T) {
	if _, err := NewNStep(0, &recorder{}, nil); err == nil {
		t.Error("zero interval: expected error")
	}

	r := &recorder{}
	c, err := NewNStep(2, r, FilenameEnumerator(0, "model", ".bin"))
	if err != nil {
		t.Fatal(err)
	}

	// Two episodes of three environment steps each
	for episode := 0; episode < 2; episode++ {
		for i := 0; i <= 3; i++ {
			stepType := ts.Mid
			if i == 0 {
				stepType = ts.First
			}
			if err := c.Checkpoint(ts.New(stepType, 0, 1, nil, i)); err != nil {
				t.Fatal(err)
			}
		}
	}

	want := []string{"model1.bin", "model2.bin", "model3.bin"}
	if strings.Join(r.saved, ",") != strings.Join(want, ",") {
		t.Errorf("want(%v) have(%v)", want, r.saved)
	}
}

func TestFileTimer(t *testing.T) {
	name := FileTimer("model", ".bin")()
	if !strings.HasPrefix(name, "model-") || !strings.HasSuffix(name, ".bin") {
		t.Errorf("unexpected filename %v", name)
	}
}
