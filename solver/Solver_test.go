package solver

import (
	"encoding/json"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	adam, err := NewDefaultAdam(0.01, 32)
	if err != nil {
		t.Fatal(err)
	}
	vanilla, err := NewVanilla(0.1, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	rmsprop, err := NewDefaultRMSProp(0.001, 8)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []*Solver{adam, vanilla, rmsprop} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("%v: could not marshal: %v", s.Type, err)
		}

		var decoded Solver
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%v: could not unmarshal %s: %v", s.Type, data, err)
		}

		if decoded.Type != s.Type {
			t.Errorf("type: want(%v) have(%v)", s.Type, decoded.Type)
		}
		if decoded.Config != s.Config {
			t.Errorf("config: want(%+v) have(%+v)", s.Config, decoded.Config)
		}
		if decoded.Solver == nil {
			t.Errorf("%v: gorgonia solver not created", s.Type)
		}
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown type", `{"Type": "SGDM", "Config": {}}`},
		{"missing type", `{"Config": {"StepSize": 0.1, "Batch": 1}}`},
		{"invalid config", `{"Type": "Vanilla", "Config": {"StepSize": -1, "Batch": 1}}`},
	}

	for _, test := range tests {
		var s Solver
		if err := json.Unmarshal([]byte(test.data), &s); err == nil {
			t.Errorf("%v: expected error", test.name)
		}
	}
}

func TestValidate(t *testing.T) {
	if _, err := NewAdam(0.1, 1e-8, 1.5, 0.999, 1, -1); err == nil {
		t.Error("β1 > 1: expected error")
	}
	if _, err := NewRMSProp(0.1, 1e-8, 0, 1, -1); err == nil {
		t.Error("ρ = 0: expected error")
	}
	if _, err := NewVanilla(0.1, 0, -1); err == nil {
		t.Error("batch size 0: expected error")
	}
}
