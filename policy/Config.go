package policy

import (
	"fmt"

	"github.com/samuelfneumann/gopg/initwfn"
	"github.com/samuelfneumann/gopg/solver"
)

// Config represents a configuration of the Gaussian policy updater
type Config struct {
	// Discount factor used to compute rewards-to-go
	Gamma float64

	// EntropyCoefficient scales the entropy bonus added to the policy
	// gradient objective
	EntropyCoefficient float64

	// GradSteps is the number of gradient steps taken on each batch
	GradSteps int

	// NormalizeAdvantages denotes whether rewards-to-go are normalized
	// over the batch before being used as advantages
	NormalizeAdvantages bool

	// Deterministic denotes whether the policy acts greedily, returning
	// the mean action
	Deterministic bool

	Solver  *solver.Solver
	InitWFn *initwfn.InitWFn // nil for zero initial weights
	Seed    uint64
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("discount must be in [0, 1]: %v", c.Gamma)
	}
	if c.EntropyCoefficient < 0 {
		return fmt.Errorf("entropy coefficient must be non-negative: %v",
			c.EntropyCoefficient)
	}
	if c.GradSteps < 1 {
		return fmt.Errorf("cannot have gradient steps < 1: %v", c.GradSteps)
	}
	if c.Solver == nil {
		return fmt.Errorf("solver cannot be nil")
	}
	return nil
}
