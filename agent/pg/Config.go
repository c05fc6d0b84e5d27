package pg

import (
	"fmt"
)

// DefaultBatchSize is the number of steps collected between updates
// when no batch size is configured
const DefaultBatchSize = 5000

// Config represents a configuration for the policy gradient Agent
type Config struct {
	// BatchSize is the number of steps to accumulate before the
	// collected paths are handed to the updater
	BatchSize int `json:"batch_size"`

	// Continuous denotes whether the action space is continuous. If
	// false, the Agent returns the index of the largest action
	// component as its action.
	Continuous bool `json:"continuous"`
}

// DefaultConfig returns the default configuration for continuous
// action spaces
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize, Continuous: true}
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("cannot have batch size < 1: %v", c.BatchSize)
	}
	return nil
}
