package environment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/gopg/timestep"
)

// IntervalLimit implements the Ender interface to end episodes
// whenever a single feature in an observation leaves some interval
type IntervalLimit struct {
	intervals []r1.Interval
	indices   []int
	endType   timestep.EndType
}

// NewIntervalLimit creates and returns a new inteval limit which
// watches the observation features at obsIndices. The endType argument
// determines what the episode end should be considered as.
func NewIntervalLimit(limits []r1.Interval, obsIndices []int,
	endType timestep.EndType) (*IntervalLimit, error) {
	if len(limits) != len(obsIndices) {
		return nil, fmt.Errorf("newIntervalLimit: limits should have same "+
			"length as observation indices \n\twant(%v)\n\thave(%v)",
			len(obsIndices), len(limits))
	}

	return &IntervalLimit{limits, obsIndices, endType}, nil
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode temrination. If the episode
// should be ended End() will modify the timestep so that its StepType
// field is timestep.Last and its EndType is the appropriate ending
// type.
func (i *IntervalLimit) End(t *timestep.TimeStep) bool {
	obs := t.Observation.Float64s()
	for index, featureIndex := range i.indices {
		interval := i.intervals[index]

		if obs[featureIndex] > interval.Max || obs[featureIndex] < interval.Min {
			t.StepType = timestep.Last
			t.EndType = i.endType
			return true
		}
	}
	return false
}
