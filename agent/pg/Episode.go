package pg

import (
	"fmt"

	"github.com/samuelfneumann/gopg/agent"
	"gorgonia.org/tensor"
)

// episode accumulates the steps of the episode currently being
// experienced. Index i of each slice refers to step i.
type episode struct {
	states        []*tensor.Dense
	actions       []*tensor.Dense
	rewards       []float64
	actionMeans   []*tensor.Dense
	actionLogStds []*tensor.Dense
	terminated    bool
}

func (e *episode) len() int {
	return len(e.rewards)
}

// store appends a single step to the episode. The tensors are cloned so
// that later modifications by the caller do not affect the episode.
func (e *episode) store(state, action *tensor.Dense, reward float64,
	outputs agent.Outputs) {
	e.states = append(e.states, clone(state))
	e.actions = append(e.actions, clone(action))
	e.rewards = append(e.rewards, reward)
	e.actionMeans = append(e.actionMeans, clone(outputs.ActionMeans))
	e.actionLogStds = append(e.actionLogStds, clone(outputs.ActionLogStds))
}

func (e *episode) reset() {
	*e = episode{}
}

// path converts the episode into an agent.Path. States and actions are
// stacked along a new leading axis while the distribution outputs,
// which already carry a batch axis, are concatenated along it.
func (e *episode) path() (agent.Path, error) {
	if e.len() == 0 {
		return agent.Path{}, fmt.Errorf("path: cannot finalize empty episode")
	}

	states, err := stack(e.states)
	if err != nil {
		return agent.Path{}, fmt.Errorf("path: could not stack states: %v", err)
	}

	actions, err := stack(e.actions)
	if err != nil {
		return agent.Path{}, fmt.Errorf("path: could not stack actions: %v",
			err)
	}

	means, err := concat(e.actionMeans)
	if err != nil {
		return agent.Path{}, fmt.Errorf("path: could not concatenate action "+
			"means: %v", err)
	}

	logStds, err := concat(e.actionLogStds)
	if err != nil {
		return agent.Path{}, fmt.Errorf("path: could not concatenate action "+
			"log standard deviations: %v", err)
	}

	rewards := make([]float64, len(e.rewards))
	copy(rewards, e.rewards)

	return agent.Path{
		States:        states,
		Actions:       actions,
		Rewards:       tensor.New(tensor.WithShape(len(rewards)), tensor.WithBacking(rewards)),
		ActionMeans:   means,
		ActionLogStds: logStds,
		Terminated:    e.terminated,
	}, nil
}

func clone(t *tensor.Dense) *tensor.Dense {
	if t == nil {
		return nil
	}
	return t.Clone().(*tensor.Dense)
}

// stack stacks the tensors along a new leading axis
func stack(ts []*tensor.Dense) (*tensor.Dense, error) {
	if len(ts) == 0 || ts[0] == nil {
		return nil, fmt.Errorf("stack: no tensors to stack")
	}

	if err := sameShape(ts); err != nil {
		return nil, fmt.Errorf("stack: %v", err)
	}

	if len(ts) > 1 {
		return ts[0].Stack(0, ts[1:]...)
	}

	// A single tensor only needs the new leading axis
	out := clone(ts[0])
	shape := append([]int{1}, ts[0].Shape()...)
	if err := out.Reshape(shape...); err != nil {
		return nil, fmt.Errorf("stack: %v", err)
	}
	return out, nil
}

// concat concatenates the tensors along their leading axis
func concat(ts []*tensor.Dense) (*tensor.Dense, error) {
	if len(ts) == 0 || ts[0] == nil {
		return nil, fmt.Errorf("concat: no tensors to concatenate")
	}

	if err := sameShape(ts); err != nil {
		return nil, fmt.Errorf("concat: %v", err)
	}

	if len(ts) > 1 {
		return ts[0].Concat(0, ts[1:]...)
	}
	return clone(ts[0]), nil
}

// sameShape returns an error if the tensors do not all share the shape
// of the first. tensor.Stack silently truncates mismatched tensors.
func sameShape(ts []*tensor.Dense) error {
	for i := 1; i < len(ts); i++ {
		if ts[i] == nil {
			return fmt.Errorf("step %d: nil tensor", i)
		}
		if !ts[i].Shape().Eq(ts[0].Shape()) {
			return fmt.Errorf("step %d: shape %v does not match shape %v "+
				"of step 0", i, ts[i].Shape(), ts[0].Shape())
		}
	}
	return nil
}
