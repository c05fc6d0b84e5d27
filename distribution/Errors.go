package distribution

import "fmt"

// ValueError is returned when a distribution is constructed with an
// invalid argument. It names the distribution, the offending argument
// and its value, along with a short hint on what is wrong.
type ValueError struct {
	Name     string
	Argument string
	Value    interface{}
	Hint     string
}

func (v *ValueError) Error() string {
	return fmt.Sprintf("%v: invalid value for argument %v: %v (%v)",
		v.Name, v.Argument, v.Value, v.Hint)
}
