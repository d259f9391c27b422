package planner

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned for inputs outside the planner's domain.
var ErrInvalidParameter = errors.New("invalid planner parameter")

// ParamError names the offending parameter.
type ParamError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidParameter, e.Param, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidParameter) match.
func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func validate(steps int, p, t float64) error {
	if steps < 1 {
		return &ParamError{Param: "steps", Value: float64(steps), Reason: "must be >= 1"}
	}
	if err := validateAccuracy(p); err != nil {
		return err
	}
	if math.IsNaN(t) || t <= 0 || t >= 1 {
		return &ParamError{Param: "target_success", Value: t, Reason: "must be in (0, 1)"}
	}
	return nil
}

func validateAccuracy(p float64) error {
	if math.IsNaN(p) || p <= 0.5 || p >= 1 {
		return &ParamError{Param: "per_step_accuracy", Value: p, Reason: "must be in (0.5, 1); voting cannot amplify accuracy at or below 0.5"}
	}
	return nil
}
