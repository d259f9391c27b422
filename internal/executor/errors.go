package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrOracleFailure marks a single failed draw. Oracle implementations may
	// wrap their errors with OracleFailure; any error is treated the same.
	ErrOracleFailure = errors.New("oracle failure")

	// ErrOracleExhausted is returned when the resample cap is reached before
	// any candidate was accepted.
	ErrOracleExhausted = errors.New("oracle exhausted")

	// ErrInvalidStepConfig is returned for caps or margin below 1.
	ErrInvalidStepConfig = errors.New("invalid step config")
)

// OracleFailure wraps err so errors.Is(err, ErrOracleFailure) holds.
func OracleFailure(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrOracleFailure, err)
}

// ExhaustedError reports how the resample budget was spent.
type ExhaustedError struct {
	ResampleCap    int
	Rejections     int
	OracleFailures int
	LastErr        error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: no candidate accepted after %d draws (%d rejected, %d failed)",
		ErrOracleExhausted, e.ResampleCap, e.Rejections, e.OracleFailures)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrOracleExhausted) match.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrOracleExhausted
}

// Unwrap returns the last oracle error, if any.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
