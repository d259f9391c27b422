package voting

import (
	"errors"
	"fmt"
)

// ErrSessionMisuse is returned when Observe, Exhaust or Result is called in a
// state that does not allow it. It signals a programming error in the caller.
var ErrSessionMisuse = errors.New("voting session misuse")

// ErrInvalidSession is returned by NewSession for a margin or cap below 1.
var ErrInvalidSession = errors.New("invalid voting session parameters")

// MisuseError describes which operation was attempted in which state.
type MisuseError struct {
	Op    string
	State State
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s not allowed in state %s", ErrSessionMisuse, e.Op, e.State)
}

// Is makes errors.Is(err, ErrSessionMisuse) match.
func (e *MisuseError) Is(target error) bool {
	return target == ErrSessionMisuse
}
