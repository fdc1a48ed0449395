package dynamo

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by the simulator wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrConfiguration indicates inconsistent or missing parameters, detected
	// at construction time.
	ErrConfiguration = errors.New("dynamo: configuration error")

	// ErrNumerical indicates the integration produced non-finite or
	// out-of-range values. The run is aborted.
	ErrNumerical = errors.New("dynamo: numerical error")

	// ErrMisuse indicates an API contract violation by the caller.
	ErrMisuse = errors.New("dynamo: misuse")
)

// Specific errors, each wrapping one of the classes above.
var (
	// ErrDimensionMismatch indicates mismatched state dimensions between
	// composed sub-models.
	ErrDimensionMismatch = fmt.Errorf("%w: state dimension mismatch", ErrConfiguration)

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = fmt.Errorf("%w: invalid state (NaN or Inf detected)", ErrNumerical)

	// ErrOutOfRange indicates a physically implausible state value.
	ErrOutOfRange = fmt.Errorf("%w: state out of physical range", ErrNumerical)

	// ErrStepTooSmall indicates the adaptive timestep fell below the minimum.
	ErrStepTooSmall = fmt.Errorf("%w: adaptive timestep below minimum", ErrNumerical)

	// ErrAlreadySimulated indicates Simulate was called more than once.
	ErrAlreadySimulated = fmt.Errorf("%w: simulation already run", ErrMisuse)

	// ErrUndefinedSignal indicates a time function returned a non-finite value.
	ErrUndefinedSignal = fmt.Errorf("%w: signal undefined", ErrMisuse)
)

// Configf returns a configuration error with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// SimulationError wraps an error with the time and state at which the run
// was aborted.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Names   []string
	Wrapped error
}

func (e *SimulationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
	if len(e.State) > 0 {
		sb.WriteString(" [")
		for i, v := range e.State {
			if i > 0 {
				sb.WriteString(" ")
			}
			name := fmt.Sprintf("x%d", i)
			if i < len(e.Names) {
				name = e.Names[i]
			}
			fmt.Fprintf(&sb, "%s=%g", name, v)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
