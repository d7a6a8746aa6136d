package saga

import (
	"errors"
	"fmt"
)

var (
	// ErrBuilderState is reported when a command is attached before any step
	// has been declared.
	ErrBuilderState = errors.New("saga builder: step must be declared before its commands")

	ErrNoSteps          = errors.New("saga definition requires at least one step")
	ErrMissingForward   = errors.New("saga step has no forward command")
	ErrEmptyChannel     = errors.New("saga step channel is required")
	ErrDuplicateChannel = errors.New("duplicate saga step channel")
	ErrMissingSagaID    = errors.New("saga id is required")
	ErrMalformedMessage = errors.New("malformed saga message")
	ErrCommandPanic     = errors.New("saga command panicked")

	// ErrPartiallyApplied marks a forward failure that left durable effects
	// behind. The failed step is then compensated as well.
	ErrPartiallyApplied = errors.New("saga step partially applied")
)

// PartiallyApplied wraps a forward command failure so that the orchestrator
// compensates the failing step itself instead of starting at the one before.
func PartiallyApplied(err error) error {
	if err == nil {
		return ErrPartiallyApplied
	}
	return fmt.Errorf("%w: %w", ErrPartiallyApplied, err)
}

// TransportError is a failure of the channel layer. It is never recovered
// by the orchestrator.
type TransportError struct {
	Op        string
	ChannelID string
	Err       error
}

func (e *TransportError) Error() string {
	if e.ChannelID == "" {
		return fmt.Sprintf("saga transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("saga transport %s %q: %v", e.Op, e.ChannelID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err carries a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
