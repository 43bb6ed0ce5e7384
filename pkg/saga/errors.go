package saga

import (
	"errors"
	"fmt"
)

// ErrEmptyCatalog is returned when a catalog is built from zero steps.
var ErrEmptyCatalog = errors.New("saga: catalog must define at least one step")

// DuplicateStepNameError is returned when two steps share a name.
type DuplicateStepNameError struct {
	Name string
}

func (e *DuplicateStepNameError) Error() string {
	return fmt.Sprintf("saga: duplicate step name %q", e.Name)
}

// RejectionReason classifies why a command could not be applied.
type RejectionReason int

const (
	// RejectUnknownSaga is returned for a non-Start command addressed to a
	// saga that has no recorded state.
	RejectUnknownSaga RejectionReason = iota
	// RejectSagaAlreadyStarted is returned for a duplicate Start.
	RejectSagaAlreadyStarted
	// RejectSagaTerminal is returned for any command against a saga in a
	// terminal phase.
	RejectSagaTerminal
	// RejectStepMismatch is returned when the command's step is not the
	// currently active step. This is the idempotency backstop for
	// at-least-once delivery from external executors.
	RejectStepMismatch
	// RejectPhaseMismatch is returned when the command type does not match
	// the current phase, e.g. a Finish while compensating.
	RejectPhaseMismatch
)

// String returns the reason label used in logs, metrics and API responses.
func (r RejectionReason) String() string {
	switch r {
	case RejectUnknownSaga:
		return "unknown_saga"
	case RejectSagaAlreadyStarted:
		return "saga_already_started"
	case RejectSagaTerminal:
		return "saga_terminal"
	case RejectStepMismatch:
		return "step_mismatch"
	case RejectPhaseMismatch:
		return "phase_mismatch"
	default:
		return "unknown"
	}
}

// Rejection reports that a command could not be applied. It carries no state
// change and is an expected outcome the caller must branch on, distinct from
// the SagaFailed terminal event which is a successful run of the machine.
type Rejection struct {
	Reason RejectionReason
	// Command is the derived external name of the rejected command.
	Command string
	SagaID  string
	// ActiveStep is the step that was in flight when the command arrived,
	// empty when no step was active.
	ActiveStep string
}

func (r *Rejection) Error() string {
	if r.ActiveStep != "" {
		return fmt.Sprintf("saga: command %s rejected for saga %s (active step %s): %s",
			r.Command, r.SagaID, r.ActiveStep, r.Reason)
	}
	return fmt.Sprintf("saga: command %s rejected for saga %s: %s", r.Command, r.SagaID, r.Reason)
}

// AsRejection unwraps err into a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
