package saga

// Phase is the saga instance's position in the forward/backward lifecycle.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseStepStarted
	PhaseStepFinished
	PhaseStepFailed
	PhaseCompensationStarted
	PhaseCompensationFinished
	PhaseCompleted
	PhaseFailed
)

// String returns the string form of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseStepStarted:
		return "step_started"
	case PhaseStepFinished:
		return "step_finished"
	case PhaseStepFailed:
		return "step_failed"
	case PhaseCompensationStarted:
		return "compensation_started"
	case PhaseCompensationFinished:
		return "compensation_finished"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the phase admits no further transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// State is the per-instance snapshot the machine decides against. It is the
// fold of the instance's emitted event sequence and is never mutated in
// place: Apply returns a new value.
type State struct {
	SagaID   string         `json:"saga_id"`
	Position int            `json:"position"`
	Phase    Phase          `json:"phase"`
	Data     map[string]any `json:"data,omitempty"`
}

// NewState returns the zero state of a not-yet-started instance.
func NewState() State {
	return State{Phase: PhaseNotStarted}
}
