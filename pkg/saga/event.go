package saga

// EventKind identifies one event type in the saga vocabulary.
type EventKind int

const (
	EventSagaStarted EventKind = iota
	EventStepStarted
	EventStepFinished
	EventStepFailed
	EventCompensationStarted
	EventCompensationFinished
	EventSagaCompleted
	EventSagaFailed
)

// String returns the stable internal label used for persistence.
func (k EventKind) String() string {
	switch k {
	case EventSagaStarted:
		return "saga_started"
	case EventStepStarted:
		return "step_started"
	case EventStepFinished:
		return "step_finished"
	case EventStepFailed:
		return "step_failed"
	case EventCompensationStarted:
		return "compensation_started"
	case EventCompensationFinished:
		return "compensation_finished"
	case EventSagaCompleted:
		return "saga_completed"
	case EventSagaFailed:
		return "saga_failed"
	default:
		return "unknown"
	}
}

// ParseEventKind parses a persisted event kind label.
func ParseEventKind(s string) (EventKind, bool) {
	switch s {
	case "saga_started":
		return EventSagaStarted, true
	case "step_started":
		return EventStepStarted, true
	case "step_finished":
		return EventStepFinished, true
	case "step_failed":
		return EventStepFailed, true
	case "compensation_started":
		return EventCompensationStarted, true
	case "compensation_finished":
		return EventCompensationFinished, true
	case "saga_completed":
		return EventSagaCompleted, true
	case "saga_failed":
		return EventSagaFailed, true
	default:
		return 0, false
	}
}

// Event is one emitted saga lifecycle event. Step is empty for saga-level
// events. Data carries the accumulated payload snapshot at the point the
// event was emitted; terminal SagaCompleted/SagaFailed events carry none.
type Event struct {
	Kind   EventKind
	Step   string
	SagaID string
	Data   map[string]any
}

// Name returns the derived external name of the event, e.g.
// "ReserveCompensationStarted" or "SagaCompleted".
func (e Event) Name() string {
	return EventName(e.Kind, e.Step)
}
