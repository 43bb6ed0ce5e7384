package saga

import "fmt"

// Machine is the single authority over valid transitions for one saga type.
// Apply is a pure function over a state snapshot: it never blocks, performs
// no I/O, and mutates nothing — the caller persists and publishes the
// returned events. Commands for the same saga id must be applied
// sequentially; concurrent snapshots of one instance would race on which
// result wins.
type Machine struct {
	catalog *Catalog
}

// NewMachine creates a state machine over a step catalog.
func NewMachine(catalog *Catalog) (*Machine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("saga: catalog cannot be nil")
	}
	return &Machine{catalog: catalog}, nil
}

// Catalog returns the machine's step catalog.
func (m *Machine) Catalog() *Catalog {
	return m.catalog
}

// Apply validates the command against the current state and returns the
// ordered events it produces together with the resulting state. The resulting
// state is exactly the fold of the returned events over the input state. On
// rejection the input state is returned unchanged alongside a *Rejection
// error; rejections are expected outcomes, not failures of the machine.
func (m *Machine) Apply(state State, cmd Command) ([]Event, State, error) {
	if cmd.SagaID == "" {
		return nil, state, fmt.Errorf("saga: command saga id cannot be empty")
	}

	if state.Phase.IsTerminal() {
		return nil, state, m.reject(RejectSagaTerminal, state, cmd)
	}

	var events []Event
	switch cmd.Kind {
	case CommandStart:
		if state.Phase != PhaseNotStarted {
			return nil, state, m.reject(RejectSagaAlreadyStarted, state, cmd)
		}
		data := Merge(nil, cmd.Data)
		events = []Event{
			{Kind: EventSagaStarted, SagaID: cmd.SagaID, Data: data},
			{Kind: EventStepStarted, Step: m.catalog.First().Name, SagaID: cmd.SagaID, Data: data},
		}

	case CommandFinish:
		if state.Phase == PhaseNotStarted {
			return nil, state, m.reject(RejectUnknownSaga, state, cmd)
		}
		if state.Phase != PhaseStepStarted {
			return nil, state, m.reject(RejectPhaseMismatch, state, cmd)
		}
		active, _ := m.catalog.At(state.Position)
		if cmd.Step != active.Name {
			return nil, state, m.reject(RejectStepMismatch, state, cmd)
		}

		data := Merge(state.Data, cmd.Data)
		events = []Event{{Kind: EventStepFinished, Step: active.Name, SagaID: cmd.SagaID, Data: data}}
		if next, ok := m.catalog.Next(state.Position); ok {
			events = append(events, Event{Kind: EventStepStarted, Step: next.Name, SagaID: cmd.SagaID, Data: data})
		} else {
			events = append(events, Event{Kind: EventSagaCompleted, SagaID: cmd.SagaID})
		}

	case CommandFail:
		if state.Phase == PhaseNotStarted {
			return nil, state, m.reject(RejectUnknownSaga, state, cmd)
		}
		if state.Phase != PhaseStepStarted {
			return nil, state, m.reject(RejectPhaseMismatch, state, cmd)
		}
		active, _ := m.catalog.At(state.Position)
		if cmd.Step != active.Name {
			return nil, state, m.reject(RejectStepMismatch, state, cmd)
		}

		events = []Event{{Kind: EventStepFailed, Step: active.Name, SagaID: cmd.SagaID, Data: state.Data}}
		events = append(events, m.compensationNext(state, cmd.SagaID, true)...)

	case CommandFinishCompensation:
		if state.Phase == PhaseNotStarted {
			return nil, state, m.reject(RejectUnknownSaga, state, cmd)
		}
		if state.Phase != PhaseCompensationStarted {
			return nil, state, m.reject(RejectPhaseMismatch, state, cmd)
		}
		active, _ := m.catalog.At(state.Position)
		if cmd.Step != active.Name {
			return nil, state, m.reject(RejectStepMismatch, state, cmd)
		}

		events = []Event{{Kind: EventCompensationFinished, Step: active.Name, SagaID: cmd.SagaID, Data: state.Data}}
		events = append(events, m.compensationNext(state, cmd.SagaID, false)...)

	default:
		return nil, state, fmt.Errorf("saga: unknown command kind %d", cmd.Kind)
	}

	next, err := m.FoldAll(state, events)
	if err != nil {
		return nil, state, err
	}
	return events, next, nil
}

// compensationNext produces the event that continues the backward walk from
// the current position: the nearest compensable step's CompensationStarted,
// or SagaFailed when the walk is exhausted. The walk includes the current
// position only on the initial failure.
func (m *Machine) compensationNext(state State, sagaID string, inclusive bool) []Event {
	var (
		pos int
		ok  bool
	)
	if inclusive {
		pos, ok = m.catalog.CompensableAtOrBefore(state.Position)
	} else {
		pos, ok = m.catalog.PreviousCompensable(state.Position)
	}
	if !ok {
		return []Event{{Kind: EventSagaFailed, SagaID: sagaID}}
	}
	step, _ := m.catalog.At(pos)
	return []Event{{Kind: EventCompensationStarted, Step: step.Name, SagaID: sagaID, Data: state.Data}}
}

// Fold applies one event to a state snapshot and returns the next state.
func (m *Machine) Fold(state State, ev Event) (State, error) {
	next := state
	next.SagaID = ev.SagaID

	switch ev.Kind {
	case EventSagaStarted:
		next.Phase = PhaseNotStarted
		next.Position = 0
		next.Data = Merge(nil, ev.Data)
	case EventStepStarted:
		pos, ok := m.catalog.Position(ev.Step)
		if !ok {
			return state, fmt.Errorf("saga: event references unknown step %q", ev.Step)
		}
		next.Phase = PhaseStepStarted
		next.Position = pos
		next.Data = Merge(nil, ev.Data)
	case EventStepFinished:
		next.Phase = PhaseStepFinished
		next.Data = Merge(nil, ev.Data)
	case EventStepFailed:
		next.Phase = PhaseStepFailed
	case EventCompensationStarted:
		pos, ok := m.catalog.Position(ev.Step)
		if !ok {
			return state, fmt.Errorf("saga: event references unknown step %q", ev.Step)
		}
		next.Phase = PhaseCompensationStarted
		next.Position = pos
	case EventCompensationFinished:
		next.Phase = PhaseCompensationFinished
	case EventSagaCompleted:
		next.Phase = PhaseCompleted
	case EventSagaFailed:
		next.Phase = PhaseFailed
	default:
		return state, fmt.Errorf("saga: unknown event kind %d", ev.Kind)
	}

	return next, nil
}

// FoldAll folds an ordered event sequence over a state snapshot.
func (m *Machine) FoldAll(state State, events []Event) (State, error) {
	next := state
	var err error
	for _, ev := range events {
		next, err = m.Fold(next, ev)
		if err != nil {
			return state, err
		}
	}
	return next, nil
}

// Replay rebuilds instance state from its full emitted event sequence. An
// empty sequence yields the not-started zero state.
func (m *Machine) Replay(events []Event) (State, error) {
	return m.FoldAll(NewState(), events)
}

func (m *Machine) reject(reason RejectionReason, state State, cmd Command) error {
	active := ""
	if state.Phase != PhaseNotStarted && !state.Phase.IsTerminal() {
		if step, ok := m.catalog.At(state.Position); ok {
			active = step.Name
		}
	}
	return &Rejection{
		Reason:     reason,
		Command:    cmd.Name(),
		SagaID:     cmd.SagaID,
		ActiveStep: active,
	}
}
