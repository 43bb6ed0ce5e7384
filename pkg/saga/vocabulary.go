package saga

// The external command/event vocabulary is derived deterministically from the
// step catalog. External subscribers and command routers are written against
// these exact names, so derivation must produce identical results for
// identical catalogs.

const (
	startCommandName               = "Start"
	finishCommandPrefix            = "Finish"
	failCommandPrefix              = "Fail"
	finishCompensationCommandPrefix = "FinishCompensation"
)

const (
	sagaStartedEventName   = "SagaStarted"
	sagaCompletedEventName = "SagaCompleted"
	sagaFailedEventName    = "SagaFailed"

	startedEventSuffix              = "Started"
	finishedEventSuffix             = "Finished"
	failedEventSuffix               = "Failed"
	compensationStartedEventSuffix  = "CompensationStarted"
	compensationFinishedEventSuffix = "CompensationFinished"
)

// CommandName derives the external name for a command kind and step.
func CommandName(kind CommandKind, step string) string {
	switch kind {
	case CommandStart:
		return startCommandName
	case CommandFinish:
		return finishCommandPrefix + step
	case CommandFail:
		return failCommandPrefix + step
	case CommandFinishCompensation:
		return finishCompensationCommandPrefix + step
	default:
		return ""
	}
}

// EventName derives the external name for an event kind and step.
func EventName(kind EventKind, step string) string {
	switch kind {
	case EventSagaStarted:
		return sagaStartedEventName
	case EventStepStarted:
		return step + startedEventSuffix
	case EventStepFinished:
		return step + finishedEventSuffix
	case EventStepFailed:
		return step + failedEventSuffix
	case EventCompensationStarted:
		return step + compensationStartedEventSuffix
	case EventCompensationFinished:
		return step + compensationFinishedEventSuffix
	case EventSagaCompleted:
		return sagaCompletedEventName
	case EventSagaFailed:
		return sagaFailedEventName
	default:
		return ""
	}
}

type commandKey struct {
	kind CommandKind
	step string
}

// buildCommandIndex precomputes the exact-name dispatch table. Resolution is
// a map lookup, never prefix inspection: "FinishCompensationX" and "FinishX"
// are distinct entries.
func buildCommandIndex(steps []StepDefinition) map[string]commandKey {
	commands := make(map[string]commandKey, len(steps)*3+1)
	commands[startCommandName] = commandKey{kind: CommandStart}
	for _, def := range steps {
		commands[CommandName(CommandFinish, def.Name)] = commandKey{kind: CommandFinish, step: def.Name}
		commands[CommandName(CommandFail, def.Name)] = commandKey{kind: CommandFail, step: def.Name}
		commands[CommandName(CommandFinishCompensation, def.Name)] = commandKey{kind: CommandFinishCompensation, step: def.Name}
	}
	return commands
}

// CommandNames returns the full derived command surface in deterministic
// order: Start, then Finish/Fail/FinishCompensation per step in catalog order.
func (c *Catalog) CommandNames() []string {
	names := make([]string, 0, len(c.steps)*3+1)
	names = append(names, startCommandName)
	for _, def := range c.steps {
		names = append(names,
			CommandName(CommandFinish, def.Name),
			CommandName(CommandFail, def.Name),
			CommandName(CommandFinishCompensation, def.Name),
		)
	}
	return names
}

// EventNames returns the full derived event surface in deterministic order.
func (c *Catalog) EventNames() []string {
	names := make([]string, 0, len(c.steps)*5+3)
	names = append(names, sagaStartedEventName)
	for _, def := range c.steps {
		names = append(names,
			EventName(EventStepStarted, def.Name),
			EventName(EventStepFinished, def.Name),
			EventName(EventStepFailed, def.Name),
			EventName(EventCompensationStarted, def.Name),
			EventName(EventCompensationFinished, def.Name),
		)
	}
	names = append(names, sagaCompletedEventName, sagaFailedEventName)
	return names
}

// ResolveCommand maps an external command name back to its kind and step.
func (c *Catalog) ResolveCommand(name string) (CommandKind, string, bool) {
	key, ok := c.commands[name]
	if !ok {
		return 0, "", false
	}
	return key.kind, key.step, true
}
