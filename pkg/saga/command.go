package saga

// CommandKind identifies one command type in the saga vocabulary.
type CommandKind int

const (
	// CommandStart creates a new saga instance and starts the first step.
	CommandStart CommandKind = iota
	// CommandFinish reports successful completion of the active step.
	CommandFinish
	// CommandFail reports failure of the active step.
	CommandFail
	// CommandFinishCompensation reports completion of the active step's
	// compensating action.
	CommandFinishCompensation
)

// String returns the internal label of the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandStart:
		return "start"
	case CommandFinish:
		return "finish"
	case CommandFail:
		return "fail"
	case CommandFinishCompensation:
		return "finish_compensation"
	default:
		return "unknown"
	}
}

// Command is the tagged-union representation of every command in the derived
// vocabulary. Step is empty for Start; Data is set for Start and Finish only.
type Command struct {
	Kind   CommandKind
	Step   string
	SagaID string
	Data   map[string]any
}

// NewStartCommand builds a Start command carrying the initial payload.
func NewStartCommand(sagaID string, data map[string]any) Command {
	return Command{Kind: CommandStart, SagaID: sagaID, Data: data}
}

// NewFinishCommand builds a Finish command for the named step.
func NewFinishCommand(sagaID, step string, data map[string]any) Command {
	return Command{Kind: CommandFinish, Step: step, SagaID: sagaID, Data: data}
}

// NewFailCommand builds a Fail command for the named step.
func NewFailCommand(sagaID, step string) Command {
	return Command{Kind: CommandFail, Step: step, SagaID: sagaID}
}

// NewFinishCompensationCommand builds a FinishCompensation command for the
// named step.
func NewFinishCompensationCommand(sagaID, step string) Command {
	return Command{Kind: CommandFinishCompensation, Step: step, SagaID: sagaID}
}

// Name returns the derived external name of the command, e.g. "FinishReserve".
func (c Command) Name() string {
	return CommandName(c.Kind, c.Step)
}
