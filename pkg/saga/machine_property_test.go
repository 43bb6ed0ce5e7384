package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRun drives one instance through a full lifecycle and returns every
// emitted event in order.
func scriptedRun(t *testing.T, m *Machine, cmds []Command) ([]Event, State) {
	t.Helper()
	state := NewState()
	var emitted []Event
	for _, cmd := range cmds {
		events, next, err := m.Apply(state, cmd)
		require.NoError(t, err, "Apply(%s)", cmd.Name())
		emitted = append(emitted, events...)
		state = next
	}
	return emitted, state
}

func TestApplyIsPure(t *testing.T) {
	m := newMachine(t,
		StepDefinition{Name: "A", Compensable: true},
		StepDefinition{Name: "B", Compensable: true},
	)

	state := NewState()
	cmd := NewStartCommand("s-1", map[string]any{"k": "v"})

	first, firstState, err := m.Apply(state, cmd)
	require.NoError(t, err)
	second, secondState, err := m.Apply(state, cmd)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same input must produce the same events")
	assert.Equal(t, firstState, secondState)
	assert.Equal(t, NewState(), state, "input state must not be mutated")
}

func TestResultingStateIsFoldOfEmittedEvents(t *testing.T) {
	m := newMachine(t,
		StepDefinition{Name: "A", Compensable: true},
		StepDefinition{Name: "B", Compensable: false},
		StepDefinition{Name: "C", Compensable: true},
	)

	runs := map[string][]Command{
		"completion": {
			NewStartCommand("s-1", map[string]any{"a": 1}),
			NewFinishCommand("s-1", "A", map[string]any{"b": 2}),
			NewFinishCommand("s-1", "B", nil),
			NewFinishCommand("s-1", "C", nil),
		},
		"failure with backward walk": {
			NewStartCommand("s-1", nil),
			NewFinishCommand("s-1", "A", nil),
			NewFinishCommand("s-1", "B", nil),
			NewFailCommand("s-1", "C"),
			NewFinishCompensationCommand("s-1", "C"),
			NewFinishCompensationCommand("s-1", "A"),
		},
	}

	for name, cmds := range runs {
		t.Run(name, func(t *testing.T) {
			emitted, final := scriptedRun(t, m, cmds)

			folded, err := m.Replay(emitted)
			require.NoError(t, err)
			assert.Equal(t, final, folded, "replay of the emitted log must land on the final state")
		})
	}
}

func TestRejectionLeavesStateUntouched(t *testing.T) {
	m := newMachine(t,
		StepDefinition{Name: "A", Compensable: true},
		StepDefinition{Name: "B", Compensable: true},
	)

	_, state := scriptedRun(t, m, []Command{
		NewStartCommand("s-1", nil),
		NewFinishCommand("s-1", "A", nil),
	})

	rejected := []Command{
		NewStartCommand("s-1", nil),
		NewFinishCommand("s-1", "A", nil),
		NewFinishCompensationCommand("s-1", "A"),
		NewFinishCommand("s-1", "missing", nil),
	}
	for _, cmd := range rejected {
		events, next, err := m.Apply(state, cmd)
		rejection, ok := AsRejection(err)
		require.True(t, ok, "Apply(%s) error = %v, want rejection", cmd.Name(), err)
		assert.Equal(t, "s-1", rejection.SagaID)
		assert.Empty(t, events, "rejected command must emit nothing")
		assert.Equal(t, state, next, "rejected command must not change state")
	}
}
