package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/sagaline/sagaline/pkg/eventbus"
	"github.com/sagaline/sagaline/pkg/eventlog"
	"github.com/sagaline/sagaline/pkg/saga"
)

func orderCatalog(t *testing.T) *saga.Catalog {
	t.Helper()
	catalog, err := saga.NewCatalog("order", []saga.StepDefinition{
		{Name: "Reserve", Compensable: true},
		{Name: "Charge", Compensable: true},
		{Name: "Notify", Compensable: false},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return catalog
}

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(map[string]*saga.Catalog{"order": orderCatalog(t)}, opts)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return dispatcher
}

func TestNewDispatcherRequiresCatalogs(t *testing.T) {
	if _, err := NewDispatcher(nil, Options{}); err == nil {
		t.Fatal("NewDispatcher() should fail without catalogs")
	}
}

func TestDispatchUnknownSagaType(t *testing.T) {
	dispatcher := newTestDispatcher(t, Options{})

	_, err := dispatcher.Dispatch(context.Background(), "payment", saga.NewStartCommand("s-1", nil))
	if !errors.Is(err, ErrUnknownSagaType) {
		t.Fatalf("Dispatch() error = %v, want ErrUnknownSagaType", err)
	}
}

func TestDispatchStartAppendsEvents(t *testing.T) {
	log := eventlog.NewMemoryLog()
	dispatcher := newTestDispatcher(t, Options{Log: log})

	result, err := dispatcher.Dispatch(context.Background(), "order",
		saga.NewStartCommand("s-1", map[string]any{"order": "o-9"}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.State.Phase != saga.PhaseStepStarted {
		t.Fatalf("phase = %v, want %v", result.State.Phase, saga.PhaseStepStarted)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(result.Records))
	}
	if result.Records[0].Name != "SagaStarted" || result.Records[1].Name != "ReserveStarted" {
		t.Fatalf("record names = %q, %q", result.Records[0].Name, result.Records[1].Name)
	}
	if result.Records[0].Sequence != 1 || result.Records[1].Sequence != 2 {
		t.Fatalf("sequences = %d, %d", result.Records[0].Sequence, result.Records[1].Sequence)
	}

	persisted, err := log.List(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("persisted records = %d, want 2", len(persisted))
	}
}

func TestDispatchRejectionLeavesLogUntouched(t *testing.T) {
	log := eventlog.NewMemoryLog()
	dispatcher := newTestDispatcher(t, Options{Log: log})
	ctx := context.Background()

	if _, err := dispatcher.Dispatch(ctx, "order", saga.NewStartCommand("s-1", nil)); err != nil {
		t.Fatalf("Dispatch(Start) error = %v", err)
	}

	_, err := dispatcher.Dispatch(ctx, "order", saga.NewStartCommand("s-1", nil))
	rejection, ok := saga.AsRejection(err)
	if !ok {
		t.Fatalf("Dispatch() error = %v, want rejection", err)
	}
	if rejection.Reason != saga.RejectSagaAlreadyStarted {
		t.Fatalf("reason = %v, want %v", rejection.Reason, saga.RejectSagaAlreadyStarted)
	}

	records, err := log.List(ctx, "s-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rejected command must not append events, got %d records", len(records))
	}
}

func TestDispatchFullRunToCompletion(t *testing.T) {
	dispatcher := newTestDispatcher(t, Options{})
	ctx := context.Background()

	commands := []saga.Command{
		saga.NewStartCommand("s-1", map[string]any{"order": "o-9"}),
		saga.NewFinishCommand("s-1", "Reserve", map[string]any{"hold": "h-1"}),
		saga.NewFinishCommand("s-1", "Charge", map[string]any{"charge": "c-1"}),
		saga.NewFinishCommand("s-1", "Notify", nil),
	}

	var last *DispatchResult
	for _, cmd := range commands {
		result, err := dispatcher.Dispatch(ctx, "order", cmd)
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", cmd.Name(), err)
		}
		last = result
	}

	if last.State.Phase != saga.PhaseCompleted {
		t.Fatalf("phase = %v, want %v", last.State.Phase, saga.PhaseCompleted)
	}
	if last.State.Data["order"] != "o-9" || last.State.Data["charge"] != "c-1" {
		t.Fatalf("accumulated data = %v", last.State.Data)
	}

	state, err := dispatcher.State(ctx, "order", "s-1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Phase != saga.PhaseCompleted {
		t.Fatalf("replayed phase = %v, want %v", state.Phase, saga.PhaseCompleted)
	}
}

func TestDispatchFailureRunsCompensationBackward(t *testing.T) {
	dispatcher := newTestDispatcher(t, Options{})
	ctx := context.Background()

	steps := []saga.Command{
		saga.NewStartCommand("s-2", nil),
		saga.NewFinishCommand("s-2", "Reserve", nil),
		saga.NewFinishCommand("s-2", "Charge", nil),
		saga.NewFailCommand("s-2", "Notify"),
		saga.NewFinishCompensationCommand("s-2", "Charge"),
		saga.NewFinishCompensationCommand("s-2", "Reserve"),
	}

	var last *DispatchResult
	for _, cmd := range steps {
		result, err := dispatcher.Dispatch(ctx, "order", cmd)
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", cmd.Name(), err)
		}
		last = result
	}

	if last.State.Phase != saga.PhaseFailed {
		t.Fatalf("phase = %v, want %v", last.State.Phase, saga.PhaseFailed)
	}
}

func TestDispatchPublishesEnvelopes(t *testing.T) {
	bus := eventbus.NewMemoryBus()
	sub, err := bus.Subscribe(eventbus.SagaWildcardSubject("order"), 16)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer func() { _ = sub.Close() }()

	publisher, err := eventbus.NewPublisher(bus, eventbus.DefaultRetryConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	dispatcher := newTestDispatcher(t, Options{Publisher: publisher})

	if _, err := dispatcher.Dispatch(context.Background(), "order", saga.NewStartCommand("s-1", nil)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	wantSubjects := []string{
		"sagaline.v1.saga.order.SagaStarted",
		"sagaline.v1.saga.order.ReserveStarted",
	}
	for _, want := range wantSubjects {
		select {
		case msg := <-sub.C():
			if msg.Subject != want {
				t.Fatalf("subject = %q, want %q", msg.Subject, want)
			}
		default:
			t.Fatalf("missing published event %q", want)
		}
	}
}

func TestStateUnknownInstance(t *testing.T) {
	dispatcher := newTestDispatcher(t, Options{})

	_, err := dispatcher.State(context.Background(), "order", "missing")
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("State() error = %v, want ErrInstanceNotFound", err)
	}

	_, err = dispatcher.Events(context.Background(), "order", "missing")
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("Events() error = %v, want ErrInstanceNotFound", err)
	}
}
