// Package runtime hosts saga state machines behind a durable dispatch loop.
// Each dispatch serializes on the saga instance, replays the event log to
// rebuild state, applies the command through the pure machine, appends the
// emitted events, and only then publishes them to the bus. Durability comes
// before visibility: a subscriber never sees an event the log does not hold.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sagaline/sagaline/pkg/eventbus"
	"github.com/sagaline/sagaline/pkg/eventlog"
	"github.com/sagaline/sagaline/pkg/lock"
	"github.com/sagaline/sagaline/pkg/logger"
	"github.com/sagaline/sagaline/pkg/metrics"
	"github.com/sagaline/sagaline/pkg/saga"
)

// ErrUnknownSagaType is returned when a dispatch names a saga type this
// dispatcher does not host.
var ErrUnknownSagaType = errors.New("runtime: unknown saga type")

// ErrInstanceNotFound is returned when a lookup names a saga instance with
// no events in the log.
var ErrInstanceNotFound = errors.New("runtime: saga instance not found")

// Options configures a Dispatcher. Zero-value fields fall back to in-memory
// implementations suitable for a single process.
type Options struct {
	Log       eventlog.Log
	Locker    lock.Locker
	Publisher *eventbus.Publisher
	Metrics   *metrics.Manager
	Logger    logger.Logger
}

// DispatchResult is the outcome of one accepted command.
type DispatchResult struct {
	Saga    string           `json:"saga"`
	State   saga.State       `json:"state"`
	Records []eventlog.Record `json:"events"`
}

// Dispatcher hosts one state machine per saga type and runs the dispatch
// loop for all of them.
type Dispatcher struct {
	machines map[string]*saga.Machine
	log      eventlog.Log
	locker   lock.Locker
	pub      *eventbus.Publisher
	metrics  *metrics.Manager
	logger   logger.Logger
}

// NewDispatcher creates a dispatcher hosting the given catalogs.
func NewDispatcher(catalogs map[string]*saga.Catalog, opts Options) (*Dispatcher, error) {
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("runtime: at least one catalog is required")
	}

	machines := make(map[string]*saga.Machine, len(catalogs))
	for name, catalog := range catalogs {
		machine, err := saga.NewMachine(catalog)
		if err != nil {
			return nil, fmt.Errorf("runtime: saga %q: %w", name, err)
		}
		machines[name] = machine
	}

	if opts.Log == nil {
		opts.Log = eventlog.NewMemoryLog()
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewMemoryLocker()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOpManager()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Global()
	}

	return &Dispatcher{
		machines: machines,
		log:      opts.Log,
		locker:   opts.Locker,
		pub:      opts.Publisher,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Machine returns the hosted machine for one saga type.
func (d *Dispatcher) Machine(sagaName string) (*saga.Machine, bool) {
	m, ok := d.machines[sagaName]
	return m, ok
}

// SagaNames returns the hosted saga type names.
func (d *Dispatcher) SagaNames() []string {
	names := make([]string, 0, len(d.machines))
	for name := range d.machines {
		names = append(names, name)
	}
	return names
}

// Dispatch applies one command to one saga instance. Rejections come back
// as *saga.Rejection; callers distinguish them with saga.AsRejection.
func (d *Dispatcher) Dispatch(ctx context.Context, sagaName string, cmd saga.Command) (*DispatchResult, error) {
	machine, ok := d.machines[sagaName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSagaType, sagaName)
	}

	start := time.Now()
	ctx, span := saga.Tracer().Start(ctx, saga.SpanApply)
	span.SetAttributes(
		attribute.String("saga.name", sagaName),
		attribute.String("saga.id", cmd.SagaID),
		attribute.String("saga.command", cmd.Name()),
	)
	defer span.End()

	release, err := d.locker.Acquire(ctx, instanceKey(sagaName, cmd.SagaID))
	if err != nil {
		span.SetStatus(codes.Error, "lock acquire failed")
		return nil, fmt.Errorf("runtime: acquire instance lock: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	state, err := d.replay(ctx, machine, cmd.SagaID)
	if err != nil {
		span.SetStatus(codes.Error, "replay failed")
		return nil, err
	}

	events, newState, err := machine.Apply(state, cmd)
	if err != nil {
		if rejection, ok := saga.AsRejection(err); ok {
			d.metrics.RecordCommand(sagaName, "rejected")
			d.metrics.RecordRejection(sagaName, rejection.Reason.String())
			d.logger.WarnContext(ctx, "command rejected",
				"saga", sagaName,
				"saga_id", cmd.SagaID,
				"command", cmd.Name(),
				"reason", rejection.Reason.String(),
			)
			return nil, err
		}
		d.metrics.RecordCommand(sagaName, "error")
		span.SetStatus(codes.Error, "apply failed")
		return nil, err
	}

	records, err := d.append(ctx, sagaName, events)
	if err != nil {
		d.metrics.RecordCommand(sagaName, "error")
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}

	d.publish(ctx, sagaName, records)
	d.record(sagaName, cmd, state, newState, records)

	d.logger.InfoContext(ctx, "command applied",
		"saga", sagaName,
		"saga_id", cmd.SagaID,
		"command", cmd.Name(),
		"phase", newState.Phase.String(),
		"events", len(records),
	)
	d.metrics.RecordDispatchDuration(sagaName, time.Since(start))

	return &DispatchResult{
		Saga:    sagaName,
		State:   newState,
		Records: records,
	}, nil
}

// State rebuilds the current state of one saga instance from its log.
func (d *Dispatcher) State(ctx context.Context, sagaName, sagaID string) (saga.State, error) {
	machine, ok := d.machines[sagaName]
	if !ok {
		return saga.State{}, fmt.Errorf("%w: %q", ErrUnknownSagaType, sagaName)
	}

	records, err := d.log.List(ctx, sagaID)
	if err != nil {
		return saga.State{}, fmt.Errorf("runtime: list events: %w", err)
	}
	if len(records) == 0 {
		return saga.State{}, fmt.Errorf("%w: %q", ErrInstanceNotFound, sagaID)
	}

	events, err := eventlog.Events(records)
	if err != nil {
		return saga.State{}, err
	}
	return machine.Replay(events)
}

// Events returns the persisted event records of one saga instance.
func (d *Dispatcher) Events(ctx context.Context, sagaName, sagaID string) ([]eventlog.Record, error) {
	if _, ok := d.machines[sagaName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSagaType, sagaName)
	}

	records, err := d.log.List(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("runtime: list events: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInstanceNotFound, sagaID)
	}
	return records, nil
}

func (d *Dispatcher) replay(ctx context.Context, machine *saga.Machine, sagaID string) (saga.State, error) {
	ctx, span := saga.Tracer().Start(ctx, saga.SpanReplay)
	defer span.End()

	records, err := d.log.List(ctx, sagaID)
	if err != nil {
		return saga.State{}, fmt.Errorf("runtime: list events: %w", err)
	}
	events, err := eventlog.Events(records)
	if err != nil {
		return saga.State{}, err
	}
	state, err := machine.Replay(events)
	if err != nil {
		return saga.State{}, fmt.Errorf("runtime: replay instance %q: %w", sagaID, err)
	}
	span.SetAttributes(attribute.Int("saga.replayed_events", len(events)))
	return state, nil
}

func (d *Dispatcher) append(ctx context.Context, sagaName string, events []saga.Event) ([]eventlog.Record, error) {
	records := make([]eventlog.Record, 0, len(events))
	for _, ev := range events {
		record := eventlog.NewRecord(sagaName, ev)
		sequence, err := d.log.Append(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("runtime: append event %q: %w", record.Name, err)
		}
		record.Sequence = sequence
		records = append(records, record)
	}
	return records, nil
}

// publish relays freshly appended records to the bus. Delivery is best
// effort: the log already holds the events, so a bus outage must not fail
// the dispatch.
func (d *Dispatcher) publish(ctx context.Context, sagaName string, records []eventlog.Record) {
	if d.pub == nil {
		return
	}
	for _, record := range records {
		envelope, err := eventbus.BuildEnvelope(eventbus.BuildEnvelopeInput{
			EventType: record.Name,
			Saga:      sagaName,
			SagaID:    record.SagaID,
			Step:      record.Step,
			Sequence:  record.Sequence,
			Payload:   record.Data,
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "build envelope failed",
				"saga", sagaName, "saga_id", record.SagaID, "event", record.Name, "error", err)
			continue
		}
		if err := d.pub.Publish(ctx, envelope); err != nil {
			d.logger.ErrorContext(ctx, "publish event failed",
				"saga", sagaName, "saga_id", record.SagaID, "event", record.Name, "error", err)
		}
	}
}

func (d *Dispatcher) record(sagaName string, cmd saga.Command, before, after saga.State, records []eventlog.Record) {
	d.metrics.RecordCommand(sagaName, "applied")
	for _, rec := range records {
		d.metrics.RecordEvent(sagaName, rec.Kind)
	}
	if cmd.Kind == saga.CommandStart && before.Phase == saga.PhaseNotStarted {
		d.metrics.IncActiveSagas(sagaName)
	}
	if after.Phase.IsTerminal() {
		d.metrics.DecActiveSagas(sagaName)
		d.metrics.RecordOutcome(sagaName, after.Phase.String())
	}
}

func instanceKey(sagaName, sagaID string) string {
	return sagaName + ":" + sagaID
}
