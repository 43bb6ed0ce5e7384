package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sagaline/sagaline/pkg/eventbus"
	"github.com/sagaline/sagaline/pkg/logger"
	"github.com/sagaline/sagaline/pkg/saga"
)

// Job is one unit of step work handed to a handler: the instance it belongs
// to and the accumulated payload at the point the step started.
type Job struct {
	Saga    string
	SagaID  string
	Step    string
	Payload map[string]any
}

// HandlerFunc performs one step's side effect. The returned map is the
// step's result payload, merged into the instance data by the machine.
type HandlerFunc func(ctx context.Context, job Job) (map[string]any, error)

// CompensationFunc undoes one step's side effect.
type CompensationFunc func(ctx context.Context, job Job) error

// Subscriber is the bus surface executors consume.
type Subscriber interface {
	Subscribe(pattern string, buffer int) (*eventbus.Subscription, error)
}

// Executor subscribes to the step lifecycle events of one saga type and
// drives registered handlers, reporting outcomes back through the router as
// Finish/Fail/FinishCompensation commands.
type Executor struct {
	sagaName    string
	router      *Router
	bus         Subscriber
	logger      logger.Logger
	handlers    map[string]HandlerFunc
	compensator map[string]CompensationFunc
}

// NewExecutor creates an executor for one saga type.
func NewExecutor(sagaName string, router *Router, bus Subscriber, log logger.Logger) (*Executor, error) {
	if router == nil {
		return nil, fmt.Errorf("runtime: router is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("runtime: bus is required")
	}
	if log == nil {
		log = logger.Global()
	}
	return &Executor{
		sagaName:    sagaName,
		router:      router,
		bus:         bus,
		logger:      log,
		handlers:    make(map[string]HandlerFunc),
		compensator: make(map[string]CompensationFunc),
	}, nil
}

// OnStep registers the forward handler for one step. The executor subscribes
// to the step's Started event; the handler outcome becomes a Finish or Fail
// command.
func (e *Executor) OnStep(step string, handler HandlerFunc) *Executor {
	e.handlers[saga.EventName(saga.EventStepStarted, step)] = handler
	return e
}

// OnCompensate registers the compensation handler for one step, driven by
// the step's CompensationStarted event.
func (e *Executor) OnCompensate(step string, handler CompensationFunc) *Executor {
	e.compensator[saga.EventName(saga.EventCompensationStarted, step)] = handler
	return e
}

// Run consumes the saga type's event stream until the context is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	sub, err := e.bus.Subscribe(eventbus.SagaWildcardSubject(e.sagaName), 64)
	if err != nil {
		return fmt.Errorf("runtime: subscribe executor: %w", err)
	}
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			e.handleMessage(ctx, msg)
		}
	}
}

func (e *Executor) handleMessage(ctx context.Context, msg eventbus.Message) {
	var envelope eventbus.Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		e.logger.WarnContext(ctx, "discarding undecodable bus message",
			"saga", e.sagaName, "subject", msg.Subject, "error", err)
		return
	}

	job := Job{
		Saga:    e.sagaName,
		SagaID:  envelope.SagaID,
		Step:    envelope.Step,
		Payload: decodePayload(envelope.Payload),
	}

	if handler, ok := e.handlers[envelope.EventType]; ok {
		e.runForward(ctx, job, handler)
		return
	}
	if compensate, ok := e.compensator[envelope.EventType]; ok {
		e.runCompensation(ctx, job, compensate)
	}
}

func (e *Executor) runForward(ctx context.Context, job Job, handler HandlerFunc) {
	result, err := handler(ctx, job)
	if err != nil {
		e.logger.WarnContext(ctx, "step failed",
			"saga", job.Saga, "saga_id", job.SagaID, "step", job.Step, "error", err)
		e.report(ctx, job, saga.CommandName(saga.CommandFail, job.Step), nil)
		return
	}
	e.report(ctx, job, saga.CommandName(saga.CommandFinish, job.Step), result)
}

func (e *Executor) runCompensation(ctx context.Context, job Job, compensate CompensationFunc) {
	if err := compensate(ctx, job); err != nil {
		// The machine has no retry vocabulary for compensation; leave the
		// instance in Compensating for operator intervention.
		e.logger.ErrorContext(ctx, "compensation failed",
			"saga", job.Saga, "saga_id", job.SagaID, "step", job.Step, "error", err)
		return
	}
	e.report(ctx, job, saga.CommandName(saga.CommandFinishCompensation, job.Step), nil)
}

func (e *Executor) report(ctx context.Context, job Job, commandName string, data map[string]any) {
	if _, err := e.router.Dispatch(ctx, job.Saga, commandName, job.SagaID, data); err != nil {
		if _, rejected := saga.AsRejection(err); rejected {
			// Duplicate delivery resolves here: the machine already moved on.
			e.logger.DebugContext(ctx, "stale step report rejected",
				"saga", job.Saga, "saga_id", job.SagaID, "command", commandName, "error", err)
			return
		}
		e.logger.ErrorContext(ctx, "step report failed",
			"saga", job.Saga, "saga_id", job.SagaID, "command", commandName, "error", err)
	}
}

func decodePayload(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
