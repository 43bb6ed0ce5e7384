// Package eventlog provides the durable, append-only log of emitted saga
// events. An instance's state is the fold of its log; the log is the source
// of truth, snapshots are derived.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sagaline/sagaline/pkg/saga"
)

// ErrUnknownEventKind is returned when a persisted record carries a kind
// label no longer understood by the vocabulary.
var ErrUnknownEventKind = errors.New("eventlog: unknown event kind")

// Record is one persisted saga event.
type Record struct {
	Sequence  uint64         `json:"sequence"`
	Saga      string         `json:"saga"`
	SagaID    string         `json:"saga_id"`
	Kind      string         `json:"kind"`
	Step      string         `json:"step,omitempty"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewRecord builds a record from an emitted event.
func NewRecord(sagaName string, ev saga.Event) Record {
	return Record{
		Saga:   sagaName,
		SagaID: ev.SagaID,
		Kind:   ev.Kind.String(),
		Step:   ev.Step,
		Name:   ev.Name(),
		Data:   ev.Data,
	}
}

// Event rebuilds the saga event this record persisted.
func (r Record) Event() (saga.Event, error) {
	kind, ok := saga.ParseEventKind(r.Kind)
	if !ok {
		return saga.Event{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, r.Kind)
	}
	return saga.Event{
		Kind:   kind,
		Step:   r.Step,
		SagaID: r.SagaID,
		Data:   r.Data,
	}, nil
}

// Events rebuilds the event sequence from a record list.
func Events(records []Record) ([]saga.Event, error) {
	events := make([]saga.Event, 0, len(records))
	for _, record := range records {
		ev, err := record.Event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Log provides append-only event persistence per saga instance. Entries for
// one saga id carry strictly increasing sequence numbers and List returns
// them in append order.
type Log interface {
	Append(ctx context.Context, record Record) (uint64, error)
	List(ctx context.Context, sagaID string) ([]Record, error)
	DeleteBySagaID(ctx context.Context, sagaID string) error
	Close() error
}
