// Package eventbus carries saga lifecycle events to external subscribers:
// step executors, projections and anything else written against the derived
// event vocabulary.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the initial saga event schema.
	SchemaVersionV1 = "v1"
)

// Envelope is the canonical saga lifecycle event envelope. EventType is the
// derived vocabulary name (e.g. "ReserveCompensationStarted"); Payload is the
// accumulated saga payload at the point the event was emitted.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Saga          string          `json:"saga"`
	SagaID        string          `json:"saga_id"`
	Step          string          `json:"step,omitempty"`
	Sequence      uint64          `json:"sequence"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// BuildEnvelopeInput is used to construct a new envelope.
type BuildEnvelopeInput struct {
	EventType     string
	SchemaVersion string
	Saga          string
	SagaID        string
	Step          string
	Sequence      uint64
	Payload       any
}

// BuildEnvelope creates a canonical envelope with generated event identity.
func BuildEnvelope(input BuildEnvelopeInput) (Envelope, error) {
	if input.EventType == "" {
		return Envelope{}, fmt.Errorf("eventbus: event type is required")
	}
	if input.Saga == "" {
		return Envelope{}, fmt.Errorf("eventbus: saga name is required")
	}
	if input.SagaID == "" {
		return Envelope{}, fmt.Errorf("eventbus: saga id is required")
	}
	if input.Sequence == 0 {
		return Envelope{}, fmt.Errorf("eventbus: sequence must be > 0")
	}
	if input.SchemaVersion == "" {
		input.SchemaVersion = SchemaVersionV1
	}

	var payload json.RawMessage
	if input.Payload != nil {
		data, err := json.Marshal(input.Payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("eventbus: marshal payload: %w", err)
		}
		payload = data
	}

	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     input.EventType,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: input.SchemaVersion,
		Saga:          input.Saga,
		SagaID:        input.SagaID,
		Step:          input.Step,
		Sequence:      input.Sequence,
		Payload:       payload,
	}, nil
}
