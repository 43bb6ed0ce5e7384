// Package models defines the HTTP API request and response shapes.
package models

import (
	"github.com/sagaline/sagaline/pkg/eventlog"
	"github.com/sagaline/sagaline/pkg/saga"
)

// CommandRequest is the body of a command dispatch.
type CommandRequest struct {
	// SagaID identifies the saga instance the command addresses.
	SagaID string `json:"saga_id"`

	// Data is the payload merged into the instance data on acceptance.
	Data map[string]any `json:"data,omitempty"`
}

// CommandResponse is returned when a command was accepted.
type CommandResponse struct {
	Saga    string            `json:"saga"`
	Command string            `json:"command"`
	State   saga.State        `json:"state"`
	Events  []eventlog.Record `json:"events"`
}

// InstanceResponse is the current state of one saga instance.
type InstanceResponse struct {
	Saga  string     `json:"saga"`
	State saga.State `json:"state"`
}

// EventsResponse is the persisted event history of one saga instance.
type EventsResponse struct {
	Saga   string            `json:"saga"`
	SagaID string            `json:"saga_id"`
	Events []eventlog.Record `json:"events"`
}

// VocabularyResponse describes one saga type: its step catalog and the
// command and event names derived from it.
type VocabularyResponse struct {
	Saga     string                `json:"saga"`
	Steps    []saga.StepDefinition `json:"steps"`
	Commands []string              `json:"commands"`
	Events   []string              `json:"events"`
}

// SagaSummary is one entry in the saga type listing.
type SagaSummary struct {
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

// SagaListResponse lists the hosted saga types.
type SagaListResponse struct {
	Sagas []SagaSummary `json:"sagas"`
}
