// Package events fans saga events out to in-process subscribers, bridging
// the event bus to the websocket layer.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sagaline/sagaline/pkg/eventbus"
)

// Event is the canonical event payload broadcast to websocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Broadcaster broadcasts events to in-process subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a broadcaster instance.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe subscribes to events with a buffered channel.
func (b *Broadcaster) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Broadcast broadcasts a generic event to all subscribers.
func (b *Broadcaster) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]chan Event, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Drop on overflow to keep broadcasters non-blocking.
		}
	}
}

// BroadcastEnvelope emits one published saga event. The payload keeps the
// saga_id field so websocket clients can filter by instance.
func (b *Broadcaster) BroadcastEnvelope(envelope eventbus.Envelope) {
	payload := map[string]any{
		"saga":     envelope.Saga,
		"saga_id":  envelope.SagaID,
		"event":    envelope.EventType,
		"sequence": envelope.Sequence,
	}
	if envelope.Step != "" {
		payload["step"] = envelope.Step
	}
	if len(envelope.Payload) > 0 {
		var data map[string]any
		if err := json.Unmarshal(envelope.Payload, &data); err == nil {
			payload["data"] = data
		}
	}

	b.Broadcast(Event{
		Type:      "saga.event",
		Timestamp: envelope.Timestamp,
		Payload:   payload,
	})
}

// Relay decodes bus messages into envelopes and rebroadcasts them until the
// context ends or the subscription closes.
func (b *Broadcaster) Relay(ctx context.Context, sub *eventbus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			var envelope eventbus.Envelope
			if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
				continue
			}
			b.BroadcastEnvelope(envelope)
		}
	}
}

// Close closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
