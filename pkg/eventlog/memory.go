package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLog is an in-memory Log implementation for tests and local hosting.
type MemoryLog struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewMemoryLog creates an in-memory event log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		records: make(map[string][]Record),
	}
}

// Append appends one record and returns its sequence number.
func (l *MemoryLog) Append(_ context.Context, record Record) (uint64, error) {
	if record.SagaID == "" {
		return 0, fmt.Errorf("eventlog: record saga_id cannot be empty")
	}
	if record.Kind == "" {
		return 0, fmt.Errorf("eventlog: record kind cannot be empty")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record.Sequence = uint64(len(l.records[record.SagaID])) + 1
	l.records[record.SagaID] = append(l.records[record.SagaID], record)
	return record.Sequence, nil
}

// List returns all records for a saga in sequence order.
func (l *MemoryLog) List(_ context.Context, sagaID string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.records[sagaID]
	records := make([]Record, len(stored))
	copy(records, stored)
	return records, nil
}

// DeleteBySagaID removes all records for a saga.
func (l *MemoryLog) DeleteBySagaID(_ context.Context, sagaID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, sagaID)
	return nil
}

// Close is a no-op for the in-memory log.
func (l *MemoryLog) Close() error {
	return nil
}
