package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	logKeyPrefix      = "log:"
	logSequencePrefix = "log-seq:"
)

// BadgerLog implements Log on top of Badger. Keys are
// "log:{sagaID}:{sequence}" with a zero-padded sequence so iteration order is
// append order, plus a per-saga sequence counter at "log-seq:{sagaID}".
type BadgerLog struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerLog opens a dedicated Badger DB for event-log usage.
func OpenBadgerLog(path string) (*BadgerLog, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger event log: %w", err)
	}
	log, err := NewBadgerLog(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.ownsDB = true
	return log, nil
}

// NewBadgerLog creates an event log over an existing Badger DB instance.
func NewBadgerLog(db *badger.DB) (*BadgerLog, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db cannot be nil")
	}
	return &BadgerLog{db: db}, nil
}

// Append appends one record and returns its sequence number.
func (l *BadgerLog) Append(ctx context.Context, record Record) (uint64, error) {
	if record.SagaID == "" {
		return 0, fmt.Errorf("eventlog: record saga_id cannot be empty")
	}
	if record.Kind == "" {
		return 0, fmt.Errorf("eventlog: record kind cannot be empty")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	sequence, err := l.nextSequence(record.SagaID)
	if err != nil {
		return 0, err
	}
	record.Sequence = sequence

	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("marshal event record: %w", err)
	}
	key := []byte(recordKey(record.SagaID, sequence))

	err = l.db.Update(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

// List returns all records for a saga in sequence order.
func (l *BadgerLog) List(ctx context.Context, sagaID string) ([]Record, error) {
	prefix := []byte(logPrefixForSaga(sagaID))
	records := make([]Record, 0)

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var record Record
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &record)
			}); err != nil {
				return fmt.Errorf("decode event record: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteBySagaID removes all records and the sequence counter for a saga.
func (l *BadgerLog) DeleteBySagaID(ctx context.Context, sagaID string) error {
	prefix := []byte(logPrefixForSaga(sagaID))
	seqKey := []byte(sequenceKeyForSaga(sagaID))
	keys := make([][]byte, 0)

	if err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	}); err != nil {
		return err
	}

	return l.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		_ = txn.Delete(seqKey)
		return nil
	})
}

// Close closes the db if this log owns it.
func (l *BadgerLog) Close() error {
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}

func (l *BadgerLog) nextSequence(sagaID string) (uint64, error) {
	key := []byte(sequenceKeyForSaga(sagaID))
	var next uint64
	err := l.db.Update(func(txn *badger.Txn) error {
		current := uint64(0)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(v []byte) error {
				parsed, parseErr := strconv.ParseUint(string(v), 10, 64)
				if parseErr != nil {
					return parseErr
				}
				current = parsed
				return nil
			}); err != nil {
				return err
			}
		case err == badger.ErrKeyNotFound:
			current = 0
		default:
			return err
		}

		next = current + 1
		return txn.Set(key, []byte(strconv.FormatUint(next, 10)))
	})
	if err != nil {
		return 0, fmt.Errorf("next event sequence: %w", err)
	}
	return next, nil
}

func logPrefixForSaga(sagaID string) string {
	return fmt.Sprintf("%s%s:", logKeyPrefix, sagaID)
}

func sequenceKeyForSaga(sagaID string) string {
	return fmt.Sprintf("%s%s", logSequencePrefix, sagaID)
}

func recordKey(sagaID string, sequence uint64) string {
	return fmt.Sprintf("%s%s:%020d", logKeyPrefix, sagaID, sequence)
}
