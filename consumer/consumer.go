// Package consumer reads records back from the broker so tests can assert
// on what a connector captured.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quietstream/cdctest/cdcevent"
)

// Record is one consumed record, reduced to what assertions need.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// Watcher consumes a single topic from the first offset. Connectors
// auto-create their topics, so the reader is configured to wait for the
// topic to appear rather than fail.
type Watcher struct {
	reader *kafka.Reader
}

// WatcherConfig holds configuration for Watcher creation.
type WatcherConfig struct {
	// Brokers to bootstrap from. Required.
	Brokers []string
	// Topic to consume. Required.
	Topic string
	// GroupID for offset tracking (default: none; the watcher reads
	// partition 0 from the first offset)
	GroupID string
}

// NewWatcher creates a Watcher for the given topic.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("no brokers configured")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("no topic configured")
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.FirstOffset,
		// A topic that does not exist yet is expected while the
		// connector starts; keep retrying instead of surfacing the
		// metadata error.
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	}
	if config.GroupID != "" {
		readerCfg.GroupID = config.GroupID
	} else {
		readerCfg.Partition = 0
	}

	return &Watcher{reader: kafka.NewReader(readerCfg)}, nil
}

// Next returns the next record, blocking until one arrives or ctx is done.
func (w *Watcher) Next(ctx context.Context) (Record, error) {
	msg, err := w.reader.ReadMessage(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}
	return fromMessage(msg), nil
}

// Drain collects exactly n records, blocking until they arrive or ctx is
// done. On timeout it returns the records collected so far alongside the
// error so the test failure can show what did arrive.
func (w *Watcher) Drain(ctx context.Context, n int) ([]Record, error) {
	records := make([]Record, 0, n)
	for len(records) < n {
		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			return records, fmt.Errorf("drained %d of %d records: %w", len(records), n, err)
		}
		records = append(records, fromMessage(msg))
	}
	return records, nil
}

// DrainEnvelopes collects exactly n records and decodes each value as a
// change-event envelope. Tombstone records (nil value) are skipped; they
// follow delete events and carry no envelope.
func (w *Watcher) DrainEnvelopes(ctx context.Context, n int) ([]*cdcevent.Envelope, error) {
	envelopes := make([]*cdcevent.Envelope, 0, n)
	for len(envelopes) < n {
		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			return envelopes, fmt.Errorf("drained %d of %d change events: %w", len(envelopes), n, err)
		}
		if len(msg.Value) == 0 {
			continue
		}
		env, err := cdcevent.Parse(msg.Value)
		if err != nil {
			return envelopes, fmt.Errorf("record at offset %d: %w", msg.Offset, err)
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}

// Close releases the underlying reader.
func (w *Watcher) Close() error {
	if err := w.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	return nil
}

func fromMessage(msg kafka.Message) Record {
	return Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Time:      msg.Time,
	}
}
