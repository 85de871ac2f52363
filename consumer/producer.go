package consumer

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Produce writes key/value records to a topic, creating it if needed.
// Tests for sink-side tooling use this to seed topics without a connector.
func Produce(ctx context.Context, brokers []string, topic string, records ...Record) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	if topic == "" {
		return fmt.Errorf("no topic configured")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	defer func() { _ = w.Close() }()

	msgs := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, kafka.Message{Key: rec.Key, Value: rec.Value})
	}

	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write records to %s: %w", topic, err)
	}

	return nil
}
