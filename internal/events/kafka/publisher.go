package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "booking-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher streams booking lifecycle events to Kafka, keyed by booking code
// so every event of one booking lands on the same partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a publisher over an async writer. Publish only enqueues;
// delivery failures are logged from the completion callback and Close flushes
// what is still buffered.
func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = slog.Default()
	}

	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             completion(log.With("component", "kafka", "topic", topic)),
	}}
}

func completion(log *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			log.Warn("deliver booking event", "booking_code", string(m.Key), "err", err)
		}
	}
}

// Publish hands ev to the writer. Only encoding errors surface here when the
// writer is async.
func (p *Publisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	const op = "kafka.Publisher.Publish"

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.BookingCode),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
