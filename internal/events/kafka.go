package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order events to a Kafka topic keyed by order id, so
// every event of one order lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

const (
	batchTimeout = 10 * time.Millisecond
	writeTimeout = 5 * time.Second
)

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	p := newKafkaPublisher(nil, logger)
	p.writer = newKafkaWriter(brokers, topic, p.logger)
	return p
}

// newKafkaWriter builds an async writer. Publish runs while a session is
// locked, so it must not wait on batching or on an unreachable broker.
// Delivery failures are reported through Completion.
func newKafkaWriter(brokers []string, topic string, logger zerolog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error().
					Err(err).
					Str("order_id", string(m.Key)).
					Msg("failed to deliver order event")
			}
		},
	}
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Publish writes the event. Failures are logged.
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_id", event.EventID).Msg("failed to marshal order event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	// The request context may be cancelled as soon as the response is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("event_id", event.EventID).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event")
		return
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("type", event.Type).
		Str("order_id", event.OrderID).
		Msg("order event published")
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
