// Package kafka publishes order events to a Kafka topic. It is the durable
// alternative to the in-memory bus; both implement outbox.Publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	domoutbox "github.com/whatseat/fulfillment/internal/domain/outbox"
)

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes the event as JSON, keyed by event name so consumers of one
// event kind stay on a stable partition set.
func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}

	msg := kafka.Message{
		Key:   []byte(e.EventName()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.EventName())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", e.EventName(), err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
