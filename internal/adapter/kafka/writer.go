// Package kafka publishes transition events to a Kafka topic so downstream
// display and automation consumers can subscribe without coupling to the
// engine.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/engine"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces transition events to a Kafka topic.
// It implements engine.EventSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured transitions topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Accept serializes and publishes one transition event. Keying by hazard id
// keeps all transitions for one hazard on the same partition, preserving
// their relative order for consumers.
func (w *Writer) Accept(ctx context.Context, event engine.TransitionEvent) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// eventMessage marshals a TransitionEvent into a Kafka message.
func eventMessage(event engine.TransitionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize transition event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.HazardID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "observed_at", Value: []byte(event.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
