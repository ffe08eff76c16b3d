package publisher

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes restock events to a Kafka topic, keyed by restock id
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(topic string, brokers ...string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, evt domain.RestockEvent) error {
	payload, err := EncodeEvent(evt)
	if err != nil {
		return fmt.Errorf("marshal restock event failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.Epoch.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("restock")},
			{Key: "reason", Value: []byte(evt.Reason)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
