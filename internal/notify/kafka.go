package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-be/internal/logger"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher mirrors hub events onto a Kafka topic for services outside
// this process. The hub topic becomes the record key so one order's events
// stay on one partition.
type KafkaPublisher struct {
	client producer
	topic  string
}

type kafkaEnvelope struct {
	Topic     string    `json:"topic"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Published time.Time `json:"publishedAt"`
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("storefront-be"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	logger.L().Info("kafka bridge enabled",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
	)
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic, event string, payload any) error {
	value, err := json.Marshal(kafkaEnvelope{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Published: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(topic),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(event)},
		},
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s to kafka: %w", event, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() {
	k.client.Close()
}
