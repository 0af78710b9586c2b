package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/metals-news-radar/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka emits one message per item, keyed by fingerprint so a topic can be compacted.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafkaWriter builds the producer used by NewKafka.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}
}

// NewKafka wraps a writer such as the one returned by NewKafkaWriter.
func NewKafka(writer messageWriter, topic string) *Kafka {
	return &Kafka{writer: writer, topic: topic}
}

func (s *Kafka) Name() string { return "kafka" }

// Publish writes the whole batch in one call.
func (s *Kafka) Publish(ctx context.Context, items []models.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(items))
	for _, item := range items {
		value, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", item.Fingerprint, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(item.Fingerprint),
			Value: value,
			Headers: []kafka.Header{
				{Key: "category", Value: []byte(item.Category)},
				{Key: "published_at", Value: []byte(item.PublishedAt.UTC().Format(time.RFC3339))},
			},
		})
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write to %s: %w", s.topic, err)
	}
	return nil
}
