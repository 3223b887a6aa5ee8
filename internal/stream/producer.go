package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Producer publishes JSON-encoded records to one Kafka topic.
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer creates a producer for the topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		log: logger.GetLogger("stream.producer"),
	}
}

// Publish marshals value to JSON and writes it under key. Key routing
// keeps all records of one portfolio on one partition, preserving order.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal record")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to publish to %s", p.writer.Topic)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
