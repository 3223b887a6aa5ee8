package stream

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Handler processes one decoded record. A non-nil error is logged; the
// consumer keeps going either way, since one malformed record must not
// stall the partition.
type Handler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads records from one Kafka topic within a consumer group.
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer creates a consumer for the topic within the group.
func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		log: logger.GetLogger("stream.consumer"),
	}
}

// Run consumes until the context is cancelled, passing each record to
// handle. Returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.log.Infof("Consuming topic %s", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			c.log.Errorf("Handler failed for record at offset %d: %v", msg.Offset, err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a record value into out.
func DecodeJSON(value []byte, out interface{}) error {
	return json.Unmarshal(value, out)
}
