package notify

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// TopicOrderCreated carries OrderCreatedEvent payloads.
const TopicOrderCreated = "order-created"

// NewWriter builds a kafka writer for the order-created topic. Leader
// acknowledgment is enough here: the events are advisory.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicOrderCreated,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewReader builds a consumer-group reader for the order-created topic.
func NewReader(brokers []string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   TopicOrderCreated,
		GroupID: groupID,
	})
}

// WriterPublisher adapts *kafka.Writer to the Publisher interface.
type WriterPublisher struct {
	w *kafka.Writer
}

var _ Publisher = (*WriterPublisher)(nil)

func NewWriterPublisher(w *kafka.Writer) *WriterPublisher {
	return &WriterPublisher{w: w}
}

func (p *WriterPublisher) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
}

// Close flushes pending messages and releases the writer.
func (p *WriterPublisher) Close() error {
	return p.w.Close()
}
