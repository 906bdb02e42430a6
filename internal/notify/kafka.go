package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every count change as JSON, keyed by user id.
type KafkaSink struct {
	w messageWriter
}

// NewKafkaSink writes to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, u Update) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(u.UserID, 10)),
		Value: b,
		Time:  u.At,
	})
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error { return s.w.Close() }
