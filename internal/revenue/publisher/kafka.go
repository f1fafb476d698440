package publisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/smallbiznis/salesengine/internal/revenue/domain"
)

// Writer is the part of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish keys by owner so one owner's deltas stay ordered on a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, delta domain.RecognitionDelta) error {
	payload, err := json.Marshal(delta)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(delta.OwnerID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("revenue.recognition_delta")},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
