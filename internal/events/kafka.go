package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher produces decision events keyed by case id, so every event
// for a case lands on the same partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DecisionCompletedTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishDecision(ctx context.Context, evt DecisionCompleted) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}
	key := evt.CaseID
	if key == "" {
		key = evt.CustomerID
	}
	rec := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(key),
		Value:     value,
		Timestamp: evt.OccurredAt,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(TypeDecisionCompleted)},
			{Key: "event_id", Value: []byte(evt.EventID)},
		},
	}
	if err := p.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce decision event: %w", err)
	}
	return nil
}
