package queue

import (
	"context"
	"encoding/json"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to one topic, keyed by campaign id so a
// campaign's events stay ordered within a partition.
type KafkaPublisher struct {
	writer  *kgo.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kgo.Writer{
			Addr:         kgo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kgo.Hash{},
			RequiredAcks: kgo.RequireOne,
		},
		timeout: 3 * time.Second,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := kafkaMessage(topic, payload)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(cctx, msg)
}

func kafkaMessage(topic string, payload any) (kgo.Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return kgo.Message{}, err
	}
	msg := kgo.Message{
		Value:   b,
		Time:    time.Now(),
		Headers: []kgo.Header{{Key: "event", Value: []byte(topic)}},
	}
	if ev, ok := payload.(Event); ok {
		msg.Key = []byte(ev.CampaignKey())
	}
	return msg, nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
