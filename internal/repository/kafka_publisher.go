package repository

import (
	"context"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	pkgkafka "DipWatch/pkg/kafka"
)

// KafkaSignalPublisher pushes computed trading signals to a Kafka topic,
// keyed by symbol so one symbol's verdicts stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) drepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.TradingSignals) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
