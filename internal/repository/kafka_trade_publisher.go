package repository

import (
	"context"

	"TradePilot/internal/domain/models"
	pkgkafka "TradePilot/pkg/kafka"
)

// KafkaTradePublisher streams executed transactions to the audit topic,
// keyed by ticker for per-symbol ordering.
type KafkaTradePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTradePublisher(producer *pkgkafka.Producer, topic string) *KafkaTradePublisher {
	return &KafkaTradePublisher{producer: producer, topic: topic}
}

func (p *KafkaTradePublisher) PublishTrade(ctx context.Context, txn *models.Transaction) error {
	return p.producer.Publish(ctx, p.topic, []byte(txn.Ticker), txn)
}

func (p *KafkaTradePublisher) Close() error {
	return p.producer.Close()
}

// NoopTradePublisher is used when the kafka audit stream is disabled.
type NoopTradePublisher struct{}

func (NoopTradePublisher) PublishTrade(context.Context, *models.Transaction) error { return nil }

func (NoopTradePublisher) Close() error { return nil }
