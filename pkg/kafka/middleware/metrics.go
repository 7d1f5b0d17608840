package kafka_middleware

import (
	"context"
	"time"

	"tourhub/pkg/kafka"
	"tourhub/pkg/metrics"
)

const (
	directionProduce = "produce"
	directionConsume = "consume"
)

func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.KafkaMessage(directionProduce, msg.Topic, start, err)
		return err
	}
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.KafkaMessage(directionConsume, msg.Topic, start, err)
		return err
	}
}
