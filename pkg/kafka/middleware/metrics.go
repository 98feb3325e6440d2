package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"staybook/pkg/kafka"
)

// Metrics counts Kafka operations for the readiness report.
type Metrics struct {
	published       atomic.Int64
	publishedFailed atomic.Int64
	publishNanos    atomic.Int64

	consumed       atomic.Int64
	consumedFailed atomic.Int64
	consumeNanos   atomic.Int64
}

type MetricsSnapshot struct {
	Published          int64  `json:"published"`
	PublishFailed      int64  `json:"publishFailed"`
	AvgPublishDuration string `json:"avgPublishDuration"`
	Consumed           int64  `json:"consumed"`
	ConsumeFailed      int64  `json:"consumeFailed"`
	AvgConsumeDuration string `json:"avgConsumeDuration"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published := m.published.Load()
	consumed := m.consumed.Load()
	return MetricsSnapshot{
		Published:          published,
		PublishFailed:      m.publishedFailed.Load(),
		AvgPublishDuration: avg(m.publishNanos.Load(), published+m.publishedFailed.Load()).String(),
		Consumed:           consumed,
		ConsumeFailed:      m.consumedFailed.Load(),
		AvgConsumeDuration: avg(m.consumeNanos.Load(), consumed+m.consumedFailed.Load()).String(),
	}
}

func avg(totalNanos, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNanos / count)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.publishNanos.Add(int64(time.Since(start)))
		if err != nil {
			m.publishedFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		m.consumeNanos.Add(int64(time.Since(start)))
		if err != nil {
			m.consumedFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}
