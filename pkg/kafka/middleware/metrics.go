package kafkamw

import (
	"context"
	"sync/atomic"
	"time"

	"telehealth/pkg/kafka"
)

// Counters tracks message throughput for the health endpoint.
type Counters struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	publishDuration atomic.Int64
}

type Snapshot struct {
	Published      int64         `json:"published"`
	PublishFailed  int64         `json:"publish_failed"`
	Consumed       int64         `json:"consumed"`
	ConsumeFailed  int64         `json:"consume_failed"`
	AvgPublishTime time.Duration `json:"avg_publish_ns"`
}

func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Published:     c.published.Load(),
		PublishFailed: c.publishFailed.Load(),
		Consumed:      c.consumed.Load(),
		ConsumeFailed: c.consumeFailed.Load(),
	}
	if s.Published > 0 {
		s.AvgPublishTime = time.Duration(c.publishDuration.Load() / s.Published)
	}
	return s
}

func (c *Counters) Producer() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			c.publishFailed.Add(1)
			return err
		}
		c.published.Add(1)
		c.publishDuration.Add(int64(time.Since(start)))
		return nil
	}
}

func (c *Counters) Consumer() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		err := next(ctx, msg)
		if err != nil {
			c.consumeFailed.Add(1)
			return err
		}
		c.consumed.Add(1)
		return nil
	}
}
