package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telehealth/internal/activity/repository"
	"telehealth/internal/activity/sink"
	"telehealth/pkg/config"
	"telehealth/pkg/kafka"
	kafkaconfig "telehealth/pkg/kafka/config"
	kafkamw "telehealth/pkg/kafka/middleware"
)

const ServiceName = "activity-sink"

// The activity sink drains the activity topic into the Activity_logs
// collection.
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	handler := sink.New(repository.NewMongoActivityRepository(cfg), cfg.Log)
	consumer, err := kafka.NewConsumer(kcfg, cfg.ActivityEventsTopic, cfg.ActivityConsumerGroup, cfg.EventsDLQTopic, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create activity consumer", "error", err)
	}

	counters := &kafkamw.Counters{}
	consumer.Use(kafkamw.LoggingConsumer(cfg.Log))
	consumer.Use(counters.Consumer())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportCounters(ctx, cfg, counters)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Activity consumer stopped", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close activity consumer", "error", err)
	}
	cfg.Log.Info("Activity sink stopped", "consumed", counters.Snapshot().Consumed)
}

func reportCounters(ctx context.Context, cfg *config.Config, counters *kafkamw.Counters) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := counters.Snapshot()
			cfg.Log.Info("Activity sink throughput", "consumed", s.Consumed, "failed", s.ConsumeFailed)
		}
	}
}
