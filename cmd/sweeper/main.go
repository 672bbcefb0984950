package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"telehealth/internal/events"
	sessionrepo "telehealth/internal/sessions/repository"
	sessionservice "telehealth/internal/sessions/service"
	"telehealth/internal/sessions/sweeper"
	sessionvalidator "telehealth/internal/sessions/validator"
	"telehealth/pkg/config"
	kafkaconfig "telehealth/pkg/kafka/config"
)

const JobName = "session-sweeper"

// The sweeper runs the auto-complete sweep on its own schedule for
// deployments that keep it out of the API process.
func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	notifier, closeEvents := initNotifier(cfg)
	defer closeEvents()

	sessions := sessionservice.NewSessionService(
		sessionrepo.NewMongoSessionRepository(cfg),
		sessionvalidator.NewSessionValidator(cfg.Log),
		notifier,
		notifier,
		cfg,
	)

	s, err := sweeper.New(sessions, cfg.SweepSchedule, cfg.CalendarLocation(), cfg.RequestTimeout, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to schedule auto-complete sweep", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Run()
	s.Start()
	<-ctx.Done()
	cfg.Log.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		cfg.Log.Error("Sweeper shutdown failed", "error", err)
	}
}

type notifier interface {
	sessionservice.Notifier
	sessionservice.ActivityRecorder
	Close() error
}

func initNotifier(cfg *config.Config) (notifier, func()) {
	var n notifier = events.NewNopPublisher(cfg.Log)
	if cfg.EventsEnabled {
		kcfg, err := kafkaconfig.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		publisher, err := events.NewKafkaPublisher(cfg, kcfg, nil)
		if err != nil {
			cfg.Log.Fatal("Failed to create event publisher", "error", err)
		}
		n = publisher
	}
	return n, func() {
		if err := n.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}
}
