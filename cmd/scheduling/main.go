package main

import (
	"context"

	availabilityhandler "telehealth/internal/availability/handler"
	availabilityrepo "telehealth/internal/availability/repository"
	availabilityservice "telehealth/internal/availability/service"
	availabilityvalidator "telehealth/internal/availability/validator"
	"telehealth/internal/events"
	sessionhandler "telehealth/internal/sessions/handler"
	sessionrepo "telehealth/internal/sessions/repository"
	sessionservice "telehealth/internal/sessions/service"
	"telehealth/internal/sessions/sweeper"
	sessionvalidator "telehealth/internal/sessions/validator"
	slotshandler "telehealth/internal/slots/handler"
	slotsservice "telehealth/internal/slots/service"
	"telehealth/pkg/app"
	"telehealth/pkg/config"
	kafkaconfig "telehealth/pkg/kafka/config"
	kafkamw "telehealth/pkg/kafka/middleware"
)

const ServiceName = "scheduling"

// eventSink receives session notifications and user activity.
type eventSink interface {
	sessionservice.Notifier
	sessionservice.ActivityRecorder
	Close() error
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting scheduling service")
	serverApp := app.NewApplication(cfg)

	counters := &kafkamw.Counters{}
	sink := initEvents(cfg, counters)
	if cfg.EventsEnabled {
		serverApp.WithEventCounters(counters)
	}
	serverApp.OnShutdown("events", func(context.Context) error { return sink.Close() })

	sessionRepo := sessionrepo.NewMongoSessionRepository(cfg)
	sessions := sessionservice.NewSessionService(
		sessionRepo,
		sessionvalidator.NewSessionValidator(cfg.Log),
		sink,
		sink,
		cfg,
	)
	availability := availabilityservice.NewAvailabilityService(
		availabilityrepo.NewMongoAvailabilityRepository(cfg),
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		sessionRepo,
		sink,
		cfg,
	)
	slots := slotsservice.NewGenerator(availability, sessionRepo, cfg)

	if cfg.SweepInProcess {
		s, err := sweeper.New(sessions, cfg.SweepSchedule, cfg.CalendarLocation(), cfg.RequestTimeout, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to schedule auto-complete sweep", "error", err)
		}
		s.Start()
		serverApp.OnShutdown("sweeper", s.Stop)
	}

	cfg.Log.Info("Scheduling service initialized", "database", cfg.MongoDatabaseName)
	serverApp.SetApp(
		availabilityhandler.NewAvailabilityHandler(availability, cfg.Log),
		slotshandler.NewSlotsHandler(slots, cfg.Log),
		sessionhandler.NewSessionHandler(sessions, cfg.Log),
	)
	serverApp.Run()
}

func initEvents(cfg *config.Config, counters *kafkamw.Counters) eventSink {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Events disabled, notifications are only logged")
		return events.NewNopPublisher(cfg.Log)
	}

	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	publisher, err := events.NewKafkaPublisher(cfg, kcfg, counters)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}
	return publisher
}
