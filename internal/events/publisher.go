// Package events publishes session and activity events to Kafka.
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telehealth/pkg/config"
	"telehealth/pkg/kafka"
	kafkaconfig "telehealth/pkg/kafka/config"
	kafkamw "telehealth/pkg/kafka/middleware"
	"telehealth/pkg/logger"
	"telehealth/pkg/middleware"
	"telehealth/pkg/model"
)

const (
	schemaVersion  = "1"
	publishTimeout = 5 * time.Second
)

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Publisher sends session events to the notification topic and activity
// events to the activity topic.
type Publisher struct {
	sessions messagePublisher
	activity messagePublisher
	source   string
	log      *logger.Logger
}

func NewPublisher(sessions, activity messagePublisher, source string, log *logger.Logger) *Publisher {
	return &Publisher{
		sessions: sessions,
		activity: activity,
		source:   source,
		log:      log,
	}
}

// NewKafkaPublisher builds producers for both topics. Failed writes land on
// the shared DLQ topic.
func NewKafkaPublisher(cfg *config.Config, kcfg *kafkaconfig.Config, counters *kafkamw.Counters) (*Publisher, error) {
	sessions, err := kafka.NewProducer(kcfg, cfg.SessionEventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("session events producer: %w", err)
	}
	activity, err := kafka.NewProducer(kcfg, cfg.ActivityEventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		_ = sessions.Close()
		return nil, fmt.Errorf("activity events producer: %w", err)
	}

	for _, p := range []*kafka.Producer{sessions, activity} {
		p.Use(kafkamw.LoggingProducer(cfg.Log))
		if counters != nil {
			p.Use(counters.Producer())
		}
	}
	return NewPublisher(sessions, activity, cfg.ServiceName, cfg.Log), nil
}

// Notify publishes e keyed by session so one session's events stay ordered.
func (p *Publisher) Notify(ctx context.Context, e model.SessionEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(e.SessionID).
		WithJSON(e).
		WithEventID(e.ID).
		WithEventType(string(e.Type)).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSource(p.source).
		WithSchemaVersion(schemaVersion).
		Build()
	if err != nil {
		return err
	}
	return p.publish(ctx, p.sessions, msg)
}

// Record publishes e keyed by user.
func (p *Publisher) Record(ctx context.Context, e model.ActivityEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(strconv.FormatInt(e.UserID, 10)).
		WithJSON(e).
		WithEventID(e.ID).
		WithEventType(e.ActivityType).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSource(p.source).
		WithSchemaVersion(schemaVersion).
		Build()
	if err != nil {
		return err
	}
	return p.publish(ctx, p.activity, msg)
}

// publish outlives the request that triggered it; a client hanging up after
// its booking went through still gets the therapist notified.
func (p *Publisher) publish(ctx context.Context, to messagePublisher, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return to.Publish(ctx, msg)
}

func (p *Publisher) Close() error {
	return errors.Join(p.sessions.Close(), p.activity.Close())
}

// NopPublisher stands in when events are disabled and only logs what would
// have been sent.
type NopPublisher struct {
	log *logger.Logger
}

func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (n *NopPublisher) Notify(ctx context.Context, e model.SessionEvent) error {
	n.log.Info("Session notification",
		"event", e.Type,
		"session_id", e.SessionID,
		"recipient_id", e.RecipientID,
		"message", e.Message,
	)
	return nil
}

func (n *NopPublisher) Record(ctx context.Context, e model.ActivityEvent) error {
	n.log.Info("User activity",
		"user_id", e.UserID,
		"activity_type", e.ActivityType,
		"ip_address", e.IPAddress,
		"device_info", e.DeviceInfo,
	)
	return nil
}

func (n *NopPublisher) Close() error { return nil }
