// Package sink stores activity events consumed from Kafka.
package sink

import (
	"context"
	"fmt"

	"telehealth/internal/activity/repository"
	"telehealth/pkg/kafka"
	"telehealth/pkg/logger"
	"telehealth/pkg/model"
)

type Sink struct {
	repo repository.ActivityRepository
	log  *logger.Logger
}

func New(repo repository.ActivityRepository, log *logger.Logger) *Sink {
	return &Sink{repo: repo, log: log}
}

// Handle is a kafka.MessageHandler. Redelivered events are stored once.
func (s *Sink) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.ActivityEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("undecodable activity event", err)
	}
	if event.ID == "" {
		event.ID = msg.EventID()
	}
	if event.ID == "" || event.UserID <= 0 || event.ActivityType == "" {
		return kafka.NewPermanentError(fmt.Sprintf("incomplete activity event %q", event.ID), nil)
	}

	stored, err := s.repo.Insert(ctx, event.ToLog())
	if err != nil {
		return kafka.NewTransientError("store activity event", err)
	}
	if !stored {
		s.log.Debug("Duplicate activity event ignored", "event_id", event.ID)
		return nil
	}

	s.log.Info("Activity logged",
		"event_id", event.ID,
		"user_id", event.UserID,
		"activity_type", event.ActivityType,
	)
	return nil
}
