package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	sessionerrors "telehealth/internal/sessions/errors"
	"telehealth/internal/sessions/repository"
	"telehealth/internal/sessions/validator"
	"telehealth/pkg/auth"
	"telehealth/pkg/calendar"
	"telehealth/pkg/config"
	apperrors "telehealth/pkg/errors"
	"telehealth/pkg/model"
	"telehealth/pkg/sanitizer"
	"telehealth/pkg/timeofday"
)

const maxIssueDescriptionRunes = 2000

const (
	msgBooked    = "You have a new therapy session request."
	msgAccepted  = "Your therapy session has been accepted."
	msgDeclined  = "Your therapy session request has been declined."
	msgCancelled = "A therapy session has been cancelled."
	msgCompleted = "Your therapy session has been completed."
)

// Notifier delivers session events to the notification service.
type Notifier interface {
	Notify(ctx context.Context, event model.SessionEvent) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, event model.ActivityEvent) error
}

type SessionService interface {
	Book(ctx context.Context, actor auth.Actor, req *model.BookingRequest) (*model.Session, error)
	Accept(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)
	Decline(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)
	Cancel(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)
	Complete(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)
	AutoComplete(ctx context.Context, now time.Time) (int, error)
	GetByID(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error)
	ListMine(ctx context.Context, actor auth.Actor, status string, limit int, offset int64) ([]*model.Session, int64, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	validator *validator.SessionValidator
	notifier  Notifier
	activity  ActivityRecorder
	cfg       *config.Config
	now       func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	validator *validator.SessionValidator,
	notifier Notifier,
	activity ActivityRecorder,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		activity:  activity,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Book creates a pending session for the requested slot. The slot is held by
// at most one active session; losing a race for it is a conflict.
func (s *sessionService) Book(ctx context.Context, actor auth.Actor, req *model.BookingRequest) (*model.Session, error) {
	session, err := s.newSession(req)
	if err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"therapist_id", req.TherapistID.Value,
			"patient_id", req.PatientID.Value,
			"selected_date", req.SelectedDate,
			"error", err,
		)
		return nil, err
	}

	if !actor.IsAdmin() && !(actor.IsPatient() && actor.ID == session.PatientID) {
		return nil, apperrors.Forbidden("You can only book sessions for yourself")
	}

	if existing, err := s.repo.FindActiveBySlot(ctx, session.TherapistID, session.ScheduledDate, session.StartTime); err == nil {
		s.cfg.Log.Info("Slot already booked",
			"therapist_id", session.TherapistID,
			"scheduled_date", session.ScheduledDate,
			"start_time", session.StartTime.String(),
			"existing_session_id", existing.ID,
		)
		return nil, apperrors.Conflict("Slot already booked")
	} else if !errors.Is(err, sessionerrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to check slot", "therapist_id", session.TherapistID, "error", err)
		return nil, apperrors.Internal(err.Error(), err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, sessionerrors.ErrDuplicate) {
			s.cfg.Log.Info("Booking lost the race for a slot",
				"therapist_id", session.TherapistID,
				"scheduled_date", session.ScheduledDate,
				"start_time", session.StartTime.String(),
			)
			return nil, apperrors.Conflict("Slot already booked")
		}
		s.cfg.Log.Error("Failed to create session",
			"therapist_id", session.TherapistID,
			"patient_id", session.PatientID,
			"error", err,
		)
		return nil, apperrors.Internal(err.Error(), err)
	}

	s.cfg.Log.Info("Session booked",
		"session_id", session.ID,
		"therapist_id", session.TherapistID,
		"patient_id", session.PatientID,
		"scheduled_date", session.ScheduledDate,
		"start_time", session.StartTime.String(),
	)
	s.notify(ctx, session, model.EventSessionBooked, session.TherapistID, actor.ID, msgBooked)
	s.record(ctx, session.PatientID, model.ActivitySessionBooked)
	return session, nil
}

func (s *sessionService) newSession(req *model.BookingRequest) (*model.Session, error) {
	if !req.TherapistID.Present || !req.PatientID.Present ||
		sanitizer.TrimAndNormalize(req.SelectedDate) == "" ||
		sanitizer.TrimAndNormalize(req.StartTime) == "" ||
		sanitizer.TrimAndNormalize(req.EndTime) == "" {
		return nil, apperrors.Validation("Missing required fields", nil)
	}
	if !req.TherapistID.Valid || !req.PatientID.Valid {
		return nil, apperrors.Validation("Invalid therapist or patient ID", nil)
	}

	date, err := calendar.ParseDate(req.SelectedDate)
	if err != nil {
		return nil, apperrors.Validation("Invalid date format", map[string]any{"selectedDate": req.SelectedDate})
	}
	start, err := timeofday.Parse(req.StartTime)
	if err != nil {
		return nil, apperrors.Validation("Invalid time format", map[string]any{"startTime": req.StartTime})
	}
	end, err := timeofday.Parse(req.EndTime)
	if err != nil {
		return nil, apperrors.Validation("Invalid time format", map[string]any{"endTime": req.EndTime})
	}
	if !start.Before(end) {
		return nil, apperrors.Validation("End time must be after start time", nil)
	}

	sessionType := model.SessionType(sanitizer.SanitizeToken(req.SessionType))
	if sessionType == "" {
		sessionType = model.SessionTypeVideoCall
	}

	session := &model.Session{
		TherapistID:      req.TherapistID.Value,
		PatientID:        req.PatientID.Value,
		ScheduledDate:    date,
		StartTime:        start,
		EndTime:          end,
		Status:           model.StatusPending,
		SessionType:      sessionType,
		IssueDescription: sanitizer.SanitizeFreeText(req.IssueDescription, maxIssueDescriptionRunes),
	}
	if err := s.validator.Validate(session); err != nil {
		return nil, apperrors.Validation("Session validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	return session, nil
}

func (s *sessionService) Accept(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error) {
	return s.transition(ctx, actor, sessionID, transitionSpec{
		target:   model.StatusAccepted,
		verb:     "accept",
		allowed:  therapistOrAdmin,
		activity: model.ActivitySessionAccepted,
		event:    model.EventSessionAccepted,
		message:  msgAccepted,
		update: func(id string) repository.TransitionUpdate {
			return repository.TransitionUpdate{MeetingRoomID: fmt.Sprintf("therapy-%s-%s", id, uuid.NewString())}
		},
	})
}

func (s *sessionService) Decline(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error) {
	return s.transition(ctx, actor, sessionID, transitionSpec{
		target:   model.StatusDeclined,
		verb:     "decline",
		allowed:  therapistOrAdmin,
		activity: model.ActivitySessionDeclined,
		event:    model.EventSessionDeclined,
		message:  msgDeclined,
	})
}

func (s *sessionService) Cancel(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error) {
	return s.transition(ctx, actor, sessionID, transitionSpec{
		target:   model.StatusCancelled,
		verb:     "cancel",
		allowed:  participantOrAdmin,
		activity: model.ActivitySessionCancelled,
		event:    model.EventSessionCancelled,
		message:  msgCancelled,
	})
}

func (s *sessionService) Complete(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error) {
	return s.transition(ctx, actor, sessionID, transitionSpec{
		target:   model.StatusCompleted,
		verb:     "complete",
		allowed:  therapistOrAdmin,
		activity: model.ActivitySessionCompleted,
		event:    model.EventSessionCompleted,
		message:  msgCompleted,
		update: func(string) repository.TransitionUpdate {
			now := s.now().UTC()
			return repository.TransitionUpdate{CompletedAt: &now}
		},
	})
}

type transitionSpec struct {
	target   model.SessionStatus
	verb     string
	allowed  func(auth.Actor, *model.Session) bool
	activity string
	event    model.SessionEventType
	message  string
	update   func(id string) repository.TransitionUpdate
}

func therapistOrAdmin(actor auth.Actor, s *model.Session) bool {
	return actor.IsAdmin() || (actor.IsTherapist() && actor.ID == s.TherapistID)
}

func participantOrAdmin(actor auth.Actor, s *model.Session) bool {
	return actor.IsAdmin() || s.HasParticipant(actor.ID)
}

func (s *sessionService) transition(ctx context.Context, actor auth.Actor, sessionID string, spec transitionSpec) (*model.Session, error) {
	sessionID = sanitizer.TrimAndNormalize(sessionID)
	if err := s.validator.ValidateAction(&model.SessionAction{SessionID: sessionID}); err != nil {
		return nil, apperrors.Validation("Invalid session ID", map[string]any{"error": err.Error()})
	}

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !spec.allowed(actor, current) {
		s.cfg.Log.Warn("Session transition forbidden",
			"session_id", sessionID,
			"actor_id", actor.ID,
			"actor_role", actor.Role,
			"target", spec.target,
		)
		return nil, apperrors.Forbidden(fmt.Sprintf("You are not allowed to %s this session", spec.verb))
	}

	var upd repository.TransitionUpdate
	if spec.update != nil {
		upd = spec.update(sessionID)
	}

	updated, err := s.repo.Transition(ctx, sessionID, model.AllowedFrom(spec.target), spec.target, upd)
	if err != nil {
		if errors.Is(err, sessionerrors.ErrStatusConflict) {
			status := current.Status
			if updated != nil {
				status = updated.Status
			}
			return nil, apperrors.Conflict(fmt.Sprintf("Cannot %s a session that is %s", spec.verb, status)).
				WithDetails(map[string]any{"status": status})
		}
		if errors.Is(err, sessionerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", sessionID)
		}
		s.cfg.Log.Error("Failed to update session status",
			"session_id", sessionID,
			"target", spec.target,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update session", err)
	}

	s.cfg.Log.Info("Session status changed",
		"session_id", sessionID,
		"from", current.Status,
		"to", updated.Status,
		"actor_id", actor.ID,
	)

	for _, recipient := range recipients(actor, updated, spec.target) {
		s.notify(ctx, updated, spec.event, recipient, actor.ID, spec.message)
	}
	s.record(ctx, actor.ID, spec.activity)
	return updated, nil
}

// recipients picks who hears about a change. A cancellation goes to the other
// party; everything else goes to the patient.
func recipients(actor auth.Actor, s *model.Session, target model.SessionStatus) []int64 {
	if target != model.StatusCancelled {
		return []int64{s.PatientID}
	}
	switch actor.ID {
	case s.PatientID:
		return []int64{s.TherapistID}
	case s.TherapistID:
		return []int64{s.PatientID}
	}
	return []int64{s.TherapistID, s.PatientID}
}

// AutoComplete moves every accepted session whose end has passed to
// completed. Running it again changes nothing, and a session completed by its
// therapist in the meantime is skipped.
func (s *sessionService) AutoComplete(ctx context.Context, now time.Time) (int, error) {
	loc := s.cfg.CalendarLocation()
	candidates, err := s.repo.FindAccepted(ctx, calendar.Today(now, loc))
	if err != nil {
		s.cfg.Log.Error("Failed to load accepted sessions", "error", err)
		return 0, apperrors.Internal("Failed to load accepted sessions", err)
	}

	completedAt := now.UTC()
	completed := 0
	for _, c := range candidates {
		end, err := calendar.At(c.ScheduledDate, c.EndTime, loc)
		if err != nil {
			s.cfg.Log.Warn("Skipping session with unreadable date",
				"session_id", c.ID,
				"scheduled_date", c.ScheduledDate,
				"error", err,
			)
			continue
		}
		if !now.After(end) {
			continue
		}

		updated, err := s.repo.Transition(ctx, c.ID, []model.SessionStatus{model.StatusAccepted}, model.StatusCompleted,
			repository.TransitionUpdate{CompletedAt: &completedAt})
		if err != nil {
			if errors.Is(err, sessionerrors.ErrStatusConflict) || errors.Is(err, sessionerrors.ErrNotFound) {
				continue
			}
			s.cfg.Log.Error("Failed to auto-complete session", "session_id", c.ID, "error", err)
			return completed, apperrors.Internal("Failed to auto-complete sessions", err)
		}
		completed++
		s.notify(ctx, updated, model.EventSessionCompleted, updated.PatientID, 0, msgCompleted)
	}

	if completed > 0 {
		s.cfg.Log.Info("Auto-completed sessions", "count", completed, "scanned", len(candidates))
	}
	return completed, nil
}

// GetByID hides sessions the actor takes no part in behind a 404.
func (s *sessionService) GetByID(ctx context.Context, actor auth.Actor, sessionID string) (*model.Session, error) {
	session, err := s.load(ctx, sanitizer.TrimAndNormalize(sessionID))
	if err != nil {
		return nil, err
	}
	if !participantOrAdmin(actor, session) {
		return nil, apperrors.NotFoundWithID("Session", sessionID)
	}
	return session, nil
}

func (s *sessionService) ListMine(ctx context.Context, actor auth.Actor, status string, limit int, offset int64) ([]*model.Session, int64, error) {
	filter := repository.ParticipantFilter{
		UserID: actor.ID,
		Limit:  config.NormalizePaginationLimit(limit),
		Offset: config.NormalizeOffset(offset),
	}
	if status = sanitizer.SanitizeToken(status); status != "" {
		filter.Status = model.SessionStatus(status)
		if !filter.Status.Valid() {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", status))
		}
	}

	sessions, err := s.repo.ListByParticipant(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list sessions", "user_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve sessions", err)
	}
	count, err := s.repo.CountByParticipant(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count sessions", "user_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count sessions", err)
	}
	return sessions, count, nil
}

func (s *sessionService) load(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", sessionID)
		}
		if errors.Is(err, sessionerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid session ID")
		}
		s.cfg.Log.Error("Failed to get session", "session_id", sessionID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}
	return session, nil
}

func (s *sessionService) notify(ctx context.Context, session *model.Session, eventType model.SessionEventType, recipient, actorID int64, message string) {
	if s.notifier == nil {
		return
	}
	event := model.SessionEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		SessionID:     session.ID,
		TherapistID:   session.TherapistID,
		PatientID:     session.PatientID,
		RecipientID:   recipient,
		ActorID:       actorID,
		Message:       message,
		Status:        session.Status,
		ScheduledDate: session.ScheduledDate,
		StartTime:     session.StartTime.String(),
		EndTime:       session.EndTime.String(),
		MeetingRoomID: session.MeetingRoomID,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to send session notification",
			"session_id", session.ID,
			"event", eventType,
			"recipient_id", recipient,
			"error", err,
		)
	}
}

func (s *sessionService) record(ctx context.Context, userID int64, activityType string) {
	if s.activity == nil {
		return
	}
	client := auth.ClientFrom(ctx)
	event := model.ActivityEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityType: activityType,
		IPAddress:    client.IP,
		DeviceInfo:   client.UserAgent,
		LoggedAt:     s.now().UTC(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to record activity",
			"user_id", userID,
			"activity_type", activityType,
			"error", err,
		)
	}
}
