package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	availabilityerrors "telehealth/internal/availability/errors"
	"telehealth/internal/availability/repository"
	"telehealth/internal/availability/validator"
	"telehealth/pkg/auth"
	"telehealth/pkg/calendar"
	"telehealth/pkg/config"
	apperrors "telehealth/pkg/errors"
	"telehealth/pkg/model"
	"telehealth/pkg/sanitizer"
	"telehealth/pkg/timeofday"
)

// ActiveSessionCounter reports the scheduled dates of a therapist's pending
// and accepted sessions.
type ActiveSessionCounter interface {
	ListActiveDates(ctx context.Context, therapistID int64) ([]string, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, event model.ActivityEvent) error
}

type AvailabilityService interface {
	UpsertWindow(ctx context.Context, therapistID int64, in *model.AvailabilityInput) (*model.Availability, error)
	DeleteWindow(ctx context.Context, therapistID int64, in *model.AvailabilityDelete) error
	ListWindows(ctx context.Context, therapistID int64) ([]*model.Availability, error)
	WindowsForDay(ctx context.Context, therapistID int64, dayOfWeek string) ([]*model.Availability, error)
}

type availabilityService struct {
	repo      repository.AvailabilityRepository
	validator *validator.AvailabilityValidator
	sessions  ActiveSessionCounter
	activity  ActivityRecorder
	cfg       *config.Config
}

func NewAvailabilityService(
	repo repository.AvailabilityRepository,
	validator *validator.AvailabilityValidator,
	sessions ActiveSessionCounter,
	activity ActivityRecorder,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		validator: validator,
		sessions:  sessions,
		activity:  activity,
		cfg:       cfg,
	}
}

func (s *availabilityService) UpsertWindow(ctx context.Context, therapistID int64, in *model.AvailabilityInput) (*model.Availability, error) {
	in.DayOfWeek = sanitizer.SanitizeWeekday(in.DayOfWeek)
	in.StartTime = sanitizer.TrimAndNormalize(in.StartTime)
	in.EndTime = sanitizer.TrimAndNormalize(in.EndTime)

	if in.DayOfWeek == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, apperrors.Validation("Missing fields", nil)
	}
	if err := s.validator.Validate(in); err != nil {
		s.cfg.Log.Warn("Availability validation failed",
			"therapist_id", therapistID,
			"day_of_week", in.DayOfWeek,
			"error", err,
		)
		return nil, apperrors.Validation("Availability validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	// The validator accepted all three fields, so parsing cannot fail here.
	day, _ := calendar.NormalizeWeekday(in.DayOfWeek)
	start, _ := timeofday.Parse(in.StartTime)
	end, _ := timeofday.Parse(in.EndTime)
	if !start.Before(end) {
		return nil, apperrors.Validation("End time must be after start time", map[string]any{
			"startTime": start.String(),
			"endTime":   end.String(),
		})
	}

	w := &model.Availability{
		TherapistID: therapistID,
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
	}
	if err := s.repo.Upsert(ctx, w); err != nil {
		if errors.Is(err, availabilityerrors.ErrDuplicate) {
			return nil, apperrors.Conflict("Availability for this day is being updated, please retry")
		}
		s.cfg.Log.Error("Failed to save availability",
			"therapist_id", therapistID,
			"day_of_week", day,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to save availability", err)
	}

	s.cfg.Log.Info("Availability saved",
		"id", w.ID,
		"therapist_id", therapistID,
		"day_of_week", day,
		"start_time", start.String(),
		"end_time", end.String(),
	)
	s.record(ctx, therapistID, model.ActivityAvailabilitySet)
	return w, nil
}

func (s *availabilityService) DeleteWindow(ctx context.Context, therapistID int64, in *model.AvailabilityDelete) error {
	in.ID = sanitizer.TrimAndNormalize(in.ID)
	if in.ID == "" {
		return apperrors.Validation("Missing availability id", nil)
	}
	if err := s.validator.ValidateDelete(in); err != nil {
		return apperrors.Validation("Invalid availability id", map[string]any{
			"error": err.Error(),
		})
	}

	var day string
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		w, err := s.repo.FindByID(sessCtx, in.ID)
		if err != nil {
			if errors.Is(err, availabilityerrors.ErrNotFound) || errors.Is(err, availabilityerrors.ErrInvalidID) {
				return notOwned()
			}
			return apperrors.Internal("Failed to load availability", err)
		}
		if w.TherapistID != therapistID {
			return notOwned()
		}
		day = w.DayOfWeek

		dates, err := s.sessions.ListActiveDates(sessCtx, therapistID)
		if err != nil {
			return apperrors.Internal("Failed to check active sessions", err)
		}
		if n := s.countOnWeekday(dates, w.DayOfWeek); n > 0 {
			return apperrors.Conflict(fmt.Sprintf(
				"Cannot delete: you have %d active session(s) on %s. Please cancel or complete them first.",
				n, w.DayOfWeek,
			)).WithDetails(map[string]any{"count": n, "dayOfWeek": w.DayOfWeek})
		}

		if err := s.repo.Delete(sessCtx, in.ID); err != nil {
			if errors.Is(err, availabilityerrors.ErrNotFound) {
				return notOwned()
			}
			return apperrors.Internal("Failed to delete availability", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInternal) {
			s.cfg.Log.Error("Failed to delete availability",
				"id", in.ID,
				"therapist_id", therapistID,
				"error", err,
			)
		} else {
			s.cfg.Log.Warn("Availability delete refused",
				"id", in.ID,
				"therapist_id", therapistID,
				"error", err,
			)
		}
		if !apperrors.IsAppError(err) {
			return apperrors.Internal("Failed to delete availability", err)
		}
		return err
	}

	s.cfg.Log.Info("Availability deleted",
		"id", in.ID,
		"therapist_id", therapistID,
		"day_of_week", day,
	)
	s.record(ctx, therapistID, model.ActivityAvailabilityDrop)
	return nil
}

func notOwned() error {
	return apperrors.New(apperrors.CodeNotFound, "Availability not found or unauthorized", http.StatusNotFound)
}

func (s *availabilityService) countOnWeekday(dates []string, dayOfWeek string) int {
	want, err := calendar.ParseWeekday(dayOfWeek)
	if err != nil {
		return 0
	}
	n := 0
	for _, date := range dates {
		wd, err := calendar.Weekday(date)
		if err != nil {
			s.cfg.Log.Warn("Skipping session with unreadable date", "scheduled_date", date, "error", err)
			continue
		}
		if wd == want {
			n++
		}
	}
	return n
}

func (s *availabilityService) ListWindows(ctx context.Context, therapistID int64) ([]*model.Availability, error) {
	windows, err := s.repo.FindByTherapist(ctx, therapistID)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability",
			"therapist_id", therapistID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to fetch availability", err)
	}

	sort.SliceStable(windows, func(i, j int) bool {
		ri, rj := calendar.WeekdayRank(windows[i].DayOfWeek), calendar.WeekdayRank(windows[j].DayOfWeek)
		if ri != rj {
			return ri < rj
		}
		return windows[i].StartTime < windows[j].StartTime
	})
	return windows, nil
}

// WindowsForDay matches dayOfWeek case-insensitively. An unknown day has no
// windows.
func (s *availabilityService) WindowsForDay(ctx context.Context, therapistID int64, dayOfWeek string) ([]*model.Availability, error) {
	day, err := calendar.NormalizeWeekday(dayOfWeek)
	if err != nil {
		return []*model.Availability{}, nil
	}

	windows, err := s.repo.FindByTherapistAndDay(ctx, therapistID, day)
	if err != nil {
		s.cfg.Log.Error("Failed to fetch availability for day",
			"therapist_id", therapistID,
			"day_of_week", day,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to fetch availability", err)
	}
	return windows, nil
}

func (s *availabilityService) record(ctx context.Context, userID int64, activityType string) {
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
		LoggedAt:     time.Now().UTC(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to record activity",
			"user_id", userID,
			"activity_type", activityType,
			"error", err,
		)
	}
}
