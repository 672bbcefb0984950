package service

import (
	"context"
	"sort"

	"telehealth/pkg/calendar"
	"telehealth/pkg/config"
	apperrors "telehealth/pkg/errors"
	"telehealth/pkg/model"
)

type WindowSource interface {
	WindowsForDay(ctx context.Context, therapistID int64, dayOfWeek string) ([]*model.Availability, error)
}

// SessionSource returns every session of a therapist on a date, whatever its
// status.
type SessionSource interface {
	FindByTherapistAndDate(ctx context.Context, therapistID int64, date string) ([]*model.Session, error)
}

type SlotService interface {
	Available(ctx context.Context, req *model.SlotsRequest) ([]model.Slot, error)
	Generate(ctx context.Context, therapistID int64, date string) ([]model.Slot, error)
}

type Generator struct {
	windows  WindowSource
	sessions SessionSource
	cfg      *config.Config
}

func NewGenerator(windows WindowSource, sessions SessionSource, cfg *config.Config) *Generator {
	return &Generator{
		windows:  windows,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Available validates a slots request and generates the free slots for it.
func (g *Generator) Available(ctx context.Context, req *model.SlotsRequest) ([]model.Slot, error) {
	if !req.TherapistID.Present || req.SelectedDate == "" {
		return nil, apperrors.Validation("Missing therapistId or selectedDate", nil)
	}
	if !req.TherapistID.Valid {
		return nil, apperrors.Validation("Invalid therapist ID", nil)
	}
	date, err := calendar.ParseDate(req.SelectedDate)
	if err != nil {
		return nil, apperrors.Validation("Invalid date format", map[string]any{
			"selectedDate": req.SelectedDate,
		})
	}
	return g.Generate(ctx, req.TherapistID.Value, date)
}

// Generate lists the bookable slots of therapistID on date, ascending by
// start. A day without availability yields an empty list.
func (g *Generator) Generate(ctx context.Context, therapistID int64, date string) ([]model.Slot, error) {
	day, err := calendar.WeekdayName(date)
	if err != nil {
		return nil, apperrors.Validation("Invalid date format", map[string]any{"selectedDate": date})
	}

	windows, err := g.windows.WindowsForDay(ctx, therapistID, day)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []model.Slot{}, nil
	}

	var tiled []model.Slot
	for _, w := range windows {
		tiled = append(tiled, Tile(w.StartTime, w.EndTime, g.cfg.SessionDurationMin, g.cfg.SessionBreakMin)...)
	}
	sort.SliceStable(tiled, func(i, j int) bool { return tiled[i].Start < tiled[j].Start })

	booked, err := g.sessions.FindByTherapistAndDate(ctx, therapistID, date)
	if err != nil {
		g.cfg.Log.Error("Failed to load booked sessions",
			"therapist_id", therapistID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Something went wrong", err)
	}

	free := Exclude(tiled, booked, g.cfg.SlotCollisionMode)
	g.cfg.Log.Debug("Generated slots",
		"therapist_id", therapistID,
		"date", date,
		"day_of_week", day,
		"windows", len(windows),
		"tiled", len(tiled),
		"free", len(free),
	)
	return free, nil
}
