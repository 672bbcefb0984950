package service

import (
	"telehealth/pkg/config"
	"telehealth/pkg/model"
	"telehealth/pkg/timeofday"
)

// Tile cuts [start, end) into slots of duration minutes separated by brk
// minutes. A slot is only emitted when it ends at or before end.
func Tile(start, end timeofday.TimeOfDay, duration, brk int) []model.Slot {
	slots := []model.Slot{}
	if duration <= 0 || brk < 0 {
		return slots
	}
	for cur := start; cur.Add(duration) <= end; cur = cur.Add(duration + brk) {
		slots = append(slots, model.Slot{Start: cur, End: cur.Add(duration)})
	}
	return slots
}

// Exclude drops slots that collide with a session holding the therapist's
// time. Declined and cancelled sessions hold nothing. In CollisionStart mode
// only an identical start time collides; otherwise any overlap does.
func Exclude(slots []model.Slot, booked []*model.Session, mode string) []model.Slot {
	out := make([]model.Slot, 0, len(slots))
	for _, slot := range slots {
		if !collides(slot, booked, mode) {
			out = append(out, slot)
		}
	}
	return out
}

func collides(slot model.Slot, booked []*model.Session, mode string) bool {
	for _, s := range booked {
		if s.Status == model.StatusDeclined || s.Status == model.StatusCancelled {
			continue
		}
		if mode == config.CollisionStart {
			if s.StartTime == slot.Start {
				return true
			}
			continue
		}
		if timeofday.Overlaps(slot.Start, slot.End, s.StartTime, s.EndTime) {
			return true
		}
	}
	return false
}

type Grouped struct {
	Morning   []model.Slot `json:"morning"`
	Afternoon []model.Slot `json:"afternoon"`
	Evening   []model.Slot `json:"evening"`
}

// Bucket groups slots for display by the hour they start: before noon,
// noon through 16:59, and 17:00 onwards.
func Bucket(slots []model.Slot) Grouped {
	g := Grouped{
		Morning:   []model.Slot{},
		Afternoon: []model.Slot{},
		Evening:   []model.Slot{},
	}
	for _, slot := range slots {
		switch h := slot.Start.Hour(); {
		case h < 12:
			g.Morning = append(g.Morning, slot)
		case h < 17:
			g.Afternoon = append(g.Afternoon, slot)
		default:
			g.Evening = append(g.Evening, slot)
		}
	}
	return g
}
