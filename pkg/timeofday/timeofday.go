// Package timeofday models a naive wall-clock time as minutes since midnight.
//
// Values carry no date and no zone. They are persisted as plain integers so
// comparisons in the store and in memory are the same integer comparisons.
package timeofday

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
)

var ErrInvalid = errors.New("invalid time of day")

// TimeOfDay is the number of minutes elapsed since 00:00.
type TimeOfDay int

func New(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalid, hour, minute)
	}
	return TimeOfDay(hour*MinutesPerHour + minute), nil
}

func MustParse(s string) TimeOfDay {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse accepts "HH:mm", "H:mm" and "HH:mm:ss". Seconds are validated and then
// truncated.
func Parse(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	hour, err := parseField(parts[0], 1, 2)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	minute, err := parseField(parts[1], 2, 2)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if len(parts) == 3 {
		sec, err := parseField(parts[2], 2, 2)
		if err != nil || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}

	t, err := New(hour, minute)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return t, nil
}

func parseField(s string, minLen, maxLen int) (int, error) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, ErrInvalid
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalid
		}
	}
	return strconv.Atoi(s)
}

func (t TimeOfDay) Hour() int   { return int(t) / MinutesPerHour }
func (t TimeOfDay) Minute() int { return int(t) % MinutesPerHour }

// Minutes returns the raw minute-of-day value.
func (t TimeOfDay) Minutes() int { return int(t) }

// Add shifts t by the given number of minutes. The result may fall outside a
// single day; callers compare it against a window end before using it.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalid, int(t))
	}
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: expected \"HH:mm\" string", ErrInvalid)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
