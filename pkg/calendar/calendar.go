package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"telehealth/pkg/timeofday"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate    = errors.New("invalid calendar date")
	ErrInvalidWeekday = errors.New("invalid weekday")
)

// CanonicalWeek is the listing order used for availability windows.
var CanonicalWeek = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseDate validates a "YYYY-MM-DD" calendar date and returns it in the
// canonical zero-padded form. A longer ISO timestamp is accepted and cut to its
// date part, the way browsers tend to send it.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d.Format(DateLayout), nil
}

// Weekday resolves a calendar date to the day a person reading a wall calendar
// sees. The date is a civil date so no zone conversion is involved.
func Weekday(date string) (time.Weekday, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return d.Weekday(), nil
}

// WeekdayName is Weekday rendered as its English name, e.g. "Monday".
func WeekdayName(date string) (string, error) {
	wd, err := Weekday(date)
	if err != nil {
		return "", err
	}
	return wd.String(), nil
}

// ParseWeekday matches an English weekday name case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), n) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// NormalizeWeekday returns the canonical capitalized name for a weekday.
func NormalizeWeekday(name string) (string, error) {
	d, err := ParseWeekday(name)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// WeekdayRank orders weekdays Monday-first; unknown names sort last.
func WeekdayRank(name string) int {
	d, err := ParseWeekday(name)
	if err != nil {
		return len(CanonicalWeek)
	}
	for i, wd := range CanonicalWeek {
		if wd == d {
			return i
		}
	}
	return len(CanonicalWeek)
}

// At combines a calendar date and a wall-clock time into an instant in loc.
func At(date string, tod timeofday.TimeOfDay, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// Today is the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}
