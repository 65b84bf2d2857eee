// Package clock parses and formats the time-of-day and date values used by
// the scheduling core. Clinic schedules run on a 5-minute grid.
package clock

import (
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"

	// Granularity is the schedule grid: slot start minutes and durations
	// must be multiples of it.
	Granularity = 5
)

// ParseClock parses an HH:mm value and rejects anything off the 5-minute grid.
func ParseClock(value string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid time %q, expected HH:mm", value)
	}
	if t.Minute()%Granularity != 0 {
		return time.Time{}, apperr.Validation("time %q must fall on a %d-minute boundary", value, Granularity)
	}
	return t, nil
}

// ParseDate parses a calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// ValidateDuration enforces the minimum slot length and the schedule grid.
func ValidateDuration(mins int) error {
	if mins < Granularity {
		return apperr.Validation("duration must be at least %d minutes", Granularity)
	}
	if mins%Granularity != 0 {
		return apperr.Validation("duration must be a multiple of %d minutes", Granularity)
	}
	return nil
}

// Combine builds a UTC instant from a calendar date and a clock value.
func Combine(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

func FormatClock(t time.Time) string {
	return t.UTC().Format(ClockLayout)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
