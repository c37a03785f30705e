// Package timeutil converts between hour fractions, seconds, and wall-clock
// strings, and rounds times and durations to the quarter hour used by stops.
package timeutil

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxStopHours is the longest duration a single stop may have.
const MaxStopHours = 10.0

const quarter = 0.25

// HoursToSeconds converts an hour fraction to whole seconds.
func HoursToSeconds(h float64) int64 {
	return int64(math.Round(h * 3600))
}

// SecondsToHours converts seconds to an hour fraction.
func SecondsToHours(s int64) float64 {
	return float64(s) / 3600
}

// HoursToDuration converts an hour fraction to a time.Duration.
func HoursToDuration(h float64) time.Duration {
	return time.Duration(HoursToSeconds(h)) * time.Second
}

// QuantizeHours rounds h to the nearest quarter hour.
func QuantizeHours(h float64) float64 {
	return math.Round(h/quarter) * quarter
}

// ValidDuration reports whether h is a usable stop duration: within (0,10]
// and already quarter aligned.
func ValidDuration(h float64) bool {
	if h <= 0 || h > MaxStopHours {
		return false
	}
	return QuantizeHours(h) == h
}

// RoundToQuarterHour rounds t to the nearest 15-minute boundary in its own
// location. Seconds and below are discarded first.
func RoundToQuarterHour(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	mins := t.Sub(midnight).Minutes()
	rounded := math.Round(mins/15) * 15
	return midnight.Add(time.Duration(rounded) * time.Minute)
}

// FormatClock renders t as a 12-hour wall clock ("3:04 PM") in loc.
// A nil loc means the time's own location.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("3:04 PM")
}

// ParseClock parses a 12-hour ("3:04 PM", "3:04PM") or 24-hour ("15:04")
// wall clock and places it on day's calendar date in day's location.
func ParseClock(s string, day time.Time) (time.Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var (
		parsed time.Time
		err    error
	)
	for _, layout := range []string{"3:04 PM", "3:04PM", "15:04"} {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse clock %q: %w", s, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

// FormatDriveTime renders a drive duration in seconds the way the stop list
// shows it: "1 min", "12 mins", "1 hr", "1 hr 5 mins", "2 hrs 30 mins".
// Partial minutes round to the nearest minute; anything under 30s is "1 min".
func FormatDriveTime(seconds int) string {
	mins := int(math.Round(float64(seconds) / 60))
	if mins < 1 {
		mins = 1
	}
	return formatMinutes(mins)
}

// FormatHours renders an hour fraction: 0.25 → "15 mins", 1.5 → "1 hr 30 mins".
func FormatHours(h float64) string {
	return formatMinutes(int(math.Round(h * 60)))
}

func formatMinutes(total int) string {
	hrs, mins := total/60, total%60
	var parts []string
	switch {
	case hrs == 1:
		parts = append(parts, "1 hr")
	case hrs > 1:
		parts = append(parts, fmt.Sprintf("%d hrs", hrs))
	}
	switch {
	case mins == 1:
		parts = append(parts, "1 min")
	case mins > 1:
		parts = append(parts, fmt.Sprintf("%d mins", mins))
	}
	if len(parts) == 0 {
		return "0 mins"
	}
	return strings.Join(parts, " ")
}

// DayBounds returns local midnight of t's calendar day in loc and the
// following midnight.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc != nil {
		t = t.In(loc)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
