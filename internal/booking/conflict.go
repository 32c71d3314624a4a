package booking

import "github.com/noah-isme/tutor-booking-api/internal/models"

// Interval is a half-open [Start, End) span within a single day.
type Interval struct {
	Start models.TimeOfDay
	End   models.TimeOfDay
}

// IntervalOf builds the interval covered by a start time and a length in minutes.
func IntervalOf(start models.TimeOfDay, minutes int) Interval {
	return Interval{Start: start, End: start + models.TimeOfDay(minutes)}
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Within reports whether a lies entirely inside window.
func Within(a Interval, window models.AvailabilityWindow) bool {
	return a.Start >= window.StartTime && a.End <= window.EndTime
}

// HasConflict reports whether candidate overlaps any existing interval.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}

// ActiveIntervals projects the active sessions among sessions onto intervals.
func ActiveIntervals(sessions []models.Session) []Interval {
	out := make([]Interval, 0, len(sessions))
	for _, s := range sessions {
		if !s.Status.IsActive() {
			continue
		}
		out = append(out, IntervalOf(s.StartTime, s.Duration))
	}
	return out
}
