// Package booking holds the pure scheduling rules: slot generation, conflict
// detection, the session lifecycle and earnings aggregation.
package booking

import (
	"iter"
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// DefaultGranularity is the spacing between generated slot starts.
const DefaultGranularity = 30 * time.Minute

// GenerateSlots yields start, start+g, ... for every slot that fits wholly
// inside the window. The sequence is restartable.
func GenerateSlots(window *models.AvailabilityWindow, granularity time.Duration) iter.Seq[models.TimeOfDay] {
	return func(yield func(models.TimeOfDay) bool) {
		step := models.TimeOfDay(granularity / time.Minute)
		if window == nil || step <= 0 || window.StartTime >= window.EndTime {
			return
		}
		for t := window.StartTime; t+step <= window.EndTime; t += step {
			if !yield(t) {
				return
			}
		}
	}
}
