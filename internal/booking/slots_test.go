package booking

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

func window(day models.Weekday, start, end string) *models.AvailabilityWindow {
	return &models.AvailabilityWindow{Day: day, StartTime: models.MustTimeOfDay(start), EndTime: models.MustTimeOfDay(end)}
}

func render(seq []models.TimeOfDay) []string {
	out := make([]string, 0, len(seq))
	for _, t := range seq {
		out = append(out, t.String())
	}
	return out
}

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name        string
		window      *models.AvailabilityWindow
		granularity time.Duration
		want        []string
	}{
		{"two hour window", window(models.Monday, "14:00", "16:00"), 30 * time.Minute, []string{"14:00", "14:30", "15:00", "15:30"}},
		{"partial trailing slot dropped", window(models.Monday, "09:00", "10:15"), 30 * time.Minute, []string{"09:00", "09:30"}},
		{"window equal to granularity", window(models.Monday, "09:00", "09:30"), 30 * time.Minute, []string{"09:00"}},
		{"window shorter than granularity", window(models.Monday, "09:00", "09:20"), 30 * time.Minute, []string{}},
		{"empty window", window(models.Monday, "09:00", "09:00"), 30 * time.Minute, []string{}},
		{"inverted window", window(models.Monday, "10:00", "09:00"), 30 * time.Minute, []string{}},
		{"zero granularity", window(models.Monday, "09:00", "10:00"), 0, []string{}},
		{"negative granularity", window(models.Monday, "09:00", "10:00"), -time.Minute, []string{}},
		{"nil window", nil, 30 * time.Minute, []string{}},
		{"hourly", window(models.Friday, "20:00", "24:00"), time.Hour, []string{"20:00", "21:00", "22:00", "23:00"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := render(slices.Collect(GenerateSlots(tc.window, tc.granularity)))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerateSlotsIsRestartable(t *testing.T) {
	seq := GenerateSlots(window(models.Monday, "14:00", "16:00"), 30*time.Minute)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestGenerateSlotsStopsEarly(t *testing.T) {
	var seen []models.TimeOfDay
	for slot := range GenerateSlots(window(models.Monday, "08:00", "18:00"), 30*time.Minute) {
		seen = append(seen, slot)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"08:00", "08:30"}, render(seen))
}

func TestGenerateSlotsNeverExceedsWindow(t *testing.T) {
	w := window(models.Tuesday, "07:10", "11:55")
	for _, g := range []time.Duration{15 * time.Minute, 25 * time.Minute, 45 * time.Minute, time.Hour} {
		for slot := range GenerateSlots(w, g) {
			assert.GreaterOrEqual(t, slot, w.StartTime)
			assert.LessOrEqual(t, slot.Add(g), w.EndTime)
		}
	}
}
