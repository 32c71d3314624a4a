package booking

import (
	"math"
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// Aggregate summarises a tutor's sessions relative to now. Earnings count
// completed sessions only; the weekly window starts seven days before now and
// the monthly window one calendar month before now.
func Aggregate(sessions []models.Session, now time.Time) models.EarningsSummary {
	weekStart := models.DateOf(now.AddDate(0, 0, -7))
	monthStart := models.DateOf(now.AddDate(0, -1, 0))

	summary := models.EarningsSummary{GeneratedAt: now}
	for _, s := range sessions {
		switch s.Status {
		case models.SessionCompleted:
			summary.CompletedSessions++
			summary.TotalEarnings += s.Price
			if !s.Date.Before(weekStart.Time) {
				summary.WeeklyEarnings += s.Price
			}
			if !s.Date.Before(monthStart.Time) {
				summary.MonthlyEarnings += s.Price
			}
		case models.SessionPending:
			summary.PendingSessions++
		case models.SessionCancelled:
			summary.CancelledSessions++
		}
	}

	summary.TotalEarnings = roundCents(summary.TotalEarnings)
	summary.WeeklyEarnings = roundCents(summary.WeeklyEarnings)
	summary.MonthlyEarnings = roundCents(summary.MonthlyEarnings)
	return summary
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
