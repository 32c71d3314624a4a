package models

import "time"

// EarningsSummary aggregates a tutor's sessions.
type EarningsSummary struct {
	TotalEarnings     float64   `json:"total_earnings"`
	WeeklyEarnings    float64   `json:"weekly_earnings"`
	MonthlyEarnings   float64   `json:"monthly_earnings"`
	CompletedSessions int       `json:"completed_sessions"`
	PendingSessions   int       `json:"pending_sessions"`
	CancelledSessions int       `json:"cancelled_sessions"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// CountByKey is a generic grouped count row.
type CountByKey struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}

// MonthlySessions counts sessions per calendar month (YYYY-MM).
type MonthlySessions struct {
	Month     string  `db:"month" json:"month"`
	Total     int     `db:"total" json:"total"`
	Completed int     `db:"completed" json:"completed"`
	Revenue   float64 `db:"revenue" json:"revenue"`
}

// SessionStats is the admin session report.
type SessionStats struct {
	ByStatus       map[SessionStatus]int `json:"by_status"`
	TopSubjects    []CountByKey          `json:"top_subjects"`
	ByMonth        []MonthlySessions     `json:"by_month"`
	Total          int                   `json:"total"`
	CompletionRate float64               `json:"completion_rate"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// PlatformStats is the admin platform overview.
type PlatformStats struct {
	UsersByRole          map[UserRole]int           `json:"users_by_role"`
	TutorsByVerification map[VerificationStatus]int `json:"tutors_by_verification"`
	SessionsByStatus     map[SessionStatus]int      `json:"sessions_by_status"`
	TotalRevenue         float64                    `json:"total_revenue"`
	GeneratedAt          time.Time                  `json:"generated_at"`
}

// SystemMetrics is a point-in-time view of the service's own instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BookingsCreated          uint64    `json:"bookings_created"`
	BookingsRejected         uint64    `json:"bookings_rejected"`
	NotificationFailures     uint64    `json:"notification_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
