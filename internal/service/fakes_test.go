package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
)

// 2024-06-10 is a Monday.
var testNow = time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func mondayTutor(id, userID string, start, end string) *models.Tutor {
	return &models.Tutor{
		ID:                 id,
		UserID:             userID,
		FullName:           "Ada Tutor",
		HourlyRate:         40,
		VerificationStatus: models.VerificationVerified,
		Availability: models.Availability{{
			Day:       models.Monday,
			StartTime: models.MustTimeOfDay(start),
			EndTime:   models.MustTimeOfDay(end),
		}},
	}
}

type memTutorRepo struct {
	tutors        map[string]*models.Tutor
	created       []*models.Tutor
	verifications []models.VerificationStatus
	err           error
}

func newMemTutorRepo(tutors ...*models.Tutor) *memTutorRepo {
	repo := &memTutorRepo{tutors: map[string]*models.Tutor{}}
	for _, t := range tutors {
		repo.tutors[t.ID] = t
	}
	return repo
}

func (m *memTutorRepo) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []models.Tutor
	for _, t := range m.tutors {
		if filter.Status != nil && t.VerificationStatus != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *memTutorRepo) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *t
	return &copy, nil
}

func (m *memTutorRepo) FindByUserID(ctx context.Context, userID string) (*models.Tutor, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tutors {
		if t.UserID == userID {
			copy := *t
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memTutorRepo) Create(ctx context.Context, tutor *models.Tutor) error {
	tutor.ID = fmt.Sprintf("tutor-%d", len(m.tutors)+1)
	copy := *tutor
	m.tutors[tutor.ID] = &copy
	m.created = append(m.created, &copy)
	return nil
}

func (m *memTutorRepo) UpdateProfile(ctx context.Context, tutor *models.Tutor) error {
	copy := *tutor
	m.tutors[tutor.ID] = &copy
	return nil
}

func (m *memTutorRepo) UpdateAvailability(ctx context.Context, id string, availability models.Availability) error {
	t, ok := m.tutors[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.Availability = availability
	return nil
}

func (m *memTutorRepo) UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, comment *string) error {
	t, ok := m.tutors[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.VerificationStatus = status
	t.VerificationComment = comment
	m.verifications = append(m.verifications, status)
	return nil
}

func (m *memTutorRepo) VerificationStats(ctx context.Context) (*models.VerificationStats, error) {
	stats := &models.VerificationStats{}
	for _, t := range m.tutors {
		switch t.VerificationStatus {
		case models.VerificationPending:
			stats.Pending++
		case models.VerificationVerified:
			stats.Verified++
		case models.VerificationRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// memSessionRepo serialises writes with a mutex the way the advisory lock does in Postgres.
type memSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	seq       int
	createErr error
	updateErr error
}

func newMemSessionRepo(sessions ...*models.Session) *memSessionRepo {
	repo := &memSessionRepo{sessions: map[string]*models.Session{}}
	for _, s := range sessions {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (m *memSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *s
	return &copy, nil
}

func (m *memSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorUserID != "" && s.TutorUserID != filter.TutorUserID {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memSessionRepo) ListActiveByTutorAndDate(ctx context.Context, tutorID string, date models.Date) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(tutorID, date), nil
}

func (m *memSessionRepo) activeLocked(tutorID string, date models.Date) []models.Session {
	var out []models.Session
	for _, s := range m.sessions {
		if s.TutorID == tutorID && s.Date.Equal(date.Time) && s.Status.IsActive() {
			out = append(out, *s)
		}
	}
	return out
}

func (m *memSessionRepo) ListByTutor(ctx context.Context, tutorID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.TutorID == tutorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessionRepo) BookedSlots(ctx context.Context, tutorID string, from models.Date) ([]models.BookedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BookedSlot
	for _, s := range m.sessions {
		if s.TutorID == tutorID && s.Status.IsActive() && !s.Date.Before(from.Time) {
			out = append(out, models.BookedSlot{Date: s.Date, StartTime: s.StartTime, Duration: s.Duration})
		}
	}
	return out, nil
}

func (m *memSessionRepo) ListPendingReview(ctx context.Context, studentID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.Status == models.SessionCompleted && !s.Reviewed {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessionRepo) CreateGuarded(ctx context.Context, session *models.Session, guard repository.GuardFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if err := guard(m.activeLocked(session.TutorID, session.Date)); err != nil {
		return err
	}
	m.seq++
	session.ID = fmt.Sprintf("session-%d", m.seq)
	session.CreatedAt = testNow
	session.UpdatedAt = testNow
	copy := *session
	m.sessions[session.ID] = &copy
	return nil
}

func (m *memSessionRepo) UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	s, ok := m.sessions[id]
	if !ok || s.Status != from {
		return nil, repository.ErrStatusChanged
	}
	s.Status = to
	copy := *s
	return &copy, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.RecipientID)
	}
	return out
}

type memNotificationRepo struct {
	items     map[string]*models.Notification
	createErr error
	creates   int
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{items: map[string]*models.Notification{}}
}

func (m *memNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.items[n.ID]; exists {
		return nil
	}
	copy := *n
	m.items[n.ID] = &copy
	return nil
}

func (m *memNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, int, error) {
	var out []models.Notification
	unread := 0
	for _, n := range m.items {
		if n.RecipientID != filter.RecipientID {
			continue
		}
		if !n.Read {
			unread++
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), unread, nil
}

func (m *memNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *n
	return &copy, nil
}

func (m *memNotificationRepo) MarkRead(ctx context.Context, id string) error {
	m.items[id].Read = true
	return nil
}

func (m *memNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	var updated int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (m *memNotificationRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type recordingRetryQueue struct {
	jobs []jobs.Job[models.Notification]
	err  error
}

func (q *recordingRetryQueue) Enqueue(job jobs.Job[models.Notification]) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// memCacheRepo stores JSON payloads keyed by string and supports trailing-* patterns.
type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: map[string][]byte{}}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func (m *memCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func newTestCache(repo *memCacheRepo) *CacheService {
	return NewCacheService(repo, nil, time.Minute, nil, true)
}

func appCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
