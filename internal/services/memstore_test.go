package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres schema.
type memDB struct {
	mu sync.Mutex

	sessions    []models.StudySession
	active      []*models.ActiveSession
	focus       map[string]*models.FocusModel
	alerts      []*models.Alert
	queue       []*models.Notification
	users       map[uuid.UUID]*models.User
	courses     map[uuid.UUID]*models.Course
	enrollments map[uuid.UUID][]uuid.UUID
	reports     []*models.Report

	upserts    int
	claimErr   error
	createErr  error
	clock      time.Time
	queueClock time.Time
}

func newMemDB() *memDB {
	return &memDB{
		focus:       make(map[string]*models.FocusModel),
		users:       make(map[uuid.UUID]*models.User),
		courses:     make(map[uuid.UUID]*models.Course),
		enrollments: make(map[uuid.UUID][]uuid.UUID),
		queueClock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func strPtr(s string) *string { return &s }

func (db *memDB) addUser(name, role string, email *string) *models.User {
	u := &models.User{ID: uuid.New(), FullName: name, Role: role, Email: email}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addCourse(name string, instructor *uuid.UUID) *models.Course {
	c := &models.Course{ID: uuid.New(), Name: name, InstructorID: instructor}
	db.courses[c.ID] = c
	return c
}

func (db *memDB) enroll(course uuid.UUID, students ...uuid.UUID) {
	db.enrollments[course] = append(db.enrollments[course], students...)
}

func (db *memDB) addSession(student, course uuid.UUID, start time.Time, minutes int, mood, distractions *string) {
	name := ""
	if c, ok := db.courses[course]; ok {
		name = c.Name
	}
	db.sessions = append(db.sessions, models.StudySession{
		ID: uuid.New(), StudentID: student, CourseID: course, CourseName: name,
		StartedAt: start, DurationMinutes: minutes, Mood: mood, Distractions: distractions,
	})
}

func (db *memDB) alertsFor(recipient uuid.UUID) []*models.Alert {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.Alert
	for _, a := range db.alerts {
		if a.RecipientID == recipient {
			out = append(out, a)
		}
	}
	return out
}

func modelKey(student uuid.UUID, course *uuid.UUID) string {
	if course == nil {
		return student.String() + "/global"
	}
	return student.String() + "/" + course.String()
}

// sessions

type memSessions struct{ db *memDB }

func (s memSessions) ListForStudent(_ context.Context, studentID uuid.UUID, courseID *uuid.UUID, from, to time.Time) ([]models.StudySession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.StudySession, 0)
	for _, sess := range s.db.sessions {
		if sess.StudentID != studentID || sess.IsDeleted {
			continue
		}
		if courseID != nil && sess.CourseID != *courseID {
			continue
		}
		if sess.StartedAt.Before(from) || sess.StartedAt.After(to) {
			continue
		}
		out = append(out, sess)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s memSessions) ListForCourse(_ context.Context, courseID uuid.UUID, from, to time.Time) ([]models.StudySession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.StudySession, 0)
	for _, sess := range s.db.sessions {
		if sess.CourseID != courseID || sess.IsDeleted || sess.StartedAt.Before(from) || sess.StartedAt.After(to) {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// active sessions

type memActive struct{ db *memDB }

func (s memActive) Start(_ context.Context, studentID, courseID, sessionID uuid.UUID) (*models.ActiveSession, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.active {
		if a.SessionID == sessionID && a.IsActive {
			cp := *a
			return &cp, false, nil
		}
	}
	a := &models.ActiveSession{
		ID: uuid.New(), StudentID: studentID, CourseID: courseID, SessionID: sessionID,
		StartedAt: s.db.clock, IsActive: true, CreatedAt: s.db.clock,
	}
	s.db.active = append(s.db.active, a)
	cp := *a
	return &cp, true, nil
}

func (s memActive) GetLive(_ context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.active {
		if a.SessionID == sessionID && a.IsActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memActive) Stop(_ context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.active {
		if a.SessionID == sessionID && a.IsActive {
			a.IsActive = false
			end := s.db.clock
			a.EndedAt = &end
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memActive) ListActive(context.Context) ([]models.ActiveSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.ActiveSession, 0)
	for _, a := range s.db.active {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s memActive) ClaimAlert(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.claimErr != nil {
		return false, s.db.claimErr
	}
	for _, a := range s.db.active {
		if a.ID == id && a.IsActive && a.LastAlertSentAt == nil {
			t := at
			a.LastAlertSentAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (s memActive) ReleaseAlert(_ context.Context, id uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.active {
		if a.ID == id && a.LastAlertSentAt != nil && a.LastAlertSentAt.Equal(at) {
			a.LastAlertSentAt = nil
		}
	}
	return nil
}

func (s memActive) get(id uuid.UUID) models.ActiveSession {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.active {
		if a.ID == id {
			return *a
		}
	}
	return models.ActiveSession{}
}

// focus models

type memModels struct {
	db     *memDB
	getErr map[uuid.UUID]error
}

func (s memModels) Get(_ context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	if err, ok := s.getErr[studentID]; ok {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.focus[modelKey(studentID, courseID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s memModels) Upsert(_ context.Context, m *models.FocusModel) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.upserts++
	key := modelKey(m.StudentID, m.CourseID)
	if existing, ok := s.db.focus[key]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		m.ID = uuid.New()
		m.CreatedAt = s.db.clock
	}
	m.UpdatedAt = s.db.clock
	cp := *m
	s.db.focus[key] = &cp
	return nil
}

// alerts

type memAlerts struct{ db *memDB }

func (s memAlerts) CreateWithNotifications(_ context.Context, alerts []*models.Alert, channel models.Channel) ([]*models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.createErr != nil {
		return nil, s.db.createErr
	}
	out := make([]*models.Notification, 0, len(alerts))
	for _, a := range alerts {
		a.ID = uuid.New()
		a.CreatedAt = s.db.clock
		cp := *a
		s.db.alerts = append(s.db.alerts, &cp)
		out = append(out, s.db.insertQueueItem(a.ID, a.RecipientID, channel))
	}
	return out, nil
}

func (s memAlerts) GetByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.alerts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memAlerts) ListForRecipient(_ context.Context, recipientID uuid.UUID, limit int) ([]models.Alert, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.Alert, 0)
	for i := len(s.db.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.db.alerts[i].RecipientID == recipientID {
			out = append(out, *s.db.alerts[i])
		}
	}
	return out, nil
}

func (s memAlerts) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.alerts {
		if a.ID == id {
			a.Status = status
		}
	}
	return nil
}

// notification queue

type memQueue struct{ db *memDB }

func (db *memDB) insertQueueItem(alertID, recipientID uuid.UUID, channel models.Channel) *models.Notification {
	db.queueClock = db.queueClock.Add(time.Second)
	n := &models.Notification{
		ID: uuid.New(), AlertID: alertID, RecipientID: recipientID, Channel: channel,
		Status: models.NotificationPending, CreatedAt: db.queueClock,
	}
	db.queue = append(db.queue, n)
	cp := *n
	return &cp
}

func (s memQueue) Enqueue(_ context.Context, alertID, recipientID uuid.UUID, channel models.Channel) (*models.Notification, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range s.db.queue {
		if n.AlertID == alertID && n.RecipientID == recipientID && n.Channel == channel {
			cp := *n
			return &cp, false, nil
		}
	}
	return s.db.insertQueueItem(alertID, recipientID, channel), true, nil
}

func (s memQueue) ListPending(_ context.Context, limit int) ([]models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range s.db.queue {
		if n.Status == models.NotificationPending {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memQueue) MarkSent(_ context.Context, id uuid.UUID, providerMessageID *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range s.db.queue {
		if n.ID == id && n.Status == models.NotificationPending {
			n.Status = models.NotificationSent
			n.Attempts++
			n.ProviderMessageID = providerMessageID
			t := s.db.clock
			n.SentAt = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s memQueue) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range s.db.queue {
		if n.ID == id && n.Status == models.NotificationPending {
			n.Status = models.NotificationFailed
			n.Attempts++
			n.ErrorMessage = &reason
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s memQueue) get(id uuid.UUID) models.Notification {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range s.db.queue {
		if n.ID == id {
			return *n
		}
	}
	return models.Notification{}
}

// users

type memUsers struct{ db *memDB }

func (s memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s memUsers) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s memUsers) ListEnrolled(_ context.Context, courseID uuid.UUID) ([]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]models.User, 0)
	for _, id := range s.db.enrollments[courseID] {
		if u, ok := s.db.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// reports

type memReports struct{ db *memDB }

func (s memReports) Create(_ context.Context, r *models.Report) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = s.db.clock
	cp := *r
	s.db.reports = append(s.db.reports, &cp)
	return nil
}

// diagnostics

type memDiag struct{ db *memDB }

func (s memDiag) ModelStats(context.Context) (models.ModelStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var st models.ModelStats
	for _, m := range s.db.focus {
		st.Count++
		if m.LastTrainedAt != nil && (st.LastTrainedAt == nil || m.LastTrainedAt.After(*st.LastTrainedAt)) {
			t := *m.LastTrainedAt
			st.LastTrainedAt = &t
		}
	}
	return st, nil
}

func (s memDiag) CountAlertsSince(_ context.Context, since time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, a := range s.db.alerts {
		if !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s memDiag) NotificationCounts(context.Context) (map[string]int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	counts := map[string]int{models.NotificationPending: 0, models.NotificationSent: 0, models.NotificationFailed: 0}
	for _, n := range s.db.queue {
		counts[n.Status]++
	}
	return counts, nil
}

func (s memDiag) DataQuality(context.Context) (models.DataQuality, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var q models.DataQuality
	for _, sess := range s.db.sessions {
		if sess.IsDeleted {
			continue
		}
		q.TotalSessions++
		if sess.MoodLabel() == "" {
			q.MissingMood++
		}
		if len(sess.DistractionTags()) == 0 {
			q.MissingDistractions++
		}
	}
	return q, nil
}

func (s memDiag) ActiveSessionCounts(_ context.Context, staleBefore time.Time) (int, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	active, stale := 0, 0
	for _, a := range s.db.active {
		if !a.IsActive {
			continue
		}
		active++
		if a.StartedAt.Before(staleBefore) {
			stale++
		}
	}
	return active, stale, nil
}

var errBoom = errors.New("boom")
