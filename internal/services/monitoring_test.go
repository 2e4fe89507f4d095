package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypulse-backend/internal/models"
)

type providerFunc func(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error)

func (f providerFunc) GetOrBuild(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	return f(ctx, studentID, courseID)
}

type monitorFixture struct {
	db         *memDB
	now        time.Time
	student    *models.User
	instructor *models.User
	course     *models.Course
	registry   *SessionRegistry
	monitor    *FocusMonitor
	models     memModels
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	db := newMemDB()
	f := &monitorFixture{db: db, now: time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)}
	f.student = db.addUser("Dana Student", models.RoleStudent, strPtr("dana@example.com"))
	f.instructor = db.addUser("Prof. Lee", models.RoleInstructor, strPtr("lee@example.com"))
	f.course = db.addCourse("Organic Chemistry", &f.instructor.ID)
	f.models = memModels{db: db, getErr: map[uuid.UUID]error{}}

	focus := newFocusModelService(db, f.now)
	focus.store = f.models
	alerts := NewAlertService(memAlerts{db}, memQueue{db}, memUsers{db}, nopLogger())

	f.registry = NewSessionRegistry(memActive{db}, nopLogger())
	f.monitor = NewFocusMonitor(memActive{db}, focus, alerts, nopLogger())
	f.monitor.now = func() time.Time { return f.now }
	return f
}

// startAgo opens a monitoring episode that began the given number of minutes
// before the fixture clock.
func (f *monitorFixture) startAgo(t *testing.T, student uuid.UUID, minutes int) *models.ActiveSession {
	t.Helper()
	f.db.clock = f.now.Add(-time.Duration(minutes) * time.Minute)
	a, err := f.registry.Start(context.Background(), student, f.course.ID, uuid.New())
	require.NoError(t, err)
	return a
}

func TestFocusMonitor_FiresOncePerEpisode(t *testing.T) {
	f := newMonitorFixture(t)
	a := f.startAgo(t, f.student.ID, 50)

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TickResult{SessionsChecked: 1, AlertsTriggered: 1}, res)

	studentAlerts := f.db.alertsFor(f.student.ID)
	instructorAlerts := f.db.alertsFor(f.instructor.ID)
	require.Len(t, studentAlerts, 1)
	require.Len(t, instructorAlerts, 1)
	assert.Len(t, f.db.queue, 2)
	for _, n := range f.db.queue {
		assert.Equal(t, models.ChannelInApp, n.Channel)
		assert.Equal(t, models.NotificationPending, n.Status)
	}

	detail, err := studentAlerts[0].Detail()
	require.NoError(t, err)
	fl, ok := detail.(models.FocusLossDetail)
	require.True(t, ok)
	assert.Equal(t, 50, fl.ElapsedMinutes)
	assert.Equal(t, 60, fl.ThresholdMinutes)
	assert.Equal(t, 45, fl.AlertThresholdMinutes)
	assert.Equal(t, models.AlertTypeFocusLossApproaching, studentAlerts[0].Type)
	assert.Equal(t, &a.SessionID, studentAlerts[0].SessionID)
	assert.Contains(t, instructorAlerts[0].Message(), "Dana Student")

	got := memActive{f.db}.get(a.ID)
	require.NotNil(t, got.LastAlertSentAt)
	assert.Equal(t, f.now, *got.LastAlertSentAt)

	f.now = f.now.Add(10 * time.Minute)
	res, err = f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.AlertsTriggered)
	assert.Len(t, f.db.alerts, 2)
}

func TestFocusMonitor_ConcurrentTicksAlertOnce(t *testing.T) {
	f := newMonitorFixture(t)
	f.startAgo(t, f.student.ID, 70)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.monitor.Tick(context.Background())
		}()
	}
	wg.Wait()

	assert.Len(t, f.db.alertsFor(f.student.ID), 1)
	assert.Len(t, f.db.alertsFor(f.instructor.ID), 1)
}

func TestFocusMonitor_BelowThreshold(t *testing.T) {
	f := newMonitorFixture(t)
	f.startAgo(t, f.student.ID, 30)

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TickResult{SessionsChecked: 1}, res)
	assert.Empty(t, f.db.alerts)
}

func TestFocusMonitor_UsesStoredModelThreshold(t *testing.T) {
	f := newMonitorFixture(t)
	courseID := f.course.ID
	require.NoError(t, f.models.Upsert(context.Background(), &models.FocusModel{
		StudentID: f.student.ID, CourseID: &courseID, TypicalFocusLossMinutes: 40, Confidence: 0.7, SessionsAnalyzed: 10,
	}))
	f.startAgo(t, f.student.ID, 31)

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsTriggered)
}

func TestFocusMonitor_StoppedSessionIsIgnored(t *testing.T) {
	f := newMonitorFixture(t)
	a := f.startAgo(t, f.student.ID, 90)

	live, err := f.registry.Live(context.Background(), a.SessionID)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, f.student.ID, live.StudentID)

	stopped, err := f.registry.Stop(context.Background(), a.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.False(t, stopped.IsActive)

	live, err = f.registry.Live(context.Background(), a.SessionID)
	require.NoError(t, err)
	assert.Nil(t, live)

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.SessionsChecked)
	assert.Empty(t, f.db.alerts)
}

func TestFocusMonitor_ReleasesClaimWhenAlertFails(t *testing.T) {
	f := newMonitorFixture(t)
	a := f.startAgo(t, f.student.ID, 50)
	f.db.createErr = errBoom

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TickResult{SessionsChecked: 1, Errors: 1}, res)
	assert.Nil(t, memActive{f.db}.get(a.ID).LastAlertSentAt)

	f.db.createErr = nil
	res, err = f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsTriggered)
}

func TestFocusMonitor_IsolatesFailingSessions(t *testing.T) {
	f := newMonitorFixture(t)
	broken := f.db.addUser("Sam", models.RoleStudent, nil)
	f.models.getErr[broken.ID] = errBoom
	f.startAgo(t, broken.ID, 80)
	f.startAgo(t, f.student.ID, 80)

	res, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TickResult{SessionsChecked: 2, AlertsTriggered: 1, Errors: 1}, res)
	assert.Len(t, f.db.alertsFor(f.student.ID), 1)
	assert.Empty(t, f.db.alertsFor(broken.ID))
}

func TestFocusMonitor_RecoversFromPanic(t *testing.T) {
	f := newMonitorFixture(t)
	f.startAgo(t, f.student.ID, 80)
	alerts := NewAlertService(memAlerts{f.db}, memQueue{f.db}, memUsers{f.db}, nopLogger())
	calls := 0
	provider := providerFunc(func(context.Context, uuid.UUID, *uuid.UUID) (*models.FocusModel, error) {
		calls++
		if calls == 1 {
			panic("model exploded")
		}
		return models.DefaultFocusModel(f.student.ID, nil, 0), nil
	})
	f.startAgo(t, f.student.ID, 80)
	monitor := NewFocusMonitor(memActive{f.db}, provider, alerts, nopLogger())
	monitor.now = func() time.Time { return f.now }

	res, err := monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TickResult{SessionsChecked: 2, AlertsTriggered: 1, Errors: 1}, res)
}

func TestFocusMonitor_AlertsStudentOnlyWithoutInstructor(t *testing.T) {
	f := newMonitorFixture(t)
	f.course.InstructorID = nil
	f.startAgo(t, f.student.ID, 50)

	_, err := f.monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.db.alerts, 1)
	assert.Len(t, f.db.queue, 1)
}

func TestSessionRegistry_StartIsIdempotent(t *testing.T) {
	f := newMonitorFixture(t)
	sessionID := uuid.New()

	first, err := f.registry.Start(context.Background(), f.student.ID, f.course.ID, sessionID)
	require.NoError(t, err)
	second, err := f.registry.Start(context.Background(), f.student.ID, f.course.ID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.db.active, 1)

	stopped, err := f.registry.Stop(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, stopped)
}

func TestSessionRegistry_StopDoesNotCheckOwner(t *testing.T) {
	f := newMonitorFixture(t)
	a := f.startAgo(t, f.student.ID, 10)

	stopped, err := f.registry.Stop(context.Background(), a.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, f.student.ID, stopped.StudentID)
	assert.False(t, f.db.active[0].IsActive)
}
