package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/metrics"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

// alertThresholdRatio fires the alert at 75% of the predicted focus-loss minute.
const alertThresholdRatio = 0.75

// SessionRegistry opens and closes monitoring episodes. Callers verify the
// session belongs to the caller.
type SessionRegistry struct {
	store  ActiveSessionStore
	logger zerolog.Logger
}

func NewSessionRegistry(store ActiveSessionStore, logger *zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		store:  store,
		logger: logger.With().Str("component", "session_registry").Logger(),
	}
}

// Start is idempotent: an already monitored session is returned unchanged.
func (r *SessionRegistry) Start(ctx context.Context, studentID, courseID, sessionID uuid.UUID) (*models.ActiveSession, error) {
	a, created, err := r.store.Start(ctx, studentID, courseID, sessionID)
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info().Str("session_id", sessionID.String()).Str("student_id", studentID.String()).Msg("monitoring started")
	}
	return a, nil
}

// Live returns the monitored row for the session, or nil when the session is
// not being monitored.
func (r *SessionRegistry) Live(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	a, err := r.store.GetLive(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load monitored session: %w", err)
	}
	return a, nil
}

// Stop ends the episode. It returns nil without error when the session was
// not being monitored.
func (r *SessionRegistry) Stop(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	a, err := r.store.Stop(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stop monitoring: %w", err)
	}
	r.logger.Info().Str("session_id", sessionID.String()).Msg("monitoring stopped")
	return a, nil
}

type ModelProvider interface {
	GetOrBuild(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error)
}

type FocusAlerter interface {
	CreateFocusLossAlert(ctx context.Context, in FocusLossInput) ([]*models.Alert, error)
}

// FocusMonitor scans live sessions and alerts once per episode when elapsed
// time reaches 75% of the student's focus-loss minute. It keeps no state
// between ticks.
type FocusMonitor struct {
	sessions ActiveSessionStore
	provider ModelProvider
	alerter  FocusAlerter
	logger   zerolog.Logger
	now      func() time.Time
}

func NewFocusMonitor(sessions ActiveSessionStore, provider ModelProvider, alerter FocusAlerter, logger *zerolog.Logger) *FocusMonitor {
	return &FocusMonitor{
		sessions: sessions,
		provider: provider,
		alerter:  alerter,
		logger:   logger.With().Str("component", "focus_monitor").Logger(),
		now:      time.Now,
	}
}

// Tick runs one full scan. Failures on a single session are logged and
// counted, and the scan moves on.
func (m *FocusMonitor) Tick(ctx context.Context) (models.TickResult, error) {
	var res models.TickResult

	active, err := m.sessions.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list active sessions: %w", err)
	}
	metrics.ActiveSessionsScanned.Set(float64(len(active)))

	for _, a := range active {
		if ctx.Err() != nil {
			break
		}
		res.SessionsChecked++

		fired, err := m.check(ctx, a)
		if err != nil {
			res.Errors++
			metrics.MonitorItemErrors.Inc()
			m.logger.Error().Err(err).
				Str("active_session_id", a.ID.String()).
				Str("session_id", a.SessionID.String()).
				Msg("focus check failed")
			continue
		}
		if fired {
			res.AlertsTriggered++
		}
	}

	m.logger.Info().
		Int("sessions_checked", res.SessionsChecked).
		Int("alerts_triggered", res.AlertsTriggered).
		Int("errors", res.Errors).
		Msg("focus monitor tick complete")
	return res, nil
}

// check evaluates one session and reports whether it fired an alert.
func (m *FocusMonitor) check(ctx context.Context, a models.ActiveSession) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if a.Alerted() {
		return false, nil
	}

	// Postgres keeps microseconds; the claim is released by exact match.
	now := m.now().UTC().Truncate(time.Microsecond)
	elapsed := a.ElapsedMinutes(now)

	courseID := a.CourseID
	model, err := m.provider.GetOrBuild(ctx, a.StudentID, &courseID)
	if err != nil {
		return false, fmt.Errorf("failed to get focus model: %w", err)
	}
	threshold := model.ThresholdMinutes()
	alertAt := float64(threshold) * alertThresholdRatio
	if elapsed < alertAt {
		return false, nil
	}

	claimed, err := m.sessions.ClaimAlert(ctx, a.ID, now)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another tick or a stop got here first.
		return false, nil
	}

	_, err = m.alerter.CreateFocusLossAlert(ctx, FocusLossInput{
		Session:               a,
		ElapsedMinutes:        int(math.Floor(elapsed)),
		ThresholdMinutes:      threshold,
		AlertThresholdMinutes: int(math.Round(alertAt)),
	})
	if err != nil {
		if relErr := m.sessions.ReleaseAlert(ctx, a.ID, now); relErr != nil {
			m.logger.Error().Err(relErr).Str("active_session_id", a.ID.String()).Msg("failed to release alert claim")
		}
		return false, err
	}

	m.logger.Info().
		Str("session_id", a.SessionID.String()).
		Str("student_id", a.StudentID.String()).
		Float64("elapsed_minutes", math.Round(elapsed*10)/10).
		Int("threshold_minutes", threshold).
		Msg("focus-loss alert fired")
	return true, nil
}
