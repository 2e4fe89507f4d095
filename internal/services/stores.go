package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studypulse-backend/internal/models"
)

// Storage ports. The repository package implements these against Postgres;
// tests use in-memory fakes. Lookups that find nothing return
// repository.ErrNotFound.

type SessionStore interface {
	ListForStudent(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID, from, to time.Time) ([]models.StudySession, error)
	ListForCourse(ctx context.Context, courseID uuid.UUID, from, to time.Time) ([]models.StudySession, error)
}

type ActiveSessionStore interface {
	Start(ctx context.Context, studentID, courseID, sessionID uuid.UUID) (*models.ActiveSession, bool, error)
	GetLive(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error)
	Stop(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error)
	ListActive(ctx context.Context) ([]models.ActiveSession, error)
	ClaimAlert(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseAlert(ctx context.Context, id uuid.UUID, at time.Time) error
}

type FocusModelStore interface {
	Get(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error)
	Upsert(ctx context.Context, m *models.FocusModel) error
}

type AlertStore interface {
	CreateWithNotifications(ctx context.Context, alerts []*models.Alert, channel models.Channel) ([]*models.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Alert, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type NotificationStore interface {
	Enqueue(ctx context.Context, alertID, recipientID uuid.UUID, channel models.Channel) (*models.Notification, bool, error)
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]models.User, error)
}

type ReportStore interface {
	Create(ctx context.Context, r *models.Report) error
}

type DiagnosticsStore interface {
	ModelStats(ctx context.Context) (models.ModelStats, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int, error)
	NotificationCounts(ctx context.Context) (map[string]int, error)
	DataQuality(ctx context.Context) (models.DataQuality, error)
	ActiveSessionCounts(ctx context.Context, staleBefore time.Time) (active, stale int, err error)
}
