package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

type ActiveSessionRepo struct {
	pool *pgxpool.Pool
}

func NewActiveSessionRepo(pool *pgxpool.Pool) *ActiveSessionRepo {
	return &ActiveSessionRepo{pool: pool}
}

const activeSessionColumns = `id, student_id, course_id, session_id, started_at, ended_at, is_active, last_alert_sent_at, created_at`

func scanActiveSession(row scanner) (*models.ActiveSession, error) {
	a := &models.ActiveSession{}
	err := row.Scan(
		&a.ID, &a.StudentID, &a.CourseID, &a.SessionID, &a.StartedAt,
		&a.EndedAt, &a.IsActive, &a.LastAlertSentAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Start opens a monitoring row for the session. When one is already live it is
// returned unchanged and created is false.
func (r *ActiveSessionRepo) Start(ctx context.Context, studentID, courseID, sessionID uuid.UUID) (*models.ActiveSession, bool, error) {
	a, err := scanActiveSession(r.pool.QueryRow(ctx, `
		INSERT INTO active_sessions (student_id, course_id, session_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) WHERE is_active DO NOTHING
		RETURNING `+activeSessionColumns, studentID, courseID, sessionID))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to start monitoring: %w", err)
	}

	a, err = r.GetLive(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

func (r *ActiveSessionRepo) GetLive(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	a, err := scanActiveSession(r.pool.QueryRow(ctx, `
		SELECT `+activeSessionColumns+`
		FROM active_sessions
		WHERE session_id = $1 AND is_active`, sessionID))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Stop closes the live row for the session. Returns ErrNotFound when nothing
// was being monitored.
func (r *ActiveSessionRepo) Stop(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error) {
	a, err := scanActiveSession(r.pool.QueryRow(ctx, `
		UPDATE active_sessions
		SET is_active = FALSE, ended_at = NOW()
		WHERE session_id = $1 AND is_active
		RETURNING `+activeSessionColumns, sessionID))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListActive returns every live row in start order.
func (r *ActiveSessionRepo) ListActive(ctx context.Context) ([]models.ActiveSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activeSessionColumns+`
		FROM active_sessions
		WHERE is_active
		ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.ActiveSession, 0)
	for rows.Next() {
		a, err := scanActiveSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *a)
	}
	return sessions, rows.Err()
}

// ClaimAlert atomically marks the episode as alerted. It returns false when
// another tick already claimed it or the session stopped in the meantime.
func (r *ActiveSessionRepo) ClaimAlert(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE active_sessions
		SET last_alert_sent_at = $2
		WHERE id = $1 AND is_active AND last_alert_sent_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseAlert undoes a claim made at the given instant.
func (r *ActiveSessionRepo) ReleaseAlert(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE active_sessions
		SET last_alert_sent_at = NULL
		WHERE id = $1 AND last_alert_sent_at = $2`, id, at)
	if err != nil {
		return fmt.Errorf("failed to release alert claim: %w", err)
	}
	return nil
}
