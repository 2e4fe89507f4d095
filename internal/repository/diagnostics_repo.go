package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

// DiagnosticsRepo runs the cross-table aggregate queries behind the system
// diagnostics report.
type DiagnosticsRepo struct {
	pool *pgxpool.Pool
}

func NewDiagnosticsRepo(pool *pgxpool.Pool) *DiagnosticsRepo {
	return &DiagnosticsRepo{pool: pool}
}

func (r *DiagnosticsRepo) ModelStats(ctx context.Context) (models.ModelStats, error) {
	var s models.ModelStats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), MAX(last_trained_at) FROM focus_models`).Scan(&s.Count, &s.LastTrainedAt)
	if err != nil {
		return s, fmt.Errorf("failed to read model stats: %w", err)
	}
	return s, nil
}

func (r *DiagnosticsRepo) CountAlertsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

func (r *DiagnosticsRepo) NotificationCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM notification_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		models.NotificationPending: 0,
		models.NotificationSent:    0,
		models.NotificationFailed:  0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *DiagnosticsRepo) DataQuality(ctx context.Context) (models.DataQuality, error) {
	var q models.DataQuality
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE mood IS NULL OR BTRIM(mood) = ''),
			COUNT(*) FILTER (WHERE distractions IS NULL OR BTRIM(distractions) = '')
		FROM study_sessions
		WHERE NOT is_deleted`).Scan(&q.TotalSessions, &q.MissingMood, &q.MissingDistractions)
	if err != nil {
		return q, fmt.Errorf("failed to check data quality: %w", err)
	}
	return q, nil
}

// ActiveSessionCounts returns live monitoring rows and how many of them
// started before staleBefore.
func (r *DiagnosticsRepo) ActiveSessionCounts(ctx context.Context, staleBefore time.Time) (active, stale int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE started_at < $1)
		FROM active_sessions
		WHERE is_active`, staleBefore).Scan(&active, &stale)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return active, stale, nil
}
