package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

const alertColumns = `id, recipient_id, student_id, course_id, session_id, alert_type, trigger_detail, status, created_at`

func scanAlert(row scanner) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(
		&a.ID, &a.RecipientID, &a.StudentID, &a.CourseID, &a.SessionID,
		&a.Type, &a.TriggerDetail, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func insertAlert(ctx context.Context, q rowQuerier, a *models.Alert) error {
	return q.QueryRow(ctx, `
		INSERT INTO alerts (recipient_id, student_id, course_id, session_id, alert_type, trigger_detail, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.RecipientID, a.StudentID, a.CourseID, a.SessionID, a.Type, []byte(a.TriggerDetail), a.Status,
	).Scan(&a.ID, &a.CreatedAt)
}

// CreateWithNotifications inserts each alert together with its first queue
// item on the given channel in a single transaction.
func (r *AlertRepo) CreateWithNotifications(ctx context.Context, alerts []*models.Alert, channel models.Channel) ([]*models.Notification, error) {
	var queued []*models.Notification
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		queued = make([]*models.Notification, 0, len(alerts))
		for _, a := range alerts {
			if a.Status == "" {
				a.Status = models.AlertStatusQueued
			}
			if err := insertAlert(ctx, tx, a); err != nil {
				return fmt.Errorf("failed to insert alert: %w", err)
			}
			n, _, err := enqueueNotification(ctx, tx, a.ID, a.RecipientID, channel)
			if err != nil {
				return err
			}
			queued = append(queued, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queued, nil
}

func (r *AlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListForRecipient returns the recipient's newest alerts first.
func (r *AlertRepo) ListForRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE alerts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}
	return nil
}
