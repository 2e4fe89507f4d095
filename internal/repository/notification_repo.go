package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

const notificationColumns = `id, alert_id, recipient_id, channel, status, attempts, error_message,
	provider_message_id, created_at, sent_at`

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(
		&n.ID, &n.AlertID, &n.RecipientID, &n.Channel, &n.Status, &n.Attempts,
		&n.ErrorMessage, &n.ProviderMessageID, &n.CreatedAt, &n.SentAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Enqueue inserts a pending item for the (alert, recipient, channel) triple.
// If the triple already exists the stored row is returned and created is false.
func (r *NotificationRepo) Enqueue(ctx context.Context, alertID, recipientID uuid.UUID, channel models.Channel) (*models.Notification, bool, error) {
	return enqueueNotification(ctx, r.pool, alertID, recipientID, channel)
}

// enqueueNotification is the single insert path for queue items, shared by
// Enqueue and the alert transaction.
func enqueueNotification(ctx context.Context, q rowQuerier, alertID, recipientID uuid.UUID, channel models.Channel) (*models.Notification, bool, error) {
	n, err := scanNotification(q.QueryRow(ctx, `
		INSERT INTO notification_queue (alert_id, recipient_id, channel)
		VALUES ($1, $2, $3)
		ON CONFLICT (alert_id, recipient_id, channel) DO NOTHING
		RETURNING `+notificationColumns, alertID, recipientID, channel))
	if err == nil {
		return n, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	n, err = scanNotification(q.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notification_queue
		WHERE alert_id = $1 AND recipient_id = $2 AND channel = $3`, alertID, recipientID, channel))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing notification: %w", notFound(err))
	}
	return n, false, nil
}

// ListPending returns up to limit pending items in enqueue order.
func (r *NotificationRepo) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notification_queue
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	items := make([]models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

// MarkSent records a successful delivery. Items no longer pending are left as
// they are and ErrNotFound is returned.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = 'sent', attempts = attempts + 1, provider_message_id = $2,
			error_message = NULL, sent_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, providerMessageID)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a failed delivery with its reason. Failed items are not retried.
func (r *NotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET status = 'failed', attempts = attempts + 1, error_message = $2
		WHERE id = $1 AND status = 'pending'`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
