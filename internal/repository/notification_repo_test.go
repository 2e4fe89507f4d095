package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypulse-backend/internal/models"
)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

func errRow(err error) pgx.Row {
	return rowFunc(func(...any) error { return err })
}

func notificationRow(n models.Notification) pgx.Row {
	return rowFunc(func(dest ...any) error {
		*dest[0].(*uuid.UUID) = n.ID
		*dest[1].(*uuid.UUID) = n.AlertID
		*dest[2].(*uuid.UUID) = n.RecipientID
		*dest[3].(*models.Channel) = n.Channel
		*dest[4].(*string) = n.Status
		*dest[5].(*int) = n.Attempts
		*dest[6].(**string) = n.ErrorMessage
		*dest[7].(**string) = n.ProviderMessageID
		*dest[8].(*time.Time) = n.CreatedAt
		*dest[9].(**time.Time) = n.SentAt
		return nil
	})
}

// scriptedQuerier answers QueryRow calls with rows in order.
type scriptedQuerier struct {
	queries []string
	rows    []pgx.Row
}

func (q *scriptedQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	row := q.rows[0]
	q.rows = q.rows[1:]
	return row
}

func pendingItem(alertID, recipientID uuid.UUID) models.Notification {
	return models.Notification{
		ID: uuid.New(), AlertID: alertID, RecipientID: recipientID, Channel: models.ChannelInApp,
		Status: models.NotificationPending, CreatedAt: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestEnqueueNotification_InsertsWithConflictGuard(t *testing.T) {
	alertID, recipientID := uuid.New(), uuid.New()
	item := pendingItem(alertID, recipientID)
	q := &scriptedQuerier{rows: []pgx.Row{notificationRow(item)}}

	n, created, err := enqueueNotification(context.Background(), q, alertID, recipientID, models.ChannelInApp)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, item.ID, n.ID)
	require.Len(t, q.queries, 1)
	assert.Contains(t, q.queries[0], "ON CONFLICT (alert_id, recipient_id, channel) DO NOTHING")
}

func TestEnqueueNotification_ReturnsExistingRow(t *testing.T) {
	alertID, recipientID := uuid.New(), uuid.New()
	existing := pendingItem(alertID, recipientID)
	q := &scriptedQuerier{rows: []pgx.Row{errRow(pgx.ErrNoRows), notificationRow(existing)}}

	n, created, err := enqueueNotification(context.Background(), q, alertID, recipientID, models.ChannelInApp)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, n.ID)
	require.Len(t, q.queries, 2)
	assert.Contains(t, q.queries[1], "SELECT")
}

func TestEnqueueNotification_Errors(t *testing.T) {
	q := &scriptedQuerier{rows: []pgx.Row{errRow(errors.New("connection reset"))}}
	_, _, err := enqueueNotification(context.Background(), q, uuid.New(), uuid.New(), models.ChannelEmail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, q.queries, 1)

	q = &scriptedQuerier{rows: []pgx.Row{errRow(pgx.ErrNoRows), errRow(pgx.ErrNoRows)}}
	_, _, err = enqueueNotification(context.Background(), q, uuid.New(), uuid.New(), models.ChannelEmail)
	assert.ErrorIs(t, err, ErrNotFound)
}
