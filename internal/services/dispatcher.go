package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/metrics"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

const DefaultDispatchBatch = 100

// Dispatcher drains pending queue items in enqueue order. An attempted item
// ends as sent or failed; failed items are never retried automatically. Items
// a channel defers stay pending for the next dispatch.
type Dispatcher struct {
	queue    NotificationStore
	alerts   AlertStore
	users    UserStore
	channels *ChannelRegistry
	batch    int
	logger   zerolog.Logger
}

func NewDispatcher(queue NotificationStore, alerts AlertStore, users UserStore, channels *ChannelRegistry, batch int, logger *zerolog.Logger) *Dispatcher {
	if batch <= 0 {
		batch = DefaultDispatchBatch
	}
	return &Dispatcher{
		queue:    queue,
		alerts:   alerts,
		users:    users,
		channels: channels,
		batch:    batch,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// DispatchPending processes pending items page by page until the queue is
// drained or a page only repeats items already handled in this call. Once a
// channel defers an item, the rest of that channel's items are left pending.
func (d *Dispatcher) DispatchPending(ctx context.Context) (models.DispatchResult, error) {
	var res models.DispatchResult
	seen := make(map[uuid.UUID]struct{})
	deferred := make(map[models.Channel]bool)

	for ctx.Err() == nil {
		items, err := d.queue.ListPending(ctx, d.batch)
		if err != nil {
			return res, fmt.Errorf("failed to load pending notifications: %w", err)
		}

		fresh := 0
		for _, n := range items {
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			fresh++

			if deferred[n.Channel] || ctx.Err() != nil {
				res.Deferred++
				continue
			}

			err := d.dispatchOne(ctx, n)
			switch {
			case errors.Is(err, ErrDeliveryDeferred):
				deferred[n.Channel] = true
				res.Deferred++
				d.logger.Info().Err(err).
					Str("channel", string(n.Channel)).
					Msg("channel deferred, leaving remaining items pending")
			case err != nil:
				res.Processed++
				res.Failed++
				metrics.NotificationsDispatched.WithLabelValues(string(n.Channel), models.NotificationFailed).Inc()
				d.logger.Warn().Err(err).
					Str("notification_id", n.ID.String()).
					Str("channel", string(n.Channel)).
					Msg("notification delivery failed")
			default:
				res.Processed++
				res.Succeeded++
				metrics.NotificationsDispatched.WithLabelValues(string(n.Channel), models.NotificationSent).Inc()
			}
		}

		if len(items) < d.batch || fresh == 0 {
			break
		}
	}

	d.logger.Info().
		Int("processed", res.Processed).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Int("deferred", res.Deferred).
		Msg("notification dispatch complete")
	return res, nil
}

// dispatchOne delivers a single item and records its final status. Any error
// or panic marks the item failed, except a deferral or a cancelled context,
// which leave it pending.
func (d *Dispatcher) dispatchOne(ctx context.Context, n models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during delivery: %v", r)
		}
		if err == nil || errors.Is(err, ErrDeliveryDeferred) {
			return
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ErrDeliveryDeferred, err)
			return
		}
		d.markFailed(ctx, n, err.Error())
	}()

	ch, ok := d.channels.Get(n.Channel)
	if !ok {
		return fmt.Errorf("unsupported channel %q", n.Channel)
	}

	alert, err := d.alerts.GetByID(ctx, n.AlertID)
	if err != nil {
		return fmt.Errorf("failed to load alert: %w", err)
	}

	delivery := Delivery{Notification: n, Alert: alert}
	if ch.RequiresRecipient() {
		recipient, err := d.users.GetByID(ctx, n.RecipientID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("recipient not found")
		}
		if err != nil {
			return fmt.Errorf("failed to load recipient: %w", err)
		}
		delivery.Recipient = recipient
	}

	result, err := ch.Send(ctx, delivery)
	if err != nil {
		return err
	}

	var providerID *string
	if result.ProviderMessageID != "" {
		providerID = &result.ProviderMessageID
	}
	if err := d.queue.MarkSent(ctx, n.ID, providerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already resolved by an overlapping dispatch.
			return nil
		}
		return fmt.Errorf("failed to mark sent: %w", err)
	}
	if err := d.alerts.UpdateStatus(ctx, n.AlertID, models.AlertStatusSent); err != nil {
		d.logger.Warn().Err(err).Str("alert_id", n.AlertID.String()).Msg("failed to update alert status")
	}
	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, n models.Notification, reason string) {
	if err := d.queue.MarkFailed(ctx, n.ID, reason); err != nil && !errors.Is(err, repository.ErrNotFound) {
		d.logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to mark notification failed")
		return
	}
	if err := d.alerts.UpdateStatus(ctx, n.AlertID, models.AlertStatusFailed); err != nil {
		d.logger.Warn().Err(err).Str("alert_id", n.AlertID.String()).Msg("failed to update alert status")
	}
}
