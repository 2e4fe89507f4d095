package models

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// Valid reports whether c names a supported delivery channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelInApp
}

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is one queued delivery of an alert. (AlertID, RecipientID,
// Channel) is unique so enqueueing is idempotent.
type Notification struct {
	ID                uuid.UUID  `json:"id"`
	AlertID           uuid.UUID  `json:"alert_id"`
	RecipientID       uuid.UUID  `json:"recipient_id"`
	Channel           Channel    `json:"channel"`
	Status            string     `json:"status"`
	Attempts          int        `json:"attempts"`
	ErrorMessage      *string    `json:"error_message"`
	ProviderMessageID *string    `json:"provider_message_id"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at"`
}

// DispatchResult summarizes one dispatch batch.
type DispatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Deferred items were not attempted and stay pending.
	Deferred  int `json:"deferred"`
}

// TickResult summarizes one focus monitor pass.
type TickResult struct {
	SessionsChecked int `json:"sessions_checked"`
	AlertsTriggered int `json:"alerts_triggered"`
	Errors          int `json:"errors"`
}
