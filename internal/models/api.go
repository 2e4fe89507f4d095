package models

import "github.com/google/uuid"

// UserUpdatesChannel is the pub/sub channel carrying live events for one user.
func UserUpdatesChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// WebSocket message envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const WSTypeAlert = "alert"

// AlertEvent is pushed to connected clients when an in-app alert is delivered.
type AlertEvent struct {
	AlertID   string `json:"alert_id"`
	AlertType string `json:"alert_type"`
	StudentID string `json:"student_id"`
	Message   string `json:"message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
