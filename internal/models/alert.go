package models

import (
	"encoding/json"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type AlertType string

const (
	AlertTypeFocusLossApproaching AlertType = "focus-loss-approaching"
	AlertTypeTest                 AlertType = "test"
)

const (
	AlertStatusQueued = "queued"
	AlertStatusSent   = "sent"
	AlertStatusFailed = "failed"
)

type Alert struct {
	ID            uuid.UUID       `json:"id"`
	RecipientID   uuid.UUID       `json:"recipient_id"`
	StudentID     uuid.UUID       `json:"student_id"`
	CourseID      *uuid.UUID      `json:"course_id"`
	SessionID     *uuid.UUID      `json:"session_id"`
	Type          AlertType       `json:"alert_type"`
	TriggerDetail json.RawMessage `json:"trigger_detail"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AlertDetail is the typed trigger payload carried by an alert. Each alert type
// has exactly one detail shape.
type AlertDetail interface {
	AlertType() AlertType
}

type FocusLossDetail struct {
	ElapsedMinutes        int    `json:"elapsed_minutes"`
	ThresholdMinutes      int    `json:"threshold_minutes"`
	AlertThresholdMinutes int    `json:"alert_threshold_minutes"`
	Message               string `json:"message"`
}

func (FocusLossDetail) AlertType() AlertType { return AlertTypeFocusLossApproaching }

type TestAlertDetail struct {
	Message     string    `json:"message"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

func (TestAlertDetail) AlertType() AlertType { return AlertTypeTest }

// EncodeAlertDetail serializes the detail for storage.
func EncodeAlertDetail(d AlertDetail) (json.RawMessage, error) {
	if d == nil {
		return nil, fmt.Errorf("alert detail is required")
	}
	raw, err := gojson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s detail: %w", d.AlertType(), err)
	}
	return raw, nil
}

// DecodeAlertDetail parses a stored detail according to the alert type.
func DecodeAlertDetail(t AlertType, raw []byte) (AlertDetail, error) {
	switch t {
	case AlertTypeFocusLossApproaching:
		var d FocusLossDetail
		if err := gojson.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode %s detail: %w", t, err)
		}
		return d, nil
	case AlertTypeTest:
		var d TestAlertDetail
		if err := gojson.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode %s detail: %w", t, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown alert type %q", t)
	}
}

// Detail decodes the alert's stored trigger detail.
func (a *Alert) Detail() (AlertDetail, error) {
	return DecodeAlertDetail(a.Type, a.TriggerDetail)
}

// Message returns the human-readable text carried by the alert detail.
func (a *Alert) Message() string {
	d, err := a.Detail()
	if err != nil {
		return ""
	}
	switch v := d.(type) {
	case FocusLossDetail:
		return v.Message
	case TestAlertDetail:
		return v.Message
	}
	return ""
}
