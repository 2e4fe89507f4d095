package models

import (
	"time"

	"github.com/google/uuid"
)

// ActiveSession is a study session currently watched by the focus monitor.
// At most one row per SessionID has IsActive set.
type ActiveSession struct {
	ID              uuid.UUID  `json:"id"`
	StudentID       uuid.UUID  `json:"student_id"`
	CourseID        uuid.UUID  `json:"course_id"`
	SessionID       uuid.UUID  `json:"session_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	IsActive        bool       `json:"is_active"`
	LastAlertSentAt *time.Time `json:"last_alert_sent_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Alerted reports whether this monitoring episode already fired its alert.
func (a *ActiveSession) Alerted() bool {
	return a.LastAlertSentAt != nil
}

// ElapsedMinutes is the fractional number of minutes since the session started.
func (a *ActiveSession) ElapsedMinutes(now time.Time) float64 {
	return now.Sub(a.StartedAt).Minutes()
}
