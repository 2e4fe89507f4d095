package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultFocusLossMinutes = 60
	DefaultFocusConfidence  = 0.50
	MinFocusLossMinutes     = 30
	MaxFocusLossMinutes     = 120
	MaxFocusConfidence      = 0.95
)

// FocusModel predicts the elapsed minute at which a student's focus typically
// degrades. CourseID is nil for the student's global model.
type FocusModel struct {
	ID                      uuid.UUID  `json:"id"`
	StudentID               uuid.UUID  `json:"student_id"`
	CourseID                *uuid.UUID `json:"course_id"`
	TypicalFocusLossMinutes int        `json:"typical_focus_loss_minutes"`
	Confidence              float64    `json:"confidence"`
	SessionsAnalyzed        int        `json:"sessions_analyzed"`
	IsDefault               bool       `json:"is_default"`
	LastTrainedAt           *time.Time `json:"last_trained_at"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// DefaultFocusModel is returned when there is not enough history to build a model.
func DefaultFocusModel(studentID uuid.UUID, courseID *uuid.UUID, sessions int) *FocusModel {
	return &FocusModel{
		StudentID:               studentID,
		CourseID:                courseID,
		TypicalFocusLossMinutes: DefaultFocusLossMinutes,
		Confidence:              DefaultFocusConfidence,
		SessionsAnalyzed:        sessions,
		IsDefault:               true,
	}
}

// ThresholdMinutes is the focus-loss minute, falling back to the default for
// missing or zero models.
func (m *FocusModel) ThresholdMinutes() int {
	if m == nil || m.TypicalFocusLossMinutes <= 0 {
		return DefaultFocusLossMinutes
	}
	return m.TypicalFocusLossMinutes
}
