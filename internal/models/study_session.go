package models

import (
	"time"

	"github.com/google/uuid"
)

type StudySession struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"student_id"`
	CourseID        uuid.UUID `json:"course_id"`
	CourseName      string    `json:"course_name,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Mood            *string   `json:"mood"`
	Distractions    *string   `json:"distractions"` // comma-separated free-form tags
	IsDeleted       bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// MoodLabel returns the trimmed mood or "" when none was recorded.
func (s StudySession) MoodLabel() string {
	if s.Mood == nil {
		return ""
	}
	return trimLower(*s.Mood)
}

// DistractionTags splits the distraction list, trimming blanks.
func (s StudySession) DistractionTags() []string {
	if s.Distractions == nil {
		return nil
	}
	return SplitTags(*s.Distractions)
}
