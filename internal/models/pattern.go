package models

import (
	"time"

	"github.com/google/uuid"
)

// PatternReport aggregates a student's session history over a window.
type PatternReport struct {
	StudentID              uuid.UUID   `json:"student_id"`
	CourseID               *uuid.UUID  `json:"course_id"`
	DaysBack               int         `json:"days_back"`
	WindowStart            time.Time   `json:"window_start"`
	WindowEnd              time.Time   `json:"window_end"`
	SessionCount           int         `json:"session_count"`
	TotalMinutes           int         `json:"total_minutes"`
	PeakHours              []HourStat  `json:"peak_hours"`
	Distractions           []TagCount  `json:"distractions"`
	MoodDistribution       []MoodShare `json:"mood_distribution"`
	AverageDurationMinutes int         `json:"average_duration_minutes"`
	Confidence             float64     `json:"confidence"`
}

// HourStat is the study volume that started in one UTC hour of the day.
type HourStat struct {
	Hour         int `json:"hour"`
	TotalMinutes int `json:"total_minutes"`
	SessionCount int `json:"session_count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type MoodShare struct {
	Mood       string  `json:"mood"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
