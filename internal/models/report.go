package models

import (
	"encoding/json"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type ReportType string

const (
	ReportWeekly            ReportType = "weekly"
	ReportMonthly           ReportType = "monthly"
	ReportInstructorSummary ReportType = "instructor_summary"
	ReportSystemDiagnostics ReportType = "system_diagnostics"
)

// Report is an append-only snapshot of a generated report.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	Type        ReportType      `json:"report_type"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	CourseID    *uuid.UUID      `json:"course_id"`
	PeriodStart *time.Time      `json:"period_start"`
	PeriodEnd   *time.Time      `json:"period_end"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReportPayload is implemented by every typed report body.
type ReportPayload interface {
	ReportType() ReportType
}

// EncodeReportPayload serializes a typed report body for storage.
func EncodeReportPayload(p ReportPayload) (json.RawMessage, error) {
	raw, err := gojson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s report: %w", p.ReportType(), err)
	}
	return raw, nil
}

// DecodeReportPayload parses a stored report body according to its type.
func DecodeReportPayload(t ReportType, raw []byte) (ReportPayload, error) {
	var p ReportPayload
	switch t {
	case ReportWeekly:
		p = &WeeklyReport{}
	case ReportMonthly:
		p = &MonthlyReport{}
	case ReportInstructorSummary:
		p = &InstructorSummary{}
	case ReportSystemDiagnostics:
		p = &SystemDiagnostics{}
	default:
		return nil, fmt.Errorf("unknown report type %q", t)
	}
	if err := gojson.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s report: %w", t, err)
	}
	return p, nil
}

type DailyMinutes struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Minutes int    `json:"minutes"`
}

type CourseHours struct {
	CourseID   uuid.UUID `json:"course_id"`
	CourseName string    `json:"course_name"`
	Hours      float64   `json:"hours"`
	Sessions   int       `json:"sessions"`
}

type Recommendation struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type WeeklySummary struct {
	TotalHours            float64 `json:"total_hours"`
	SessionsCount         int     `json:"sessions_count"`
	FocusScore            float64 `json:"focus_score"`
	AverageSessionMinutes int     `json:"average_session_minutes"`
	StudyDays             int     `json:"study_days"`
	WeeklyGoalHours       float64 `json:"weekly_goal_hours"`
	GoalProgressPercent   float64 `json:"goal_progress_percent"`
}

type WeeklyReport struct {
	StudentID       uuid.UUID        `json:"student_id"`
	WeekStart       string           `json:"week_start"`
	WeekEnd         string           `json:"week_end"`
	DailyMinutes    []DailyMinutes   `json:"daily_minutes"`
	Summary         WeeklySummary    `json:"summary"`
	PeakHours       []HourStat       `json:"peak_hours"`
	TopCourses      []CourseHours    `json:"top_courses"`
	Distractions    []TagCount       `json:"distractions"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

func (*WeeklyReport) ReportType() ReportType { return ReportWeekly }

type WeekTotal struct {
	WeekStart string `json:"week_start"`
	Minutes   int    `json:"minutes"`
}

type MonthlySummary struct {
	TotalHours            float64  `json:"total_hours"`
	SessionsCount         int      `json:"sessions_count"`
	FocusScore            float64  `json:"focus_score"`
	AverageSessionMinutes int      `json:"average_session_minutes"`
	StudyDays             int      `json:"study_days"`
	PreviousMonthHours    float64  `json:"previous_month_hours"`
	ChangePercent         *float64 `json:"change_percent"`
}

type MonthlyReport struct {
	StudentID       uuid.UUID        `json:"student_id"`
	Month           string           `json:"month"` // YYYY-MM
	DailyMinutes    []DailyMinutes   `json:"daily_minutes"`
	WeeklyTotals    []WeekTotal      `json:"weekly_totals"`
	Summary         MonthlySummary   `json:"summary"`
	TopCourses      []CourseHours    `json:"top_courses"`
	Distractions    []TagCount       `json:"distractions"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

func (*MonthlyReport) ReportType() ReportType { return ReportMonthly }

const (
	RangeWeek  = "week"
	RangeMonth = "month"
)

type AtRiskStudent struct {
	StudentID     uuid.UUID `json:"student_id"`
	FullName      string    `json:"full_name"`
	WeeklyHours   float64   `json:"weekly_hours"`
	FocusScore    float64   `json:"focus_score"`
	SessionsCount int       `json:"sessions_count"`
	Reasons       []string  `json:"reasons"`
}

type InstructorMetrics struct {
	AverageHoursPerStudent float64         `json:"average_hours_per_student"`
	AverageFocusScore      float64         `json:"average_focus_score"`
	ActiveStudents         int             `json:"active_students"`
	AtRiskStudents         []AtRiskStudent `json:"at_risk_students"`
	DailyEngagement        []DailyMinutes  `json:"daily_engagement"`
	CommonDistractions     []TagCount      `json:"common_distractions"`
}

// InstructorSummary carries either a privacy notice or the full metrics,
// never both.
type InstructorSummary struct {
	CourseID         uuid.UUID          `json:"course_id"`
	CourseName       string             `json:"course_name"`
	InstructorID     uuid.UUID          `json:"instructor_id"`
	Range            string             `json:"range"`
	PeriodStart      string             `json:"period_start"`
	PeriodEnd        string             `json:"period_end"`
	EnrolledStudents int                `json:"enrolled_students"`
	PrivacyNotice    string             `json:"privacy_notice,omitempty"`
	Metrics          *InstructorMetrics `json:"metrics,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

func (*InstructorSummary) ReportType() ReportType { return ReportInstructorSummary }

type ModelStats struct {
	Count         int        `json:"count"`
	LastTrainedAt *time.Time `json:"last_trained_at"`
}

type DataQuality struct {
	TotalSessions       int `json:"total_sessions"`
	MissingMood         int `json:"missing_mood"`
	MissingDistractions int `json:"missing_distractions"`
}

type SystemDiagnostics struct {
	RequestedBy         uuid.UUID      `json:"requested_by"`
	FocusModels         ModelStats     `json:"focus_models"`
	AlertsLast7Days     int            `json:"alerts_last_7_days"`
	Notifications       map[string]int `json:"notifications"`
	DataQuality         DataQuality    `json:"data_quality"`
	ActiveSessions      int            `json:"active_sessions"`
	StaleActiveSessions int            `json:"stale_active_sessions"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

func (*SystemDiagnostics) ReportType() ReportType { return ReportSystemDiagnostics }
