package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/metrics"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

const (
	DefaultWeeklyGoalHours     = 10.0
	DefaultInstructorMinCohort = 5
	atRiskWeeklyHours          = 3.0
	staleActiveSessionAge      = 12 * time.Hour
	topCourseCount             = 3
	dateLayout                 = "2006-01-02"
)

type ReportConfig struct {
	WeeklyGoalHours     float64
	InstructorMinCohort int
}

type ReportService struct {
	sessions SessionStore
	users    UserStore
	reports  ReportStore
	diag     DiagnosticsStore
	cfg      ReportConfig
	logger   zerolog.Logger
	now      func() time.Time
}

func NewReportService(sessions SessionStore, users UserStore, reports ReportStore, diag DiagnosticsStore, cfg ReportConfig, logger *zerolog.Logger) *ReportService {
	if cfg.WeeklyGoalHours <= 0 {
		cfg.WeeklyGoalHours = DefaultWeeklyGoalHours
	}
	if cfg.InstructorMinCohort <= 0 {
		cfg.InstructorMinCohort = DefaultInstructorMinCohort
	}
	return &ReportService{
		sessions: sessions,
		users:    users,
		reports:  reports,
		diag:     diag,
		cfg:      cfg,
		logger:   logger.With().Str("component", "reports").Logger(),
		now:      time.Now,
	}
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := startOfDay(t.UTC())
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of t's month at 00:00 UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// periodEnd is the last representable instant before next; Postgres stores
// microseconds.
func periodEnd(next time.Time) time.Time {
	return next.Add(-time.Microsecond)
}

// Weekly builds and stores the student's report for the week containing
// weekStart, or the current week when nil.
func (s *ReportService) Weekly(ctx context.Context, studentID uuid.UUID, weekStart *time.Time) (*models.WeeklyReport, error) {
	ref := s.now()
	if weekStart != nil {
		ref = *weekStart
	}
	from := WeekStart(ref)
	next := from.AddDate(0, 0, 7)

	sessions, err := s.sessions.ListForStudent(ctx, studentID, nil, from, periodEnd(next))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	stats := AnalyzeSessions(sessions)
	daily := dailyMinutes(sessions, from, 7)
	days := studyDays(daily)
	totalHours := minutesToHours(stats.TotalMinutes)
	focus := FocusScore(sessions)
	distractions := topTags(distractionCounts(sessions), topDistractions)

	report := &models.WeeklyReport{
		StudentID:    studentID,
		WeekStart:    from.Format(dateLayout),
		WeekEnd:      next.AddDate(0, 0, -1).Format(dateLayout),
		DailyMinutes: daily,
		Summary: models.WeeklySummary{
			TotalHours:            totalHours,
			SessionsCount:         stats.SessionCount,
			FocusScore:            focus,
			AverageSessionMinutes: stats.AverageDurationMinutes,
			StudyDays:             days,
			WeeklyGoalHours:       s.cfg.WeeklyGoalHours,
			GoalProgressPercent:   math.Min(100, round1(totalHours*100/s.cfg.WeeklyGoalHours)),
		},
		PeakHours:    stats.PeakHours,
		TopCourses:   topCourses(sessions, topCourseCount),
		Distractions: distractions,
		Recommendations: buildRecommendations(recommendationInput{
			Period:            "week",
			TotalHours:        totalHours,
			GoalHours:         s.cfg.WeeklyGoalHours,
			SessionsCount:     stats.SessionCount,
			FocusScore:        focus,
			AvgSessionMinutes: stats.AverageDurationMinutes,
			StudyDays:         days,
			MinStudyDays:      consistencyDays,
			PeakHours:         stats.PeakHours,
			Distractions:      distractions,
		}),
		GeneratedAt: s.now().UTC(),
	}

	if err := s.save(ctx, report, studentID, nil, from, next); err != nil {
		return nil, err
	}
	return report, nil
}

// Monthly builds and stores the student's report for the month containing
// month, or the current month when nil.
func (s *ReportService) Monthly(ctx context.Context, studentID uuid.UUID, month *time.Time) (*models.MonthlyReport, error) {
	ref := s.now()
	if month != nil {
		ref = *month
	}
	from := MonthStart(ref)
	next := from.AddDate(0, 1, 0)
	prev := from.AddDate(0, -1, 0)
	numDays := int(next.Sub(from).Hours() / 24)

	sessions, err := s.sessions.ListForStudent(ctx, studentID, nil, from, periodEnd(next))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	previous, err := s.sessions.ListForStudent(ctx, studentID, nil, prev, periodEnd(from))
	if err != nil {
		return nil, fmt.Errorf("failed to load previous month sessions: %w", err)
	}

	stats := AnalyzeSessions(sessions)
	daily := dailyMinutes(sessions, from, numDays)
	days := studyDays(daily)
	totalHours := minutesToHours(stats.TotalMinutes)
	prevHours := minutesToHours(AnalyzeSessions(previous).TotalMinutes)
	focus := FocusScore(sessions)
	distractions := topTags(distractionCounts(sessions), topDistractions)
	goal := round1(s.cfg.WeeklyGoalHours * float64(numDays) / 7)

	var change *float64
	if prevHours > 0 {
		c := round1((totalHours - prevHours) * 100 / prevHours)
		change = &c
	}

	report := &models.MonthlyReport{
		StudentID:    studentID,
		Month:        from.Format("2006-01"),
		DailyMinutes: daily,
		WeeklyTotals: weeklyTotals(daily),
		Summary: models.MonthlySummary{
			TotalHours:            totalHours,
			SessionsCount:         stats.SessionCount,
			FocusScore:            focus,
			AverageSessionMinutes: stats.AverageDurationMinutes,
			StudyDays:             days,
			PreviousMonthHours:    prevHours,
			ChangePercent:         change,
		},
		TopCourses:   topCourses(sessions, topCourseCount),
		Distractions: distractions,
		Recommendations: buildRecommendations(recommendationInput{
			Period:            "month",
			TotalHours:        totalHours,
			GoalHours:         goal,
			SessionsCount:     stats.SessionCount,
			FocusScore:        focus,
			AvgSessionMinutes: stats.AverageDurationMinutes,
			StudyDays:         days,
			MinStudyDays:      consistencyDays * numDays / 7,
			PeakHours:         stats.PeakHours,
			Distractions:      distractions,
		}),
		GeneratedAt: s.now().UTC(),
	}

	if err := s.save(ctx, report, studentID, nil, from, next); err != nil {
		return nil, err
	}
	return report, nil
}

type InstructorSummaryInput struct {
	InstructorID uuid.UUID
	// AllowAnyCourse skips the course ownership check (admins).
	AllowAnyCourse bool
	CourseID       uuid.UUID
	Range          string
	WeekStart      *time.Time
}

// InstructorSummary reports course-level engagement. Courses with fewer
// enrolled students than the cohort minimum only get a privacy notice.
func (s *ReportService) InstructorSummary(ctx context.Context, in InstructorSummaryInput) (*models.InstructorSummary, error) {
	if in.Range == "" {
		in.Range = models.RangeWeek
	}
	if in.Range != models.RangeWeek && in.Range != models.RangeMonth {
		return nil, invalid("range", "must be week or month")
	}

	course, err := s.users.GetCourse(ctx, in.CourseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Course not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if !in.AllowAnyCourse && (course.InstructorID == nil || *course.InstructorID != in.InstructorID) {
		return nil, &ForbiddenError{Message: "You do not teach this course"}
	}

	ref := s.now()
	if in.WeekStart != nil {
		ref = *in.WeekStart
	}
	var from, next time.Time
	if in.Range == models.RangeMonth {
		from = MonthStart(ref)
		next = from.AddDate(0, 1, 0)
	} else {
		from = WeekStart(ref)
		next = from.AddDate(0, 0, 7)
	}
	numDays := int(next.Sub(from).Hours() / 24)

	enrolled, err := s.users.ListEnrolled(ctx, in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	summary := &models.InstructorSummary{
		CourseID:         course.ID,
		CourseName:       course.Name,
		InstructorID:     in.InstructorID,
		Range:            in.Range,
		PeriodStart:      from.Format(dateLayout),
		PeriodEnd:        next.AddDate(0, 0, -1).Format(dateLayout),
		EnrolledStudents: len(enrolled),
		GeneratedAt:      s.now().UTC(),
	}

	if len(enrolled) < s.cfg.InstructorMinCohort {
		summary.PrivacyNotice = fmt.Sprintf(
			"Metrics are hidden to protect student privacy: at least %d enrolled students are required.",
			s.cfg.InstructorMinCohort)
	} else {
		sessions, err := s.sessions.ListForCourse(ctx, in.CourseID, from, periodEnd(next))
		if err != nil {
			return nil, fmt.Errorf("failed to load course sessions: %w", err)
		}
		summary.Metrics = courseMetrics(enrolled, sessions, from, numDays)
	}

	courseID := course.ID
	if err := s.save(ctx, summary, in.InstructorID, &courseID, from, next); err != nil {
		return nil, err
	}
	return summary, nil
}

func courseMetrics(enrolled []models.User, sessions []models.StudySession, from time.Time, numDays int) *models.InstructorMetrics {
	byStudent := make(map[uuid.UUID][]models.StudySession, len(enrolled))
	totalMinutes := 0
	for _, sess := range sessions {
		byStudent[sess.StudentID] = append(byStudent[sess.StudentID], sess)
		totalMinutes += sess.DurationMinutes
	}

	weeks := float64(numDays) / 7
	atRisk := make([]models.AtRiskStudent, 0)
	active := 0
	for _, u := range enrolled {
		own := byStudent[u.ID]
		if len(own) > 0 {
			active++
		}
		minutes := 0
		for _, sess := range own {
			minutes += sess.DurationMinutes
		}
		weekly := round2(float64(minutes) / 60 / weeks)
		focus := FocusScore(own)

		var reasons []string
		if weekly < atRiskWeeklyHours {
			reasons = append(reasons, "low_study_time")
		}
		if len(own) >= 1 && focus < lowFocusScore {
			reasons = append(reasons, "low_focus")
		}
		if len(reasons) == 0 {
			continue
		}
		atRisk = append(atRisk, models.AtRiskStudent{
			StudentID:     u.ID,
			FullName:      u.FullName,
			WeeklyHours:   weekly,
			FocusScore:    focus,
			SessionsCount: len(own),
			Reasons:       reasons,
		})
	}

	return &models.InstructorMetrics{
		AverageHoursPerStudent: round2(float64(totalMinutes) / 60 / float64(len(enrolled))),
		AverageFocusScore:      FocusScore(sessions),
		ActiveStudents:         active,
		AtRiskStudents:         atRisk,
		DailyEngagement:        dailyMinutes(sessions, from, numDays),
		CommonDistractions:     topTags(distractionCounts(sessions), topDistractions),
	}
}

// SystemDiagnostics summarizes model, alert, queue and data health.
func (s *ReportService) SystemDiagnostics(ctx context.Context, requestedBy uuid.UUID) (*models.SystemDiagnostics, error) {
	now := s.now().UTC()

	modelStats, err := s.diag.ModelStats(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := s.diag.CountAlertsSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	queue, err := s.diag.NotificationCounts(ctx)
	if err != nil {
		return nil, err
	}
	quality, err := s.diag.DataQuality(ctx)
	if err != nil {
		return nil, err
	}
	active, stale, err := s.diag.ActiveSessionCounts(ctx, now.Add(-staleActiveSessionAge))
	if err != nil {
		return nil, err
	}

	report := &models.SystemDiagnostics{
		RequestedBy:         requestedBy,
		FocusModels:         modelStats,
		AlertsLast7Days:     alerts,
		Notifications:       queue,
		DataQuality:         quality,
		ActiveSessions:      active,
		StaleActiveSessions: stale,
		GeneratedAt:         now,
	}
	if err := s.save(ctx, report, requestedBy, nil, now.AddDate(0, 0, -7), now); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) save(ctx context.Context, payload models.ReportPayload, owner uuid.UUID, courseID *uuid.UUID, from, to time.Time) error {
	raw, err := models.EncodeReportPayload(payload)
	if err != nil {
		return err
	}
	rep := &models.Report{
		Type:        payload.ReportType(),
		OwnerID:     owner,
		CourseID:    courseID,
		PeriodStart: &from,
		PeriodEnd:   &to,
		Payload:     raw,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return err
	}
	metrics.ReportsGenerated.WithLabelValues(string(rep.Type)).Inc()
	return nil
}

// dailyMinutes returns one entry per day starting at from, including empty days.
func dailyMinutes(sessions []models.StudySession, from time.Time, days int) []models.DailyMinutes {
	out := make([]models.DailyMinutes, days)
	for i := range out {
		out[i].Date = from.AddDate(0, 0, i).Format(dateLayout)
	}
	for _, s := range sessions {
		i := int(startOfDay(s.StartedAt.UTC()).Sub(from).Hours() / 24)
		if i >= 0 && i < days {
			out[i].Minutes += s.DurationMinutes
		}
	}
	return out
}

func studyDays(daily []models.DailyMinutes) int {
	n := 0
	for _, d := range daily {
		if d.Minutes > 0 {
			n++
		}
	}
	return n
}

// weeklyTotals groups daily entries by the Monday that starts their week.
func weeklyTotals(daily []models.DailyMinutes) []models.WeekTotal {
	out := make([]models.WeekTotal, 0, 6)
	index := make(map[string]int)
	for _, d := range daily {
		day, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		key := WeekStart(day).Format(dateLayout)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, models.WeekTotal{WeekStart: key})
		}
		out[i].Minutes += d.Minutes
	}
	return out
}

func topCourses(sessions []models.StudySession, limit int) []models.CourseHours {
	index := make(map[uuid.UUID]int)
	minutes := make([]int, 0)
	out := make([]models.CourseHours, 0)
	for _, s := range sessions {
		i, ok := index[s.CourseID]
		if !ok {
			i = len(out)
			index[s.CourseID] = i
			out = append(out, models.CourseHours{CourseID: s.CourseID, CourseName: s.CourseName})
			minutes = append(minutes, 0)
		}
		minutes[i] += s.DurationMinutes
		out[i].Sessions++
	}
	for i := range out {
		out[i].Hours = minutesToHours(minutes[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hours > out[j].Hours })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func minutesToHours(m int) float64 {
	return round2(float64(m) / 60)
}
