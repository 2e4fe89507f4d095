package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"studypulse-backend/internal/models"
)

const (
	DefaultPatternDays = 30
	peakHourCount      = 3
	topDistractions    = 5
)

type PatternAnalyzer struct {
	sessions SessionStore
	now      func() time.Time
}

func NewPatternAnalyzer(sessions SessionStore) *PatternAnalyzer {
	return &PatternAnalyzer{sessions: sessions, now: time.Now}
}

// Analyze aggregates the student's sessions from the start of the day
// daysBack days ago until now. It never fails for lack of data.
func (a *PatternAnalyzer) Analyze(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID, daysBack int) (*models.PatternReport, error) {
	if daysBack <= 0 {
		return nil, invalid("days_back", "must be greater than 0")
	}

	now := a.now().UTC()
	from := startOfDay(now).AddDate(0, 0, -daysBack)

	sessions, err := a.sessions.ListForStudent(ctx, studentID, courseID, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	report := AnalyzeSessions(sessions)
	report.StudentID = studentID
	report.CourseID = courseID
	report.DaysBack = daysBack
	report.WindowStart = from
	report.WindowEnd = now
	return report, nil
}

// AnalyzeSessions is the pure aggregation behind Analyze.
func AnalyzeSessions(sessions []models.StudySession) *models.PatternReport {
	report := &models.PatternReport{
		PeakHours:        []models.HourStat{},
		Distractions:     []models.TagCount{},
		MoodDistribution: []models.MoodShare{},
	}
	n := len(sessions)
	if n == 0 {
		return report
	}

	total := 0
	for _, s := range sessions {
		total += s.DurationMinutes
	}
	report.SessionCount = n
	report.TotalMinutes = total
	report.AverageDurationMinutes = int(math.Round(float64(total) / float64(n)))
	report.PeakHours = topHours(hourStats(sessions), peakHourCount)
	report.Distractions = topTags(distractionCounts(sessions), topDistractions)
	report.MoodDistribution = moodDistribution(sessions)
	report.Confidence = patternConfidence(n)
	return report
}

// patternConfidence grows by 0.01 per session from 0.50 up to 0.95.
func patternConfidence(sessions int) float64 {
	if sessions <= 0 {
		return 0
	}
	return round2(math.Min(models.MaxFocusConfidence, 0.5+float64(sessions)/100))
}

// hourStats buckets sessions by UTC start hour, in order of first appearance.
func hourStats(sessions []models.StudySession) []models.HourStat {
	index := make(map[int]int)
	stats := make([]models.HourStat, 0)
	for _, s := range sessions {
		h := s.StartedAt.UTC().Hour()
		i, ok := index[h]
		if !ok {
			i = len(stats)
			index[h] = i
			stats = append(stats, models.HourStat{Hour: h})
		}
		stats[i].TotalMinutes += s.DurationMinutes
		stats[i].SessionCount++
	}
	return stats
}

func topHours(stats []models.HourStat, limit int) []models.HourStat {
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TotalMinutes > stats[j].TotalMinutes })
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// distractionCounts tallies distraction tags in order of first appearance.
func distractionCounts(sessions []models.StudySession) []models.TagCount {
	index := make(map[string]int)
	counts := make([]models.TagCount, 0)
	for _, s := range sessions {
		for _, tag := range s.DistractionTags() {
			i, ok := index[tag]
			if !ok {
				i = len(counts)
				index[tag] = i
				counts = append(counts, models.TagCount{Tag: tag})
			}
			counts[i].Count++
		}
	}
	return counts
}

func topTags(counts []models.TagCount, limit int) []models.TagCount {
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// moodDistribution reports each recorded mood with its share of all sessions,
// including sessions that carry no mood.
func moodDistribution(sessions []models.StudySession) []models.MoodShare {
	index := make(map[string]int)
	shares := make([]models.MoodShare, 0)
	for _, s := range sessions {
		mood := s.MoodLabel()
		if mood == "" {
			continue
		}
		i, ok := index[mood]
		if !ok {
			i = len(shares)
			index[mood] = i
			shares = append(shares, models.MoodShare{Mood: mood})
		}
		shares[i].Count++
	}
	for i := range shares {
		shares[i].Percentage = round1(float64(shares[i].Count) * 100 / float64(len(sessions)))
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })
	return shares
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
