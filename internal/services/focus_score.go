package services

import (
	"math"

	"studypulse-backend/internal/models"
)

const (
	focusBaseScore        = 70.0
	focusMoodWeight       = 0.4
	distractionPenalty    = 5.0
	maxDistractionPenalty = 20.0
	longSessionMinutes    = 60
	shortSessionMinutes   = 30
	durationAdjustment    = 10.0
)

// moodScores maps recorded moods to a 0-100 focus signal. Moods outside the
// table leave the base score unblended.
var moodScores = map[string]float64{
	"great":      100,
	"focused":    90,
	"motivated":  85,
	"good":       80,
	"okay":       60,
	"neutral":    60,
	"tired":      40,
	"distracted": 35,
	"stressed":   30,
	"bad":        20,
}

// SessionFocusScore scores a single session in [0, 100].
func SessionFocusScore(s models.StudySession) float64 {
	score := focusBaseScore
	if mood, ok := moodScores[s.MoodLabel()]; ok {
		score = focusMoodWeight*mood + (1-focusMoodWeight)*focusBaseScore
	}

	score -= math.Min(float64(len(s.DistractionTags()))*distractionPenalty, maxDistractionPenalty)

	switch {
	case s.DurationMinutes >= longSessionMinutes:
		score += durationAdjustment
	case s.DurationMinutes < shortSessionMinutes:
		score -= durationAdjustment
	}

	return math.Max(0, math.Min(100, score))
}

// FocusScore is the mean session score, 0 when there are no sessions.
func FocusScore(sessions []models.StudySession) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sessions {
		sum += SessionFocusScore(s)
	}
	return round1(sum / float64(len(sessions)))
}
