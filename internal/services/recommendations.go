package services

import (
	"fmt"

	"studypulse-backend/internal/models"
)

const (
	lowFocusScore       = 60.0
	longSessionAverage  = 90
	shortSessionAverage = 25
	consistencyDays     = 4
)

type recommendationInput struct {
	Period            string // "week" or "month"
	TotalHours        float64
	GoalHours         float64
	SessionsCount     int
	FocusScore        float64
	AvgSessionMinutes int
	StudyDays         int
	MinStudyDays      int
	PeakHours         []models.HourStat
	Distractions      []models.TagCount
}

func buildRecommendations(in recommendationInput) []models.Recommendation {
	recs := make([]models.Recommendation, 0, 6)

	if len(in.PeakHours) > 0 {
		recs = append(recs, models.Recommendation{
			Category: "peak_hours",
			Message: fmt.Sprintf("You put in the most study time around %02d:00 UTC. Schedule your hardest material in that window.",
				in.PeakHours[0].Hour),
		})
	}

	if in.TotalHours < in.GoalHours {
		msg := fmt.Sprintf("You studied %.1f of your %.0f-hour %s goal. Add %.1f more hours to reach it.",
			in.TotalHours, in.GoalHours, in.Period, in.GoalHours-in.TotalHours)
		if in.SessionsCount == 0 {
			msg = fmt.Sprintf("No study sessions were logged this %s. Start with a short session to work toward your %.0f-hour goal.",
				in.Period, in.GoalHours)
		}
		recs = append(recs, models.Recommendation{Category: "study_time", Message: msg})
	} else {
		recs = append(recs, models.Recommendation{
			Category: "study_time",
			Message:  fmt.Sprintf("You reached your %.0f-hour %s goal. Keep the same rhythm.", in.GoalHours, in.Period),
		})
	}

	if in.SessionsCount > 0 && in.FocusScore < lowFocusScore {
		recs = append(recs, models.Recommendation{
			Category: "focus",
			Message: fmt.Sprintf("Your focus score was %.0f. Fewer distractions and sessions of at least an hour tend to raise it.",
				in.FocusScore),
		})
	}

	if len(in.Distractions) > 0 {
		recs = append(recs, models.Recommendation{
			Category: "distractions",
			Message: fmt.Sprintf("%q was your most frequent distraction (%d times). Try removing it before you start.",
				in.Distractions[0].Tag, in.Distractions[0].Count),
		})
	}

	if in.SessionsCount > 0 {
		switch {
		case in.AvgSessionMinutes > longSessionAverage:
			recs = append(recs, models.Recommendation{
				Category: "session_length",
				Message: fmt.Sprintf("Your sessions averaged %d minutes. Splitting them into shorter blocks with breaks helps you stay sharp.",
					in.AvgSessionMinutes),
			})
		case in.AvgSessionMinutes < shortSessionAverage:
			recs = append(recs, models.Recommendation{
				Category: "session_length",
				Message: fmt.Sprintf("Your sessions averaged %d minutes. Aim for at least 30 minutes to get into deeper focus.",
					in.AvgSessionMinutes),
			})
		}
	}

	if in.StudyDays < in.MinStudyDays {
		recs = append(recs, models.Recommendation{
			Category: "consistency",
			Message: fmt.Sprintf("You studied on %d day(s) this %s. Spreading study over at least %d days improves retention.",
				in.StudyDays, in.Period, in.MinStudyDays),
		})
	}

	return recs
}
