package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

const (
	focusModelWindowDays = 60
	minSessionsForModel  = 3
	focusLossRatio       = 0.75
)

type FocusModelService struct {
	analyzer *PatternAnalyzer
	store    FocusModelStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewFocusModelService(analyzer *PatternAnalyzer, store FocusModelStore, logger *zerolog.Logger) *FocusModelService {
	return &FocusModelService{
		analyzer: analyzer,
		store:    store,
		logger:   logger.With().Str("component", "focus_model").Logger(),
		now:      time.Now,
	}
}

// DeriveFocusModel turns pattern statistics into a focus-loss minute and a
// confidence. Callers must handle the insufficient-data case first.
func DeriveFocusModel(sessionsAnalyzed, averageDurationMinutes int) (typical int, confidence float64) {
	typical = int(math.Round(float64(averageDurationMinutes) * focusLossRatio))
	typical = max(models.MinFocusLossMinutes, min(models.MaxFocusLossMinutes, typical))
	confidence = round2(math.Min(models.MaxFocusConfidence, 0.5+float64(sessionsAnalyzed)/50))
	return typical, confidence
}

// Build analyzes the last 60 days and upserts the model. With fewer than three
// sessions the default model is returned and nothing is written.
func (s *FocusModelService) Build(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	report, err := s.analyzer.Analyze(ctx, studentID, courseID, focusModelWindowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze patterns: %w", err)
	}

	if report.SessionCount < minSessionsForModel {
		return models.DefaultFocusModel(studentID, courseID, report.SessionCount), nil
	}

	typical, confidence := DeriveFocusModel(report.SessionCount, report.AverageDurationMinutes)
	trainedAt := s.now().UTC()
	m := &models.FocusModel{
		StudentID:               studentID,
		CourseID:                courseID,
		TypicalFocusLossMinutes: typical,
		Confidence:              confidence,
		SessionsAnalyzed:        report.SessionCount,
		LastTrainedAt:           &trainedAt,
	}
	if err := s.store.Upsert(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("student_id", studentID.String()).
		Int("typical_focus_loss_minutes", typical).
		Float64("confidence", confidence).
		Int("sessions", report.SessionCount).
		Msg("focus model built")
	return m, nil
}

// Get reads the stored model without building one.
func (s *FocusModelService) Get(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	m, err := s.store.Get(ctx, studentID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFocusModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load focus model: %w", err)
	}
	return m, nil
}

// GetOrBuild reads the stored model and builds one when none exists.
func (s *FocusModelService) GetOrBuild(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	m, err := s.Get(ctx, studentID, courseID)
	if errors.Is(err, ErrFocusModelNotFound) {
		return s.Build(ctx, studentID, courseID)
	}
	return m, err
}
