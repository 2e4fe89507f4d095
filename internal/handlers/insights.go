package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/services"
)

type PatternSource interface {
	Analyze(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID, daysBack int) (*models.PatternReport, error)
}

type FocusModelSource interface {
	GetOrBuild(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error)
	Build(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error)
}

// InsightsHandler serves the caller's study patterns and focus model.
type InsightsHandler struct {
	patterns PatternSource
	models   FocusModelSource
}

func NewInsightsHandler(patterns PatternSource, focusModels FocusModelSource) *InsightsHandler {
	return &InsightsHandler{patterns: patterns, models: focusModels}
}

func (h *InsightsHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	courseID, ok := optionalUUIDQuery(r, "course_id")
	if !ok {
		validationError(w, r, "course_id", "must be a valid UUID")
		return
	}
	daysBack, ok := intQuery(r, "days_back", services.DefaultPatternDays)
	if !ok {
		validationError(w, r, "days_back", "must be an integer")
		return
	}

	report, err := h.patterns.Analyze(r.Context(), userID, courseID, daysBack)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patterns": report})
}

func (h *InsightsHandler) FocusModel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	courseID, ok := optionalUUIDQuery(r, "course_id")
	if !ok {
		validationError(w, r, "course_id", "must be a valid UUID")
		return
	}

	m, err := h.models.GetOrBuild(r.Context(), userID, courseID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"focus_model": m})
}

func (h *InsightsHandler) BuildFocusModel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		CourseID *string `json:"course_id" validate:"omitempty,uuid"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	courseID, ok := parseOptionalUUID(req.CourseID)
	if !ok {
		validationError(w, r, "course_id", "must be a valid UUID")
		return
	}

	m, err := h.models.Build(r.Context(), userID, courseID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"focus_model": m})
}
