package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/services"
)

type ReportGenerator interface {
	Weekly(ctx context.Context, studentID uuid.UUID, weekStart *time.Time) (*models.WeeklyReport, error)
	Monthly(ctx context.Context, studentID uuid.UUID, month *time.Time) (*models.MonthlyReport, error)
	InstructorSummary(ctx context.Context, in services.InstructorSummaryInput) (*models.InstructorSummary, error)
	SystemDiagnostics(ctx context.Context, requestedBy uuid.UUID) (*models.SystemDiagnostics, error)
}

type ReportHandler struct {
	reports ReportGenerator
}

func NewReportHandler(reports ReportGenerator) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	weekStart, ok := optionalDateQuery(r, "week_start", dateLayout)
	if !ok {
		validationError(w, r, "week_start", "must be a date in YYYY-MM-DD format")
		return
	}

	report, err := h.reports.Weekly(r.Context(), userID, weekStart)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	month, ok := optionalDateQuery(r, "month", "2006-01")
	if !ok {
		validationError(w, r, "month", "must be a month in YYYY-MM format")
		return
	}

	report, err := h.reports.Monthly(r.Context(), userID, month)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

// InstructorSummary is limited to the course's instructor; admins may read any course.
func (h *ReportHandler) InstructorSummary(w http.ResponseWriter, r *http.Request) {
	courseID, ok := uuidParam(r, "courseID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}
	weekStart, ok := optionalDateQuery(r, "week_start", dateLayout)
	if !ok {
		validationError(w, r, "week_start", "must be a date in YYYY-MM-DD format")
		return
	}

	summary, err := h.reports.InstructorSummary(r.Context(), services.InstructorSummaryInput{
		InstructorID:   middleware.GetUserID(r.Context()),
		AllowAnyCourse: middleware.GetRole(r.Context()) == models.RoleAdmin,
		CourseID:       courseID,
		Range:          r.URL.Query().Get("range"),
		WeekStart:      weekStart,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": summary})
}
