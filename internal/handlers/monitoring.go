package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
)

type SessionMonitor interface {
	Start(ctx context.Context, studentID, courseID, sessionID uuid.UUID) (*models.ActiveSession, error)
	Live(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error)
	Stop(ctx context.Context, sessionID uuid.UUID) (*models.ActiveSession, error)
}

type MonitoringHandler struct {
	sessions SessionMonitor
}

func NewMonitoringHandler(sessions SessionMonitor) *MonitoringHandler {
	return &MonitoringHandler{sessions: sessions}
}

func (h *MonitoringHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := uuidParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req struct {
		CourseID string `json:"course_id" validate:"required,uuid"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	courseID := uuid.MustParse(req.CourseID)

	active, err := h.sessions.Start(r.Context(), userID, courseID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_session": active,
	})
}

func (h *MonitoringHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := uuidParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	live, err := h.sessions.Live(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if live != nil && live.StudentID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Session belongs to another student", r))
		return
	}

	var active *models.ActiveSession
	if live != nil {
		active, err = h.sessions.Stop(r.Context(), sessionID)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopped":        active != nil,
		"active_session": active,
	})
}
