package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/services"
	"studypulse-backend/internal/worker"
)

type TickRunner interface {
	RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error)
}

type FocusTicker interface {
	Tick(ctx context.Context) (models.TickResult, error)
}

type NotificationDispatcher interface {
	DispatchPending(ctx context.Context) (models.DispatchResult, error)
}

type TestAlertCreator interface {
	CreateTestAlert(ctx context.Context, in services.TestAlertInput) (*models.Alert, *models.Notification, error)
}

// AdminHandler exposes diagnostics and on-demand runs of the periodic ticks.
type AdminHandler struct {
	reports    ReportGenerator
	runner     TickRunner
	monitor    FocusTicker
	dispatcher NotificationDispatcher
	alerts     TestAlertCreator
}

func NewAdminHandler(reports ReportGenerator, runner TickRunner, monitor FocusTicker, dispatcher NotificationDispatcher, alerts TestAlertCreator) *AdminHandler {
	return &AdminHandler{
		reports:    reports,
		runner:     runner,
		monitor:    monitor,
		dispatcher: dispatcher,
		alerts:     alerts,
	}
}

func (h *AdminHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.SystemDiagnostics(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

func (h *AdminHandler) RunFocusMonitor(w http.ResponseWriter, r *http.Request) {
	var res models.TickResult
	ran, err := h.runner.RunExclusive(r.Context(), worker.TickFocusMonitor, func(ctx context.Context) error {
		var err error
		res, err = h.monitor.Tick(ctx)
		return err
	})
	h.writeTick(w, r, ran, err, res)
}

func (h *AdminHandler) RunDispatch(w http.ResponseWriter, r *http.Request) {
	var res models.DispatchResult
	ran, err := h.runner.RunExclusive(r.Context(), worker.TickDispatch, func(ctx context.Context) error {
		var err error
		res, err = h.dispatcher.DispatchPending(ctx)
		return err
	})
	h.writeTick(w, r, ran, err, res)
}

func (h *AdminHandler) writeTick(w http.ResponseWriter, r *http.Request, ran bool, err error, result interface{}) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !ran {
		writeJSON(w, http.StatusConflict, errorResp("TICK_RUNNING", "This tick is already running", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func (h *AdminHandler) TestAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string  `json:"recipient_id" validate:"required,uuid"`
		StudentID   string  `json:"student_id" validate:"required,uuid"`
		CourseID    *string `json:"course_id" validate:"omitempty,uuid"`
		Message     string  `json:"message" validate:"required,max=1000"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	courseID, ok := parseOptionalUUID(req.CourseID)
	if !ok {
		validationError(w, r, "course_id", "must be a valid UUID")
		return
	}

	alert, queued, err := h.alerts.CreateTestAlert(r.Context(), services.TestAlertInput{
		RequestedBy: middleware.GetUserID(r.Context()),
		RecipientID: uuid.MustParse(req.RecipientID),
		StudentID:   uuid.MustParse(req.StudentID),
		CourseID:    courseID,
		Message:     req.Message,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"alert":        alert,
		"notification": queued,
	})
}
