package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
)

type AlertFeed interface {
	Feed(ctx context.Context, recipientID uuid.UUID) ([]models.Alert, error)
}

type AlertHandler struct {
	alerts AlertFeed
}

func NewAlertHandler(alerts AlertFeed) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// List returns the caller's newest alerts.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	alerts, err := h.alerts.Feed(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}
