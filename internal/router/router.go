package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/handlers"
	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/websocket"
)

type Handlers struct {
	Monitoring *handlers.MonitoringHandler
	Insights   *handlers.InsightsHandler
	Alerts     *handlers.AlertHandler
	Reports    *handlers.ReportHandler
	Admin      *handlers.AdminHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
	wsHub *websocket.Hub,
	frontendURL string,
	logger *zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ──── Authenticated API ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RateLimitByIP(120, time.Minute))

			r.Route("/monitoring/sessions/{id}", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleStudent))
				r.Post("/start", h.Monitoring.Start)
				r.Post("/stop", h.Monitoring.Stop)
			})

			r.Get("/patterns", h.Insights.Patterns)
			r.Get("/focus-model", h.Insights.FocusModel)
			r.Post("/focus-model/build", h.Insights.BuildFocusModel)

			r.Get("/alerts", h.Alerts.List)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/weekly", h.Reports.Weekly)
				r.Get("/monthly", h.Reports.Monthly)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
					r.Get("/instructor/{courseID}", h.Reports.InstructorSummary)
				})
			})

			// ──── Admin ────
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/diagnostics", h.Admin.Diagnostics)
				r.Post("/ticks/focus-monitor", h.Admin.RunFocusMonitor)
				r.Post("/ticks/dispatch", h.Admin.RunDispatch)
				r.Post("/alerts/test", h.Admin.TestAlert)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
