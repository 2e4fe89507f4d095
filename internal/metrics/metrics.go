// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickRuns counts scheduler ticks by name and outcome (ok, error, skipped).
	TickRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studypulse_tick_runs_total",
			Help: "Scheduler tick executions by tick name and outcome",
		},
		[]string{"tick", "outcome"},
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studypulse_tick_duration_seconds",
			Help:    "Duration of scheduler ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tick"},
	)

	ActiveSessionsScanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studypulse_active_sessions_scanned",
			Help: "Active sessions scanned by the last focus monitor tick",
		},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studypulse_alerts_created_total",
			Help: "Alerts written, by alert type",
		},
		[]string{"type"},
	)

	MonitorItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studypulse_focus_monitor_item_errors_total",
			Help: "Active sessions whose processing failed inside a focus monitor tick",
		},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studypulse_notifications_enqueued_total",
			Help: "Notification enqueue calls by channel and result (created, duplicate)",
		},
		[]string{"channel", "result"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studypulse_notifications_dispatched_total",
			Help: "Dispatched notifications by channel and final status",
		},
		[]string{"channel", "status"},
	)

	EmailBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studypulse_email_breaker_state",
			Help: "Email circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studypulse_reports_generated_total",
			Help: "Generated reports by type",
		},
		[]string{"type"},
	)
)
