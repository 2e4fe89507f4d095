package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"studypulse-backend/internal/config"
	"studypulse-backend/internal/database"
	"studypulse-backend/internal/handlers"
	"studypulse-backend/internal/logging"
	"studypulse-backend/internal/middleware"
	"studypulse-backend/internal/repository"
	"studypulse-backend/internal/router"
	"studypulse-backend/internal/services"
	"studypulse-backend/internal/websocket"
	"studypulse-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("✗ Configuration failed")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := logging.Component("main")
	logger.Info().Str("env", cfg.Server.Env).Msg("🚀 Starting StudyPulse Backend...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ PostgreSQL connection failed")
	}
	defer pool.Close()
	logger.Info().Msg("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Redis connection failed")
	}
	defer redisClients.Close()
	logger.Info().Msg("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.Database.MigrationsDir, logging.Component("migrations")); err != nil {
		logger.Fatal().Err(err).Msg("✗ Database migration failed")
	}
	logger.Info().Msg("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewStudySessionRepo(pool)
	activeRepo := repository.NewActiveSessionRepo(pool)
	focusModelRepo := repository.NewFocusModelRepo(pool)
	alertRepo := repository.NewAlertRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)
	reportRepo := repository.NewReportRepo(pool)
	diagnosticsRepo := repository.NewDiagnosticsRepo(pool)

	// ──── Initialize Services ────
	svcLogger := logging.Component("services")
	jwtAuth := middleware.NewJWTAuth(cfg.Auth.JWTSecret)

	analyzer := services.NewPatternAnalyzer(sessionRepo)
	focusModels := services.NewFocusModelService(analyzer, focusModelRepo, svcLogger)
	alertService := services.NewAlertService(alertRepo, notificationRepo, userRepo, svcLogger)
	registry := services.NewSessionRegistry(activeRepo, svcLogger)
	monitor := services.NewFocusMonitor(activeRepo, focusModels, alertService, svcLogger)
	reportService := services.NewReportService(sessionRepo, userRepo, reportRepo, diagnosticsRepo, services.ReportConfig{
		WeeklyGoalHours:     cfg.Reports.WeeklyGoalHours,
		InstructorMinCohort: cfg.Reports.InstructorMinCohort,
	}, svcLogger)

	emailService := services.NewEmailService(services.EmailConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		User:        cfg.SMTP.User,
		Pass:        cfg.SMTP.Pass,
		From:        cfg.SMTP.From,
		FrontendURL: cfg.Server.FrontendURL,
	}, svcLogger)
	channels := services.NewChannelRegistry(
		services.NewEmailChannel(emailService, services.EmailChannelConfig{RatePerSecond: cfg.SMTP.RatePerSecond}, svcLogger),
		services.NewInAppChannel(services.NewRedisPublisher(redisClients.Commands), svcLogger),
	)
	dispatcher := services.NewDispatcher(notificationRepo, alertRepo, userRepo, channels, cfg.Scheduler.DispatchBatch, svcLogger)
	logger.Info().Msg("✓ Services initialized")

	// ──── Step 5: Start Scheduler ────
	scheduler := worker.NewScheduler(
		worker.Config{Enabled: cfg.Scheduler.Enabled, TickTimeout: cfg.Scheduler.TickTimeout},
		worker.NewRedisLocker(redisClients.Commands, logging.Component("scheduler")),
		logging.Component("scheduler"),
		worker.Job{
			Name:     worker.TickFocusMonitor,
			Interval: cfg.Scheduler.FocusMonitorInterval,
			Run: func(ctx context.Context) error {
				_, err := monitor.Tick(ctx)
				return err
			},
		},
		worker.Job{
			Name:     worker.TickDispatch,
			Interval: cfg.Scheduler.DispatchInterval,
			Run: func(ctx context.Context) error {
				_, err := dispatcher.DispatchPending(ctx)
				return err
			},
		},
	)
	scheduler.Start(ctx)
	logger.Info().Bool("enabled", cfg.Scheduler.Enabled).Msg("✓ Scheduler started")

	// ──── Initialize WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, logging.Component("websocket"))

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Monitoring: handlers.NewMonitoringHandler(registry),
		Insights:   handlers.NewInsightsHandler(analyzer, focusModels),
		Alerts:     handlers.NewAlertHandler(alertService),
		Reports:    handlers.NewReportHandler(reportService),
		Admin:      handlers.NewAdminHandler(reportService, scheduler, monitor, dispatcher, alertService),
	}

	// ──── Step 6: Start HTTP Server ────
	r := router.New(jwtAuth, h, wsHub, cfg.Server.FrontendURL, logging.Component("http"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Fatal().Err(err).Msg("✗ Failed to listen")
	}

	logger.Info().Msgf("✓ StudyPulse Backend ready on http://localhost:%s", cfg.Server.Port)
	logger.Info().Msgf("  API: http://localhost:%s/api/v1", cfg.Server.Port)
	logger.Info().Msgf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Server.Port)

	if err := serveUntilDone(ctx, server, ln, scheduler.Stop, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
	logger.Info().Msg("✓ Shutdown complete")
}

// serveUntilDone serves on ln until ctx is cancelled, then runs onShutdown and
// drains in-flight requests. It returns only after the drain has finished.
func serveUntilDone(ctx context.Context, server *http.Server, ln net.Listener, onShutdown func(), logger *zerolog.Logger) error {
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down...")
		onShutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("HTTP shutdown failed: %w", err)
	}
	return nil
}
