package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/metrics"
	"studypulse-backend/internal/models"
	"studypulse-backend/internal/repository"
)

const alertFeedLimit = 50

type AlertService struct {
	alerts AlertStore
	queue  NotificationStore
	users  UserStore
	logger zerolog.Logger
}

func NewAlertService(alerts AlertStore, queue NotificationStore, users UserStore, logger *zerolog.Logger) *AlertService {
	return &AlertService{
		alerts: alerts,
		queue:  queue,
		users:  users,
		logger: logger.With().Str("component", "alerts").Logger(),
	}
}

// FocusLossInput describes one threshold crossing seen by the monitor.
type FocusLossInput struct {
	Session               models.ActiveSession
	ElapsedMinutes        int
	ThresholdMinutes      int
	AlertThresholdMinutes int
}

// CreateFocusLossAlert writes one alert for the student and one for the
// course instructor, each with an in-app queue item. The instructor alert is
// skipped when the course has none.
func (s *AlertService) CreateFocusLossAlert(ctx context.Context, in FocusLossInput) ([]*models.Alert, error) {
	sess := in.Session

	var course *models.Course
	c, err := s.users.GetCourse(ctx, sess.CourseID)
	switch {
	case err == nil:
		course = c
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn().Str("course_id", sess.CourseID.String()).Msg("course not found, alerting student only")
	default:
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	studentName := "A student"
	if u, err := s.users.GetByID(ctx, sess.StudentID); err == nil && strings.TrimSpace(u.FullName) != "" {
		studentName = u.FullName
	}

	studentDetail := models.FocusLossDetail{
		ElapsedMinutes:        in.ElapsedMinutes,
		ThresholdMinutes:      in.ThresholdMinutes,
		AlertThresholdMinutes: in.AlertThresholdMinutes,
		Message: fmt.Sprintf(
			"You've been studying for %d minutes. Your focus usually starts to fade around %d minutes, so now is a good time for a short break.",
			in.ElapsedMinutes, in.ThresholdMinutes),
	}
	student, err := newAlert(sess, sess.StudentID, studentDetail)
	if err != nil {
		return nil, err
	}
	batch := []*models.Alert{student}

	if course != nil && course.InstructorID != nil && *course.InstructorID != sess.StudentID {
		instructorDetail := studentDetail
		instructorDetail.Message = fmt.Sprintf(
			"%s has been studying %s for %d minutes and is approaching their typical focus-loss point of %d minutes.",
			studentName, course.Name, in.ElapsedMinutes, in.ThresholdMinutes)
		instructor, err := newAlert(sess, *course.InstructorID, instructorDetail)
		if err != nil {
			return nil, err
		}
		batch = append(batch, instructor)
	}

	if _, err := s.alerts.CreateWithNotifications(ctx, batch, models.ChannelInApp); err != nil {
		return nil, fmt.Errorf("failed to create focus-loss alerts: %w", err)
	}
	metrics.AlertsCreated.WithLabelValues(string(models.AlertTypeFocusLossApproaching)).Add(float64(len(batch)))
	return batch, nil
}

func newAlert(sess models.ActiveSession, recipient uuid.UUID, detail models.AlertDetail) (*models.Alert, error) {
	raw, err := models.EncodeAlertDetail(detail)
	if err != nil {
		return nil, err
	}
	courseID, sessionID := sess.CourseID, sess.SessionID
	return &models.Alert{
		RecipientID:   recipient,
		StudentID:     sess.StudentID,
		CourseID:      &courseID,
		SessionID:     &sessionID,
		Type:          detail.AlertType(),
		TriggerDetail: raw,
		Status:        models.AlertStatusQueued,
	}, nil
}

// EnqueueNotification is idempotent on (alert, recipient, channel): a repeat
// call returns the row stored by the first one.
func (s *AlertService) EnqueueNotification(ctx context.Context, alertID, recipientID uuid.UUID, channel models.Channel) (*models.Notification, error) {
	if !channel.Valid() {
		return nil, invalid("channel", "must be email or in_app")
	}

	n, created, err := s.queue.Enqueue(ctx, alertID, recipientID, channel)
	if err != nil {
		return nil, err
	}

	result := "created"
	if !created {
		result = "duplicate"
		s.logger.Debug().
			Str("alert_id", alertID.String()).
			Str("recipient_id", recipientID.String()).
			Str("channel", string(channel)).
			Msg("notification already queued")
	}
	metrics.NotificationsEnqueued.WithLabelValues(string(channel), result).Inc()
	return n, nil
}

// TestAlertInput is an ad-hoc alert sent through the email path.
type TestAlertInput struct {
	RequestedBy uuid.UUID
	RecipientID uuid.UUID
	StudentID   uuid.UUID
	CourseID    *uuid.UUID
	Message     string
}

func (s *AlertService) CreateTestAlert(ctx context.Context, in TestAlertInput) (*models.Alert, *models.Notification, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, nil, invalid("message", "is required")
	}
	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &NotFoundError{Message: "Recipient not found"}
		}
		return nil, nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	raw, err := models.EncodeAlertDetail(models.TestAlertDetail{Message: in.Message, RequestedBy: in.RequestedBy})
	if err != nil {
		return nil, nil, err
	}
	alert := &models.Alert{
		RecipientID:   in.RecipientID,
		StudentID:     in.StudentID,
		CourseID:      in.CourseID,
		Type:          models.AlertTypeTest,
		TriggerDetail: raw,
		Status:        models.AlertStatusQueued,
	}

	queued, err := s.alerts.CreateWithNotifications(ctx, []*models.Alert{alert}, models.ChannelEmail)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create test alert: %w", err)
	}
	metrics.AlertsCreated.WithLabelValues(string(models.AlertTypeTest)).Inc()

	var n *models.Notification
	if len(queued) > 0 {
		n = queued[0]
	}
	return alert, n, nil
}

// Feed lists the recipient's newest alerts.
func (s *AlertService) Feed(ctx context.Context, recipientID uuid.UUID) ([]models.Alert, error) {
	return s.alerts.ListForRecipient(ctx, recipientID, alertFeedLimit)
}
