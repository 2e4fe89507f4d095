package services

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studypulse-backend/internal/models"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
	logger      zerolog.Logger
}

type EmailConfig struct {
	Host        string
	Port        string
	User        string
	Pass        string
	From        string
	FrontendURL string
}

func NewEmailService(cfg EmailConfig, logger *zerolog.Logger) *EmailService {
	l := logger.With().Str("component", "email").Logger()
	devMode := cfg.Host == "" || cfg.User == ""
	if devMode {
		l.Warn().Msg("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        cfg.Host,
		port:        cfg.Port,
		user:        cfg.User,
		pass:        cfg.Pass,
		from:        cfg.From,
		frontendURL: cfg.FrontendURL,
		devMode:     devMode,
		logger:      l,
	}
}

// SendAlertEmail renders the alert and returns the Message-ID it was sent with.
func (s *EmailService) SendAlertEmail(ctx context.Context, to, recipientName string, alert *models.Alert) (string, error) {
	subject := "StudyPulse: time for a break"
	heading := "Focus check-in"
	if alert.Type == models.AlertTypeTest {
		subject = "StudyPulse alert"
		heading = "Alert"
	}

	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "there"
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #0ea5e9 0%%, #6366f1 100%%); padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">StudyPulse</h1>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">%s</h2>
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 16px;">Hi %s,</p>
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">%s</p>
      <a href="%s/dashboard" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Open StudyPulse
      </a>
    </div>
  </div>
</body>
</html>`, heading, html.EscapeString(name), html.EscapeString(alert.Message()), s.frontendURL)

	return s.sendHTML(ctx, to, subject, body)
}

func (s *EmailService) sendHTML(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.messageDomain())

	if s.devMode {
		s.logger.Info().Str("to", to).Str("subject", subject).Str("message_id", messageID).Msg("📧 [DEV EMAIL]")
		s.logger.Debug().Msg(htmlBody)
		return messageID, nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		fmt.Sprintf("Message-ID: %s", messageID),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message)); err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("📧 Email sent")
	return messageID, nil
}

func (s *EmailService) messageDomain() string {
	if _, domain, ok := strings.Cut(s.from, "@"); ok && domain != "" {
		return strings.TrimSuffix(domain, ">")
	}
	return "studypulse.local"
}
