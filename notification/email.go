package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"api-monitor/config"
	"api-monitor/model"
	"api-monitor/pkg/logger"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"
)

var ErrEmailNotConfigured = errors.New("Email notifications not configured. Set RESEND_API_KEY.")

// placeholder keys shipped in sample env files
var placeholderKeys = map[string]bool{
	"YOUR_RESEND_API_KEY":    true,
	"placeholder-resend-key": true,
}

// EmailSender delivers alerts through Resend.
type EmailSender struct {
	client *resend.Client
	from   string
}

func NewEmailSender(cfg config.NotificationConfig) *EmailSender {
	s := &EmailSender{from: fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)}
	if cfg.ResendAPIKey != "" && !placeholderKeys[cfg.ResendAPIKey] {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return s
}

func (s *EmailSender) Type() model.ChannelType { return model.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, channel *model.NotificationChannel, alert Alert) error {
	to := channel.Config[model.ConfigEmail]
	if to == "" {
		return errors.New("Email address not configured")
	}
	if s.client == nil {
		return ErrEmailNotConfigured
	}

	color := "#16a34a"
	statusText := "Service recovered"
	if alert.Status == model.StatusDown {
		color = "#dc2626"
		statusText = "Service outage"
	}
	html, err := RenderAlertEmail(AlertEmailData{
		Name:       alert.MonitorName,
		URL:        alert.MonitorURL,
		Status:     alert.statusText(),
		StatusText: statusText,
		Message:    alert.Message,
		Color:      color,
		SentAt:     alert.SentAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("render alert email: %w", err)
	}

	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] %s", alert.statusText(), alert.MonitorName),
		Html:    html,
	})
	if err != nil {
		return err
	}
	logger.Info("Alert email sent", zap.String("to", to), zap.String("id", resp.Id))
	return nil
}
