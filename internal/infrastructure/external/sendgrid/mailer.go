// Package sendgrid sends transactional email through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"fmt"
	"net/http"

	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/pkg/config"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

// Message is a single outgoing email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// StatusError is a non-2xx answer from SendGrid
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sendgrid: status=%d body=%s", e.Status, e.Body)
}

func (e *StatusError) ResponseStatus() int {
	return e.Status
}

// Mailer sends email. Without an API key it logs and drops every message.
type Mailer struct {
	client *sg.Client
	from   *mail.Email
	retry  []retry.Option
	logger *zap.Logger
}

// NewMailer creates a mailer
func NewMailer(cfg config.SendGridConfig, logger *zap.Logger, opts ...retry.Option) *Mailer {
	m := &Mailer{
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		retry:  append([]retry.Option{retry.WithLogger(logger)}, opts...),
		logger: logger,
	}
	if cfg.APIKey != "" {
		m.client = sg.NewSendClient(cfg.APIKey)
	}
	return m
}

// Enabled reports whether messages are actually delivered
func (m *Mailer) Enabled() bool {
	return m.client != nil
}

// Send delivers msg, retrying throttled and transient failures
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		m.logger.Debug("email.disabled", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject))
		return nil
	}

	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	_, err := retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		resp, err := m.client.SendWithContext(ctx, email)
		if err != nil {
			return struct{}{}, fmt.Errorf("sendgrid request: %w", err)
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return struct{}{}, &StatusError{Status: resp.StatusCode, Body: resp.Body}
		}
		return struct{}{}, nil
	}, m.retry...)
	if err != nil {
		return err
	}

	m.logger.Info("email.sent", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject))
	return nil
}
