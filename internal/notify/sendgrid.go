package notify

import (
	"context"
	"fmt"

	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridSender delivers email through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgridSender constructs the sender from config.
func NewSendgridSender(cfg config.SendgridConfig) (*SendgridSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, fmt.Errorf("sendgrid from email is required")
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail("Aspida", cfg.DefaultFrom),
	}, nil
}

// SendEmail sends a plain-text message to the recipient.
func (s *SendgridSender) SendEmail(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), body, body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", response.StatusCode)
	}
	return nil
}
