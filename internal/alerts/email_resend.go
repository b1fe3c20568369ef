package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers alert emails through the Resend API, as an
// alternative to direct SMTP.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

func NewResendSender(apiKey, from string, logger *slog.Logger) *ResendSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger.With("component", "resend_sender"),
	}
}

// SendEmail sends one message covering all recipients.
func (s *ResendSender) SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) error {
	recipients = uniqueAddresses(recipients)
	if len(recipients) == 0 {
		return nil
	}
	if s.from == "" {
		return fmt.Errorf("resend sender is missing a from address")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      recipients,
		Subject: subject,
		Html:    htmlBody,
	}
	result, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	s.logger.Debug("email sent via resend", "email_id", result.Id, "recipients", len(recipients))
	return nil
}
