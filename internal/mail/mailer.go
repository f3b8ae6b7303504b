package mail

import (
	"context"
	"fmt"

	"github.com/pictor-board/pictor/jobs"
)

// Mailer dispatches outbound mail for the job layer. Implementations must be
// safe to call from inside a request; a nil error means the mail is on its
// way out regardless of what the caller does afterwards.
type Mailer interface {
	SendAccountConfirmation(ctx context.Context, to, userName, token string) error
}

// QueueMailer enqueues mail through the background queue.
type QueueMailer struct {
	client  *jobs.Client
	baseURL string
}

// NewQueueMailer constructs a QueueMailer. baseURL is the public address the
// confirmation link points at.
func NewQueueMailer(client *jobs.Client, baseURL string) *QueueMailer {
	return &QueueMailer{client: client, baseURL: baseURL}
}

// SendAccountConfirmation mails an email-confirmation link.
func (m *QueueMailer) SendAccountConfirmation(ctx context.Context, to, userName, token string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nTo confirm your e-mail address, visit:\n%s/confirm-email/%s\n",
		userName, m.baseURL, token)
	_, err := m.client.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      to,
		Subject: "E-mail confirmation",
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("mail: enqueue confirmation: %w", err)
	}
	return nil
}
