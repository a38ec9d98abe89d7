// Package mailer delivers alert emails. Retry policy lives here: the
// decision engine calls Send once per decision and treats the result as
// final, so bounded exponential backoff against transient provider errors is
// this package's responsibility.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dpup/prefab/logging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Result reports the outcome of one delivery attempt.
type Result struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender is the delivery contract the decision engine depends on.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (Result, error)
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client     *sendgrid.Client
	from       *mail.Email
	maxRetries uint64
}

// NewSendGridSender creates a sender. maxRetries bounds the backoff loop per
// message.
func NewSendGridSender(apiKey, senderName, senderAddress string, maxRetries uint64) *SendGridSender {
	return &SendGridSender{
		client:     sendgrid.NewSendClient(apiKey),
		from:       mail.NewEmail(senderName, senderAddress),
		maxRetries: maxRetries,
	}
}

// Send delivers one HTML email, retrying transient failures with exponential
// backoff. A non-2xx response after all retries yields Success=false with the
// provider's error text; the error return is reserved for context
// cancellation and programming errors.
func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) (Result, error) {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), "", htmlBody)

	var messageID string
	operation := func() error {
		resp, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == 429 {
			// Server-side or rate-limit trouble is worth retrying.
			return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
		}
		if resp.StatusCode >= 400 {
			// Client errors will not improve on retry.
			return backoff.Permanent(fmt.Errorf("sendgrid rejected message (%d): %s", resp.StatusCode, resp.Body))
		}
		if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
			messageID = ids[0]
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), s.maxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return Result{Success: false, Error: err.Error()}, ctx.Err()
		}
		logging.Warnw(ctx, "mailer: delivery failed", "to", to, "error", err)
		return Result{Success: false, Error: err.Error()}, nil
	}

	logging.Infow(ctx, "mailer: message delivered", "to", to, "message_id", messageID)
	return Result{Success: true, MessageID: messageID}, nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	return b
}
