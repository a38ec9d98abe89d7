// Package alerts is the decision engine: given a status transition or an
// upcoming collection, it decides whether a notification goes out, sends it,
// and records the attempt in the ledger. Every send attempt is recorded,
// delivered or not, so a failed send still consumes its dedup slot and a
// flapping upstream cannot turn into an email storm.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/mailer"
	"github.com/alertmtl/server/internal/store"
)

// Outcome explains what the engine did with one evaluation.
type Outcome string

const (
	OutcomeNone    Outcome = "none"    // no alert-worthy transition
	OutcomeDeduped Outcome = "deduped" // alert suppressed by the ledger
	OutcomeSent    Outcome = "sent"    // delivered
	OutcomeFailed  Outcome = "failed"  // attempted, delivery failed
)

// Engine owns alert policy. It is deliberately synchronous: the batch runner
// and the HTTP handlers call it inline and get a definite outcome back.
type Engine struct {
	store       *store.Store
	sender      mailer.Sender
	dedupWindow time.Duration
	appURL      string
	now         func() time.Time
}

// New creates an engine. dedupWindow bounds repeat snow alerts of the same
// type per address; waste reminders dedup on their collection date instead.
func New(st *store.Store, sender mailer.Sender, dedupWindow time.Duration, appURL string) *Engine {
	return &Engine{
		store:       st,
		sender:      sender,
		dedupWindow: dedupWindow,
		appURL:      appURL,
		now:         time.Now,
	}
}

// WithClock overrides the engine's clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ProcessSnowTransition evaluates a snow status change for one address and
// sends the alert it warrants, if any. The previous status comes from the
// address row; an empty previous status is a baseline observation and never
// alerts.
func (e *Engine) ProcessSnowTransition(ctx context.Context, sub *store.Subscriber, addr *store.Address, report status.Report) (Outcome, error) {
	alertType := status.ClassifyTransition(report.City, status.Code(addr.LastSnowStatus), report.Code)
	if alertType == status.AlertNone {
		return OutcomeNone, nil
	}

	recent, err := e.store.HasRecentAlert(addr.ID, string(alertType), e.dedupWindow, e.now())
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to check alert history: %w", err)
	}
	if recent {
		logging.Infow(ctx, "alerts: suppressed duplicate snow alert",
			"address_id", addr.ID, "alert_type", alertType)
		return OutcomeDeduped, nil
	}

	subject, body := e.composeSnowEmail(sub, addr, report, alertType)
	return e.deliver(ctx, sub, addr, alertType, string(report.Code), nil, subject, body)
}

// ProcessWasteReminder sends a collection reminder for one address and
// stream, deduplicating on (stream, collection date): one reminder per
// address per stream per pickup, regardless of when or how often the batch
// runs. Streams sharing a collection day each get their own reminder.
func (e *Engine) ProcessWasteReminder(ctx context.Context, sub *store.Subscriber, addr *store.Address, stream string, collectionDate time.Time) (Outcome, error) {
	already, err := e.store.HasAlertForDate(addr.ID, string(status.AlertWasteReminder), stream, collectionDate)
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to check alert history: %w", err)
	}
	if already {
		return OutcomeDeduped, nil
	}

	subject, body := e.composeWasteEmail(sub, addr, stream, collectionDate)
	return e.deliver(ctx, sub, addr, status.AlertWasteReminder, stream, &collectionDate, subject, body)
}

// deliver sends and then records, unconditionally. The ledger row is the
// dedup slot; writing it after a failed send is what keeps retries bounded.
func (e *Engine) deliver(ctx context.Context, sub *store.Subscriber, addr *store.Address, alertType status.AlertType, statusCode string, refDate *time.Time, subject, body string) (Outcome, error) {
	result, err := e.sender.Send(ctx, sub.Email, subject, body)
	if err != nil {
		// Context cancellation: nothing was attempted to completion, so
		// no ledger row and no consumed slot.
		return OutcomeNone, err
	}

	record := &store.AlertRecord{
		AddressID:     addr.ID,
		City:          addr.City,
		AlertType:     string(alertType),
		Status:        statusCode,
		SentAt:        e.now(),
		ReferenceDate: refDate,
		Delivered:     result.Success,
		MessageID:     result.MessageID,
		ErrorMessage:  result.Error,
	}
	if err := e.store.RecordAlert(record); err != nil {
		return OutcomeNone, fmt.Errorf("failed to record alert: %w", err)
	}

	if !result.Success {
		logging.Warnw(ctx, "alerts: delivery failed, slot consumed",
			"address_id", addr.ID, "alert_type", alertType, "error", result.Error)
		return OutcomeFailed, nil
	}
	logging.Infow(ctx, "alerts: alert sent",
		"address_id", addr.ID, "alert_type", alertType, "message_id", result.MessageID)
	return OutcomeSent, nil
}

func (e *Engine) composeSnowEmail(sub *store.Subscriber, addr *store.Address, report status.Report, alertType status.AlertType) (subject, body string) {
	place := addr.Place()
	display := status.DisplayFor(report.Code)

	switch alertType {
	case status.AlertSnowUrgent:
		subject = fmt.Sprintf("🚨 Snow removal in progress — %s", place)
	case status.AlertSnowScheduled:
		subject = fmt.Sprintf("❄️ Snow removal scheduled — %s", place)
	case status.AlertSnowCleared:
		subject = fmt.Sprintf("✅ Street cleared — %s", place)
	default:
		subject = fmt.Sprintf("Snow removal update — %s", place)
	}

	schedule := ""
	if report.ScheduledStart != nil {
		schedule = fmt.Sprintf("<p>Planned start: <strong>%s</strong></p>",
			report.ScheduledStart.Format("Mon Jan 2, 3:04 PM"))
		if report.ScheduledEnd != nil {
			schedule += fmt.Sprintf("<p>Planned end: <strong>%s</strong></p>",
				report.ScheduledEnd.Format("Mon Jan 2, 3:04 PM"))
		}
	}

	body = fmt.Sprintf(`<h2>%s</h2>
<p>Status for <strong>%s</strong>: <strong>%s</strong> (%s)</p>
<p>%s</p>
%s
%s`,
		subject, place, display.LabelEN, display.LabelFR,
		status.Message(report.Code), schedule, e.footer(sub))
	return subject, body
}

func (e *Engine) composeWasteEmail(sub *store.Subscriber, addr *store.Address, stream string, collectionDate time.Time) (subject, body string) {
	place := addr.Place()
	label := streamLabel(stream)
	subject = fmt.Sprintf("♻️ %s collection tomorrow — %s", label, place)
	body = fmt.Sprintf(`<h2>%s</h2>
<p>%s collection for <strong>%s</strong> is scheduled for <strong>%s</strong>.</p>
<p>Put your bin out tonight or before 7 AM.</p>
%s`,
		subject, label, place, collectionDate.Format("Monday, January 2"), e.footer(sub))
	return subject, body
}

func (e *Engine) footer(sub *store.Subscriber) string {
	return fmt.Sprintf(`<hr><p style="font-size:12px;color:#666">You are receiving this because you subscribed to municipal alerts. <a href="%s/unsubscribe?token=%s">Unsubscribe</a></p>`,
		e.appURL, sub.UnsubscribeToken)
}

func streamLabel(stream string) string {
	switch stream {
	case "garbage":
		return "Garbage"
	case "recycling":
		return "Recycling"
	case "organic":
		return "Organic waste"
	case "green":
		return "Green waste"
	default:
		return "Waste"
	}
}
