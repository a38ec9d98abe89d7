package services

import (
	"context"
	"errors"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/lib/alerts"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

// RunSummary reports what one batch pass did. Served verbatim by the admin
// endpoint, so field names are part of the JSON surface.
type RunSummary struct {
	Job        string         `json:"job"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Checked    int            `json:"checked"`
	Changed    int            `json:"changed"`
	Sent       int            `json:"sent"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	ByCity     map[string]int `json:"by_city"`
}

// Batch runs the periodic passes over every subscribed address. Failures are
// isolated per address: one broken subscription never stops the run.
type Batch struct {
	store      *store.Store
	dispatcher *Dispatcher
	engine     *alerts.Engine
	now        func() time.Time
}

// NewBatch creates the batch runner.
func NewBatch(st *store.Store, d *Dispatcher, e *alerts.Engine) *Batch {
	return &Batch{
		store:      st,
		dispatcher: d,
		engine:     e,
		now:        time.Now,
	}
}

// WithClock overrides the runner's clock, for tests.
func (b *Batch) WithClock(now func() time.Time) *Batch {
	b.now = now
	return b
}

// CheckSnowStatuses fetches the current snow status for every snow-subscribed
// address, sends whatever alerts the transitions warrant, and advances each
// address's stored baseline. A failed fetch leaves the baseline untouched so
// the missed transition still alerts on the next successful pass.
func (b *Batch) CheckSnowStatuses(ctx context.Context) *RunSummary {
	summary := &RunSummary{
		Job:       "snow_check",
		StartedAt: b.now(),
		ByCity:    make(map[string]int),
	}
	defer func() {
		summary.FinishedAt = b.now()
		logging.Infow(ctx, "batch: snow check finished",
			"checked", summary.Checked, "changed", summary.Changed,
			"sent", summary.Sent, "skipped", summary.Skipped, "errors", summary.Errors)
	}()

	addresses, err := b.store.ActiveAddresses(store.SnowAlerts, "")
	if err != nil {
		logging.Errorw(ctx, "batch: failed to list snow subscriptions", "error", err)
		summary.Errors++
		return summary
	}

	for i := range addresses {
		addr := &addresses[i]
		summary.Checked++
		summary.ByCity[addr.City]++

		report, err := b.dispatcher.SnowStatusForAddress(ctx, addr)
		if err != nil {
			logging.Warnw(ctx, "batch: snow status fetch failed",
				"address_id", addr.ID, "error", err)
			summary.Errors++
			continue
		}
		if report.Code == status.CodeUnknown {
			// Unknown is not a transition; keep the baseline but record
			// that the address was checked.
			summary.Skipped++
			if err := b.store.TouchSnowCheck(addr.ID, b.now()); err != nil {
				logging.Warnw(ctx, "batch: failed to record check time",
					"address_id", addr.ID, "error", err)
				summary.Errors++
			}
			continue
		}

		if string(report.Code) != addr.LastSnowStatus {
			summary.Changed++
		}

		sub, err := b.store.SubscriberByID(addr.SubscriberID)
		if err != nil {
			summary.Errors++
			continue
		}

		outcome, err := b.engine.ProcessSnowTransition(ctx, sub, addr, report)
		if err != nil {
			summary.Errors++
			continue
		}
		b.tally(summary, outcome)

		if err := b.store.UpdateAddressStatus(addr.ID, string(report.Code), b.now()); err != nil {
			logging.Warnw(ctx, "batch: failed to advance status baseline",
				"address_id", addr.ID, "error", err)
			summary.Errors++
		}
	}
	return summary
}

// SendWasteReminders sends a reminder for every waste-subscribed address with
// a collection tomorrow. Dedup is by collection date, so rerunning the batch
// the same evening is harmless.
func (b *Batch) SendWasteReminders(ctx context.Context) *RunSummary {
	summary := &RunSummary{
		Job:       "waste_reminders",
		StartedAt: b.now(),
		ByCity:    make(map[string]int),
	}
	defer func() {
		summary.FinishedAt = b.now()
		logging.Infow(ctx, "batch: waste reminders finished",
			"checked", summary.Checked, "sent", summary.Sent,
			"skipped", summary.Skipped, "errors", summary.Errors)
	}()

	addresses, err := b.store.ActiveAddresses(store.WasteAlerts, "")
	if err != nil {
		logging.Errorw(ctx, "batch: failed to list waste subscriptions", "error", err)
		summary.Errors++
		return summary
	}

	tomorrow := b.now().AddDate(0, 0, 1)
	for i := range addresses {
		addr := &addresses[i]
		summary.Checked++
		summary.ByCity[addr.City]++

		schedule, err := b.dispatcher.WasteScheduleForAddress(ctx, addr)
		if errors.Is(err, sources.ErrNotCovered) {
			// Outside every collection sector: no schedule exists for this
			// point, which is an answer, not a failure.
			summary.Skipped++
			continue
		}
		if err != nil {
			logging.Warnw(ctx, "batch: waste schedule fetch failed",
				"address_id", addr.ID, "error", err)
			summary.Errors++
			continue
		}

		sub, err := b.store.SubscriberByID(addr.SubscriberID)
		if err != nil {
			summary.Errors++
			continue
		}

		for stream, s := range schedule.Streams {
			if s.NextCollection == nil || !sameDay(*s.NextCollection, tomorrow) {
				continue
			}
			outcome, err := b.engine.ProcessWasteReminder(ctx, sub, addr, stream, *s.NextCollection)
			if err != nil {
				summary.Errors++
				continue
			}
			b.tally(summary, outcome)
		}
	}
	return summary
}

func (b *Batch) tally(summary *RunSummary, outcome alerts.Outcome) {
	switch outcome {
	case alerts.OutcomeSent:
		summary.Sent++
	case alerts.OutcomeDeduped, alerts.OutcomeNone:
		summary.Skipped++
	case alerts.OutcomeFailed:
		summary.Errors++
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
