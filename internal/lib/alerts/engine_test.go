package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/mailer"
	"github.com/alertmtl/server/internal/store"
)

type fakeSender struct {
	sent    []sentMail
	succeed bool
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) (mailer.Result, error) {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	if f.succeed {
		return mailer.Result{Success: true, MessageID: "msg-123"}, nil
	}
	return mailer.Result{Success: false, Error: "mailbox on fire"}, nil
}

func testContext() context.Context {
	return logging.EnsureLogger(context.Background())
}

func setup(t *testing.T, succeed bool) (*Engine, *fakeSender, *store.Store, *store.Subscriber, *store.Address, *time.Time) {
	t.Helper()

	st, err := store.OpenInMemory(5)
	require.NoError(t, err)

	sub, err := st.Subscribe("test@example.com")
	require.NoError(t, err)
	addr := &store.Address{City: "montreal", PostalCode: "H2X1Y6", StreetName: "Saint-Denis", CivicNumber: 3700}
	require.NoError(t, st.AddAddress(sub.ID, addr))

	sender := &fakeSender{succeed: succeed}
	now := time.Date(2026, 1, 15, 7, 0, 0, 0, time.UTC)
	engine := New(st, sender, 24*time.Hour, "https://alerts.example.com").
		WithClock(func() time.Time { return now })

	return engine, sender, st, sub, addr, &now
}

func montrealReport(code status.Code) status.Report {
	return status.Report{
		City:    city.Montreal,
		CityTag: "montreal",
		Code:    code,
		Display: status.DisplayFor(code),
		Message: status.Message(code),
	}
}

func TestProcessSnowTransition_SendsUrgentAlert(t *testing.T) {
	engine, sender, st, sub, addr, now := setup(t, true)
	addr.LastSnowStatus = string(status.CodeScheduled)

	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "test@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].subject, "Snow removal in progress")
	assert.Contains(t, sender.sent[0].body, "3700 Saint-Denis")
	assert.Contains(t, sender.sent[0].body, sub.UnsubscribeToken, "unsubscribe link carries the token")

	recent, err := st.HasRecentAlert(addr.ID, string(status.AlertSnowUrgent), 24*time.Hour, *now)
	require.NoError(t, err)
	assert.True(t, recent, "ledger records the send")
}

func TestProcessSnowTransition_BaselineNeverAlerts(t *testing.T) {
	engine, sender, _, sub, addr, _ := setup(t, true)
	addr.LastSnowStatus = ""

	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)
	assert.Empty(t, sender.sent)
}

func TestProcessSnowTransition_UnchangedIsNoOp(t *testing.T) {
	engine, sender, _, sub, addr, _ := setup(t, true)
	addr.LastSnowStatus = string(status.CodeInProgress)

	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNone, outcome)
	assert.Empty(t, sender.sent)
}

func TestProcessSnowTransition_DedupWindowBlocksRepeat(t *testing.T) {
	engine, sender, st, sub, addr, _ := setup(t, true)
	addr.LastSnowStatus = string(status.CodeScheduled)

	// An urgent alert went out ten minutes ago.
	require.NoError(t, st.RecordAlert(&store.AlertRecord{
		AddressID: addr.ID,
		AlertType: string(status.AlertSnowUrgent),
		SentAt:    time.Date(2026, 1, 15, 6, 50, 0, 0, time.UTC),
		Delivered: true,
	}))

	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeduped, outcome)
	assert.Empty(t, sender.sent)
}

func TestProcessSnowTransition_DifferentTypeHasOwnWindow(t *testing.T) {
	engine, sender, st, sub, addr, _ := setup(t, true)
	addr.LastSnowStatus = string(status.CodeInProgress)

	require.NoError(t, st.RecordAlert(&store.AlertRecord{
		AddressID: addr.ID,
		AlertType: string(status.AlertSnowUrgent),
		SentAt:    time.Date(2026, 1, 15, 6, 50, 0, 0, time.UTC),
		Delivered: true,
	}))

	// The street finishing is a different alert type; the urgent window
	// does not block it.
	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeCleared))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Len(t, sender.sent, 1)
}

func TestProcessSnowTransition_FailedSendConsumesSlot(t *testing.T) {
	engine, sender, _, sub, addr, _ := setup(t, false)
	addr.LastSnowStatus = string(status.CodeScheduled)

	outcome, err := engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	require.Len(t, sender.sent, 1)

	// The failed attempt occupies the dedup slot; the flapping upstream
	// cannot trigger a resend inside the window.
	outcome, err = engine.ProcessSnowTransition(testContext(), sub, addr, montrealReport(status.CodeInProgress))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeduped, outcome)
	assert.Len(t, sender.sent, 1, "no second delivery attempt")
}

func TestProcessWasteReminder_DedupsOnCollectionDate(t *testing.T) {
	engine, sender, _, sub, addr, _ := setup(t, true)
	pickup := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)

	outcome, err := engine.ProcessWasteReminder(testContext(), sub, addr, "garbage", pickup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].subject, "Garbage collection tomorrow")

	// Rerunning the batch the same evening changes nothing.
	outcome, err = engine.ProcessWasteReminder(testContext(), sub, addr, "garbage", pickup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeduped, outcome)
	assert.Len(t, sender.sent, 1)

	// Next week's pickup is a fresh date key.
	outcome, err = engine.ProcessWasteReminder(testContext(), sub, addr, "garbage", pickup.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Len(t, sender.sent, 2)
}

func TestProcessWasteReminder_StreamsShareACollectionDay(t *testing.T) {
	engine, sender, _, sub, addr, _ := setup(t, true)
	pickup := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)

	outcome, err := engine.ProcessWasteReminder(testContext(), sub, addr, "garbage", pickup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	// Recycling falls on the same day; the garbage reminder must not
	// swallow it.
	outcome, err = engine.ProcessWasteReminder(testContext(), sub, addr, "recycling", pickup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].subject, "Recycling collection tomorrow")

	// Each stream still dedups against itself.
	outcome, err = engine.ProcessWasteReminder(testContext(), sub, addr, "recycling", pickup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeduped, outcome)
	assert.Len(t, sender.sent, 2)
}
