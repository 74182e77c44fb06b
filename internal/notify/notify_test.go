package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/database/dbtest"
	"grahalia-estates/internal/logging"
	"grahalia-estates/internal/models"
)

type fakeSender struct {
	sent []models.Notification
	err  error
}

func (f *fakeSender) Send(n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *n)
	return nil
}

func TestLeadAlert(t *testing.T) {
	pid := uint(12)
	n := LeadAlert(&models.Lead{
		ID:           7,
		Name:         "Ana",
		Phone:        "+34 600",
		Email:        "ana@example.com",
		Lang:         "es",
		Source:       models.LeadSourceWebsite,
		PageURL:      "https://site/es/properties/x",
		PropertyID:   &pid,
		PropertySlug: "x-ge-000012",
	}, "sales@example.com")

	assert.Equal(t, models.NotificationLeadAlert, n.Kind)
	assert.Equal(t, "sales@example.com", n.Recipient)
	assert.Equal(t, "New lead #7 — Ana", n.Subject)
	assert.Equal(t, "New lead received\n\n"+
		"Name: Ana\nPhone: +34 600\nEmail: ana@example.com\nLang: es\nSource: website\n"+
		"Page: https://site/es/properties/x\nProperty: x-ge-000012 (id: 12)\n\nMessage:\n—\n", n.Body)
	require.NotNil(t, n.LeadID)
	assert.Equal(t, uint(7), *n.LeadID)

	n = LeadAlert(&models.Lead{Name: "Bob"}, "x@example.com")
	assert.Equal(t, "New lead #— — Bob", n.Subject)
	assert.Contains(t, n.Body, "Property: — (id: —)")
	assert.Nil(t, n.LeadID)
}

func TestLeadsExportMessage(t *testing.T) {
	n := LeadsExport("admin@example.com", "leads-2026-01-10.csv", "\ufeffid\n", 0, "", "")
	assert.Equal(t, "Leads export (0)", n.Subject)
	assert.Equal(t, "CSV export attached.\n\nFilters:\nstatus: all\nq: —\nrows: 0\n", n.Body)
	assert.Equal(t, "leads-2026-01-10.csv", n.AttachmentName)

	var buf bytes.Buffer
	_, err := BuildMessage("site@example.com", n).WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "To: admin@example.com")
	assert.Contains(t, raw, "Subject: Leads export (0)")
	assert.Contains(t, raw, `filename="leads-2026-01-10.csv"`)
	assert.Contains(t, raw, "text/csv; charset=utf-8")
}

func TestMailerDisabledWithoutHost(t *testing.T) {
	m := NewMailer(config.MailConfig{Port: 465})
	assert.ErrorIs(t, m.Send(&models.Notification{}), ErrMailDisabled)
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, logging.Discard())
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.True(t, cb.CanProceed())
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.True(t, cb.CanProceed(), "success resets the streak")
	cb.RecordFailure()
	assert.False(t, cb.CanProceed())
	assert.True(t, cb.Status().Open)

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
	assert.False(t, cb.Status().Open)
}

func newWorker(t *testing.T, sender Sender) (*Worker, *Outbox, *time.Time) {
	db := dbtest.New(t)
	now := time.Now().UTC()
	w := NewWorker(db, sender, time.Second, 3, logging.Discard())
	w.now = func() time.Time { return now }
	return w, NewOutbox(db, logging.Discard()), &now
}

func TestWorkerDeliversPending(t *testing.T) {
	sender := &fakeSender{}
	w, outbox, _ := newWorker(t, sender)
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, LeadAlert(&models.Lead{ID: 1, Name: "A"}, "s@example.com")))
	require.NoError(t, outbox.Enqueue(ctx, LeadAlert(&models.Lead{ID: 2, Name: "B"}, "s@example.com")))

	for i := 0; i < 2; i++ {
		processed, err := w.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, processed)
	}
	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "New lead #1 — A", sender.sent[0].Subject)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Done)
	assert.Equal(t, int64(0), stats.Pending)
}

func TestWorkerRetriesWithBackoffThenGivesUp(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	w, outbox, now := newWorker(t, sender)
	w.breaker = NewCircuitBreaker(100, time.Minute, logging.Discard())
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, LeadAlert(&models.Lead{ID: 1, Name: "A"}, "s@example.com")))

	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	var item models.Notification
	require.NoError(t, w.db.First(&item).Error)
	assert.Equal(t, models.QueueStatusFailed, item.Status)
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, "connection refused", item.LastError)
	require.NotNil(t, item.NextRetryAt)

	processed, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed, "not due yet")

	for attempt := 2; attempt <= 3; attempt++ {
		*now = now.Add(13 * time.Hour)
		processed, err = w.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}

	require.NoError(t, w.db.First(&item).Error)
	assert.Equal(t, models.QueueStatusPermanentFail, item.Status)
	assert.Equal(t, 3, item.Attempts)
	assert.NotNil(t, item.CompletedAt)
}

func TestWorkerPausesWhenBreakerOpens(t *testing.T) {
	sender := &fakeSender{err: errors.New("timeout")}
	w, outbox, _ := newWorker(t, sender)
	w.breaker = NewCircuitBreaker(1, time.Hour, logging.Discard())
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, &models.Notification{Kind: models.NotificationLeadAlert, Recipient: "a@example.com", Subject: "a", Body: "a"}))
	require.NoError(t, outbox.Enqueue(ctx, &models.Notification{Kind: models.NotificationLeadAlert, Recipient: "b@example.com", Subject: "b", Body: "b"}))

	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.True(t, w.BreakerStatus().Open)
}

func TestWorkerDisabledMailFailsPermanently(t *testing.T) {
	w, outbox, _ := newWorker(t, NewMailer(config.MailConfig{}))
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, LeadsExport("a@example.com", "x.csv", "id\n", 0, "new", "")))

	_, err := w.ProcessNext(ctx)
	require.NoError(t, err)

	var item models.Notification
	require.NoError(t, w.db.First(&item).Error)
	assert.Equal(t, models.QueueStatusPermanentFail, item.Status)
}

func TestRecoverStale(t *testing.T) {
	w, _, now := newWorker(t, &fakeSender{})
	ctx := context.Background()

	stale := models.Notification{Kind: "k", Recipient: "r", Subject: "s", Body: "b", Status: models.QueueStatusProcessing, UpdatedAt: now.Add(-time.Hour)}
	fresh := models.Notification{Kind: "k", Recipient: "r", Subject: "s", Body: "b", Status: models.QueueStatusProcessing, UpdatedAt: now.Add(-time.Minute)}
	require.NoError(t, w.db.Create(&stale).Error)
	require.NoError(t, w.db.Create(&fresh).Error)

	n, err := w.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	processed, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed, "recovered row is due immediately")
}

func TestWorkerStartStop(t *testing.T) {
	w, _, _ := newWorker(t, &fakeSender{})
	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
