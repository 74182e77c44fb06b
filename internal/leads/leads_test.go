package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/database/dbtest"
	"grahalia-estates/internal/logging"
	"grahalia-estates/internal/models"
	"grahalia-estates/internal/ratelimit"
)

type fakeNotifier struct {
	queued []*models.Notification
	err    error
}

func (f *fakeNotifier) Enqueue(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, n)
	return nil
}

var now = time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

func newService(t *testing.T, cfg config.LeadsConfig, adminEmail string) (*Service, *fakeNotifier, *gorm.DB) {
	db := dbtest.New(t)
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = 5
		cfg.RateLimitWindowMinutes = 10
	}
	limiter := ratelimit.NewLeadLimiter(db, cfg.RateLimitMax, cfg.RateLimitWindow())
	n := &fakeNotifier{}
	svc := NewService(db, limiter, n, cfg, adminEmail, logging.Discard())
	svc.now = func() time.Time { return now }
	return svc, n, db
}

func validInput() Input {
	return Input{
		Name:    " Ana ",
		Phone:   "+34 600 000 000",
		Email:   "ana@example.com",
		Lang:    "es",
		PageURL: "https://grahalia.example/es/properties/villa-ge-000001",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		err    error
	}{
		{"missing name", func(in *Input) { in.Name = "  " }, ErrMissingFields},
		{"missing page", func(in *Input) { in.PageURL = "" }, ErrMissingFields},
		{"bad email", func(in *Input) { in.Email = "ana@example" }, ErrInvalidEmail},
		{"email with space", func(in *Input) { in.Email = "a na@example.com" }, ErrInvalidEmail},
		{"bad lang", func(in *Input) { in.Lang = "fr" }, ErrInvalidLang},
		{"bad property id", func(in *Input) { in.PropertyID = json.RawMessage(`"abc"`) }, ErrInvalidPropertyID},
		{"negative property id", func(in *Input) { in.PropertyID = json.RawMessage(`-4`) }, ErrInvalidPropertyID},
		{"object property id", func(in *Input) { in.PropertyID = json.RawMessage(`{}`) }, ErrInvalidPropertyID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := Validate(in)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	lead, err := Validate(validInput())
	require.NoError(t, err)
	assert.Equal(t, "Ana", lead.Name)
	assert.Nil(t, lead.PropertyID)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, models.LeadSourceWebsite, lead.Source)
}

func TestParsePropertyID(t *testing.T) {
	for raw, want := range map[string]uint{`12`: 12, `"34"`: 34, ` 5 `: 5} {
		id, err := parsePropertyID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		require.NotNil(t, id, raw)
		assert.Equal(t, want, *id)
	}
	for _, raw := range []string{``, `null`, `""`} {
		id, err := parsePropertyID(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Nil(t, id)
	}
}

func TestSubmitRateLimitsSixthAttempt(t *testing.T) {
	svc, _, db := newService(t, config.LeadsConfig{}, "")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(ctx, "203.0.113.9", validInput())
		require.NoError(t, err, "submission %d", i+1)
	}
	_, err := svc.Submit(ctx, "203.0.113.9", validInput())
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = svc.Submit(ctx, "198.51.100.1", validInput())
	assert.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.Equal(t, int64(6), count)
}

func TestInvalidSubmissionsDoNotConsumeAllowance(t *testing.T) {
	svc, _, _ := newService(t, config.LeadsConfig{RateLimitMax: 1, RateLimitWindowMinutes: 10}, "")
	ctx := context.Background()

	bad := validInput()
	bad.Email = "nope"
	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, "ip", bad)
		assert.ErrorIs(t, err, ErrInvalidEmail)
	}
	_, err := svc.Submit(ctx, "ip", validInput())
	assert.NoError(t, err)
}

func TestSubmitQueuesAlertWhenConfigured(t *testing.T) {
	svc, n, _ := newService(t, config.LeadsConfig{NotifyTo: "sales@example.com"}, "")
	in := validInput()
	in.PropertyID = json.RawMessage(`7`)
	in.PropertySlug = "villa-ge-000007"

	lead, err := svc.Submit(context.Background(), "ip", in)
	require.NoError(t, err)
	require.NotNil(t, lead.PropertyID)
	assert.Equal(t, now, lead.CreatedAt)

	require.Len(t, n.queued, 1)
	assert.Equal(t, "sales@example.com", n.queued[0].Recipient)
	assert.Contains(t, n.queued[0].Body, "Property: villa-ge-000007 (id: 7)")

	svc, n, _ = newService(t, config.LeadsConfig{}, "")
	_, err = svc.Submit(context.Background(), "ip", validInput())
	require.NoError(t, err)
	assert.Empty(t, n.queued, "no recipient, no mail")
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	svc, n, _ := newService(t, config.LeadsConfig{NotifyTo: "sales@example.com"}, "")
	n.err = errors.New("queue down")

	_, err := svc.Submit(context.Background(), "ip", validInput())
	assert.NoError(t, err)
}

func seedLeads(t *testing.T, db *gorm.DB) []models.Lead {
	processedAt := now.Add(-time.Hour)
	pid := uint(3)
	leads := []models.Lead{
		{Name: "Ana Ruiz", Phone: "600", Email: "ana@example.com", Lang: "es", PageURL: "/es", Status: models.LeadStatusNew, Source: "website", CreatedAt: now.Add(-3 * time.Hour)},
		{Name: "Bob", Phone: "700", Email: "bob@example.com", Lang: "en", PageURL: "/en/properties/sea-villa-ge-000003", PropertyID: &pid, PropertySlug: "sea-villa-ge-000003", Status: models.LeadStatusProcessed, Source: "website", ProcessedAt: &processedAt, CreatedAt: now.Add(-2 * time.Hour)},
		{Name: "Carla", Phone: "800", Email: "CARLA@example.com", Lang: "en", PageURL: "/en", Message: "Hello, \"quoted\"\nsecond line", Status: models.LeadStatusNew, Source: "website", CreatedAt: now.Add(-1 * time.Hour)},
	}
	require.NoError(t, db.Create(&leads).Error)
	return leads
}

func TestListFilters(t *testing.T) {
	svc, _, db := newService(t, config.LeadsConfig{}, "")
	seeded := seedLeads(t, db)
	ctx := context.Background()

	names := func(f Filter) []string {
		leads, err := svc.List(ctx, f)
		require.NoError(t, err)
		var out []string
		for _, l := range leads {
			out = append(out, l.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Carla", "Bob", "Ana Ruiz"}, names(Filter{}))
	assert.Equal(t, []string{"Carla", "Ana Ruiz"}, names(Filter{Status: "new"}))
	assert.Equal(t, []string{"Bob"}, names(Filter{Status: "PROCESSED"}))
	assert.Equal(t, []string{"Carla"}, names(Filter{Q: "carla@"}))
	assert.Equal(t, []string{"Bob"}, names(Filter{Q: "SEA-VILLA"}))
	assert.Equal(t, []string{"Ana Ruiz"}, names(Filter{Status: "new", Q: "ruiz"}))
	assert.Nil(t, names(Filter{Status: "processed", Q: "ana"}))

	// Wildcards in the search text are literal.
	assert.Nil(t, names(Filter{Q: "%"}))
	assert.Nil(t, names(Filter{Q: "a_a"}))
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", seeded[1].ID).Update("name", "Bob 100%_sure!").Error)
	assert.Equal(t, []string{"Bob 100%_sure!"}, names(Filter{Q: "100%_sure!"}))
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", seeded[1].ID).Update("name", "Bob").Error)

	// Legacy rows with an unexpected status still count as new.
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", seeded[0].ID).Update("status", "contacted").Error)
	assert.Equal(t, []string{"Carla", "Ana Ruiz"}, names(Filter{Status: "new"}))
}

func TestParseFilter(t *testing.T) {
	f := ParseFilter("weird", "  "+strings.Repeat("x", 100)+"  ")
	assert.Equal(t, StatusAll, f.Status)
	assert.Len(t, f.Q, 80)
}

func TestMarkProcessed(t *testing.T) {
	svc, _, db := newService(t, config.LeadsConfig{}, "")
	seeded := seedLeads(t, db)
	ctx := context.Background()

	changed, err := svc.MarkProcessed(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.True(t, changed)

	lead, err := svc.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusProcessed, lead.Status)
	require.NotNil(t, lead.ProcessedAt)
	assert.True(t, lead.ProcessedAt.Equal(now))

	changed, err = svc.MarkProcessed(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.False(t, changed, "already processed")
	lead, err = svc.Get(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.True(t, lead.ProcessedAt.Equal(now.Add(-time.Hour)), "processed_at is kept")

	_, err = svc.MarkProcessed(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{New: 1, Processed: 2, Total: 3}, *counts)
}

func TestExportCSV(t *testing.T) {
	svc, n, db := newService(t, config.LeadsConfig{}, "admin@example.com")
	seedLeads(t, db)

	var out bytes.Buffer
	exp, err := svc.ExportCSV(context.Background(), Filter{Status: "new"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "leads-2026-02-14.csv", exp.Filename)
	assert.Equal(t, 2, exp.Rows)

	csv := out.String()
	require.True(t, strings.HasPrefix(csv, "\ufeffid,created_at,processed_at,status,source,name,email,phone,lang,page_url,property_id,property_slug,message\n"))
	assert.Contains(t, csv, "\n3,2026-02-14T09:30:00Z,,new,website,Carla,CARLA@example.com,800,en,/en,,,\"Hello, \"\"quoted\"\"\nsecond line\"\n")
	assert.True(t, strings.HasSuffix(csv, "1,2026-02-14T07:30:00Z,,new,website,Ana Ruiz,ana@example.com,600,es,/es,,,"))

	require.Len(t, n.queued, 1)
	mail := n.queued[0]
	assert.Equal(t, "admin@example.com", mail.Recipient)
	assert.Equal(t, "Leads export (2)", mail.Subject)
	assert.Equal(t, "CSV export attached.\n\nFilters:\nstatus: new\nq: —\nrows: 2\n", mail.Body)
	assert.Equal(t, csv, mail.Attachment)
}

func TestExportEmptyStillHasHeader(t *testing.T) {
	svc, n, _ := newService(t, config.LeadsConfig{}, "")

	var out bytes.Buffer
	exp, err := svc.ExportCSV(context.Background(), Filter{}, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, exp.Rows)
	assert.Equal(t, "\ufeff"+strings.Join(ExportHeader, ","), out.String())
	assert.Empty(t, n.queued, "no admin address, no copy")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, "plain", escapeCell("plain"))
	assert.Equal(t, `"a,b"`, escapeCell("a,b"))
	assert.Equal(t, `"say ""hi"""`, escapeCell(`say "hi"`))
	assert.Equal(t, "\"a\rb\"", escapeCell("a\rb"))
}
