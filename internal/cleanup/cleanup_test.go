package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"grahalia-estates/internal/database/dbtest"
	"grahalia-estates/internal/logging"
	"grahalia-estates/internal/models"
	"grahalia-estates/internal/ratelimit"
	"grahalia-estates/internal/storage"
)

type env struct {
	db    *gorm.DB
	store *storage.Store
	svc   *Service
}

func newEnv(t *testing.T) *env {
	db := dbtest.New(t)
	store := storage.New(afero.NewMemMapFs(), "/uploads")
	limiter := ratelimit.NewLeadLimiter(db, 5, 10*time.Minute)
	svc := NewService(db, store, limiter, logging.Discard())
	// files written by the test are "two hours old" from the service's view
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	return &env{db: db, store: store, svc: svc}
}

func (e *env) save(t *testing.T, dir, name string) string {
	url, err := e.store.Save(dir, name, []byte("data"))
	require.NoError(t, err)
	return url
}

func (e *env) exists(t *testing.T, url string) bool {
	ok, err := e.store.Exists(url)
	require.NoError(t, err)
	return ok
}

func (e *env) seedFiles(t *testing.T) (kept []string, orphans []string) {
	p := models.Property{Slug: "villa-ge-000001", DealType: models.DealSale, Currency: "EUR", Status: models.PropertyStatusAvailable}
	require.NoError(t, e.db.Create(&p).Error)

	img := e.save(t, storage.DirProperties, "property-1-100-0-front.jpg")
	plans := e.save(t, storage.DirPlans, "property-1-100-plans.pdf")
	require.NoError(t, e.db.Create(&models.PropertyImage{PropertyID: p.ID, URL: img, SortOrder: 1, IsCover: true}).Error)
	require.NoError(t, e.db.Model(&p).Update("plans_url", plans).Error)

	orphanImg := e.save(t, storage.DirProperties, "property-7-100-0-old.jpg")
	orphanPlans := e.save(t, storage.DirPlans, "stray.pdf")
	return []string{img, plans}, []string{orphanImg, orphanPlans}
}

func TestSweepOrphanUploads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	kept, orphans := e.seedFiles(t)

	result, err := e.svc.SweepOrphanUploads(ctx, DefaultSweepConfig())
	require.NoError(t, err)
	assert.Equal(t, 4, result.ScannedCount)
	assert.Equal(t, 2, result.TargetCount)
	assert.Equal(t, 2, result.DeletedCount)
	assert.ElementsMatch(t, orphans, result.DeletedFiles)

	for _, u := range kept {
		assert.True(t, e.exists(t, u), u)
	}
	for _, u := range orphans {
		assert.False(t, e.exists(t, u), u)
	}

	var logs []models.DeleteLog
	require.NoError(t, e.db.Order("file_url").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, models.DeleteReasonOrphanFile, logs[0].Reason)
	byURL := map[string]uint{}
	for _, l := range logs {
		byURL[l.FileURL] = l.PropertyID
	}
	assert.Equal(t, uint(7), byURL[orphans[0]])
	assert.Equal(t, uint(0), byURL[orphans[1]])
}

func TestSweepDryRunAndSafetyLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, orphans := e.seedFiles(t)

	result, err := e.svc.SweepOrphanUploads(ctx, SweepConfig{MinAge: time.Hour, MaxDeletionCount: 10, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)
	for _, u := range orphans {
		assert.True(t, e.exists(t, u), "dry run keeps %s", u)
	}

	_, err = e.svc.SweepOrphanUploads(ctx, SweepConfig{MinAge: time.Hour, MaxDeletionCount: 1})
	assert.ErrorContains(t, err, "safety check failed")
	for _, u := range orphans {
		assert.True(t, e.exists(t, u))
	}
}

func TestSweepSkipsRecentFiles(t *testing.T) {
	e := newEnv(t)
	e.svc.now = time.Now
	_, orphans := e.seedFiles(t)

	result, err := e.svc.SweepOrphanUploads(context.Background(), DefaultSweepConfig())
	require.NoError(t, err)
	assert.Zero(t, result.TargetCount)
	for _, u := range orphans {
		assert.True(t, e.exists(t, u))
	}
}

func TestPurgeRateLimits(t *testing.T) {
	e := newEnv(t)
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&[]models.LeadRateLimit{
		{IP: "1.1.1.1", CreatedAt: now.Add(-48 * time.Hour)},
		{IP: "1.1.1.1", CreatedAt: now.Add(-time.Minute)},
	}).Error)

	n, err := e.svc.PurgeRateLimits(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPurgeNotifications(t *testing.T) {
	e := newEnv(t)
	e.svc.now = func() time.Time { return time.Now().Add(60 * 24 * time.Hour) }
	for _, status := range []string{models.QueueStatusDone, models.QueueStatusPermanentFail, models.QueueStatusPending} {
		require.NoError(t, e.db.Create(&models.Notification{
			Kind: models.NotificationLeadAlert, Recipient: "a@b.c", Subject: "s", Body: "b", Status: status,
		}).Error)
	}

	n, err := e.svc.PurgeNotifications(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var left []models.Notification
	require.NoError(t, e.db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, models.QueueStatusPending, left[0].Status)
}

func TestDeleteStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedFiles(t)

	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&[]models.DeleteLog{
		{PropertyID: 3, Slug: "a", DeletedAt: now.Add(-24 * time.Hour), Reason: models.DeleteReasonManual},
		{PropertyID: 4, Slug: "b", DeletedAt: now.Add(-90 * 24 * time.Hour), Reason: models.DeleteReasonManual},
	}).Error)

	stats, err := e.svc.GetDeleteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDeleted)
	assert.Equal(t, int64(2), stats.ByReason[models.DeleteReasonManual])
	assert.Equal(t, int64(1), stats.DeletedLast30Days)
	assert.Equal(t, 2, stats.PendingOrphanFiles)

	logs, err := e.svc.GetRecentDeleteLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a", logs[0].Slug)
}

func TestPropertyIDFromFile(t *testing.T) {
	assert.Equal(t, uint(12), propertyIDFromFile("/uploads/properties/property-12-1700-0-a.jpg"))
	assert.Equal(t, uint(0), propertyIDFromFile("/uploads/plans/stray.pdf"))
	assert.Equal(t, uint(0), propertyIDFromFile("/uploads/plans/property-x-1.pdf"))
}
