package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grahalia-estates/internal/database/dbtest"
	"grahalia-estates/internal/models"
)

func ptr(v float64) *float64 { return &v }

var at = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func TestDetectChangesNewProperty(t *testing.T) {
	changes := DetectChanges(nil, &models.Property{ID: 4, Slug: "villa-ge-000004"}, at)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeTypeNew, changes[0].ChangeType)
	assert.Equal(t, "villa-ge-000004", changes[0].NewValue)
}

func TestDetectChanges(t *testing.T) {
	old := &models.Property{ID: 1, Price: ptr(500000), Status: models.PropertyStatusAvailable, DealType: models.DealSale}
	cur := &models.Property{ID: 1, Price: ptr(450000), Status: models.PropertyStatusReserved, DealType: models.DealSale, IsPublished: true}

	changes := DetectChanges(old, cur, at)
	require.Len(t, changes, 3)

	assert.Equal(t, models.ChangeTypePrice, changes[0].ChangeType)
	assert.Equal(t, "500000.00", changes[0].OldValue)
	assert.Equal(t, "450000.00", changes[0].NewValue)
	require.NotNil(t, changes[0].ChangeMagnitude)
	assert.Equal(t, -50000.0, *changes[0].ChangeMagnitude)

	assert.Equal(t, models.ChangeTypeStatus, changes[1].ChangeType)
	assert.Equal(t, models.ChangeTypePublished, changes[2].ChangeType)

	assert.Empty(t, DetectChanges(cur, cur, at))
}

func TestDetectRentCleared(t *testing.T) {
	old := &models.Property{ID: 1, DealType: models.DealRent, RentPrice: ptr(1200)}
	cur := &models.Property{ID: 1, DealType: models.DealSale}

	changes := DetectChanges(old, cur, at)
	require.Len(t, changes, 2)
	assert.Equal(t, models.ChangeTypeRentPrice, changes[0].ChangeType)
	assert.Equal(t, "nil", changes[0].NewValue)
	assert.Nil(t, changes[0].ChangeMagnitude)
	assert.Equal(t, models.ChangeTypeDeal, changes[1].ChangeType)
}

func TestRecordAndQuery(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, Record(db, nil))
	require.NoError(t, Record(db, []models.PropertyChange{
		{PropertyID: 1, ChangeType: models.ChangeTypeNew, DetectedAt: at},
		{PropertyID: 2, ChangeType: models.ChangeTypeNew, DetectedAt: at.Add(time.Hour)},
		{PropertyID: 1, ChangeType: models.ChangeTypeStatus, DetectedAt: at.Add(2 * time.Hour)},
	}))

	changes, err := svc.ForProperty(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.ChangeTypeStatus, changes[0].ChangeType)

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint(2), recent[1].PropertyID)

	n, err := svc.CountSince(ctx, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
