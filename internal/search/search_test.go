package search

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/database"
	"grahalia-estates/internal/database/dbtest"
	"grahalia-estates/internal/logging"
	"grahalia-estates/internal/models"
)

type memoryBackend struct {
	docs    map[uint]Document
	cleared int
	lastReq Request
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{docs: make(map[uint]Document)}
}

func (m *memoryBackend) Init() error { return nil }

func (m *memoryBackend) Upsert(docs []Document) error {
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *memoryBackend) Delete(id uint) error {
	delete(m.docs, id)
	return nil
}

func (m *memoryBackend) DeleteAll() error {
	m.cleared++
	m.docs = make(map[uint]Document)
	return nil
}

func (m *memoryBackend) Search(req Request) ([]uint, int64, error) {
	m.lastReq = req
	var ids []uint
	q := strings.ToLower(req.Query)
	for id, d := range m.docs {
		if strings.Contains(strings.ToLower(d.TitleEn+" "+d.Location), q) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, int64(len(ids)), nil
}

func addProperty(t *testing.T, db *gorm.DB, slug string, published bool, features ...string) uint {
	p := models.Property{
		Slug:          slug,
		IsPublished:   published,
		DealType:      models.DealSale,
		Currency:      "EUR",
		Status:        models.PropertyStatusAvailable,
		Location:      "Estepona",
		DescriptionEn: "<p>Bright <b>apartment</b> near the beach</p>",
	}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&models.PropertyTranslation{PropertyID: p.ID, Lang: "en", Title: "Beach apartment " + slug}).Error)
	for _, key := range features {
		var f models.Feature
		require.NoError(t, db.Where("feature_key = ?", key).First(&f).Error)
		require.NoError(t, db.Create(&models.PropertyFeature{PropertyID: p.ID, FeatureID: f.ID}).Error)
	}
	return p.ID
}

func newService(t *testing.T) (*Service, *memoryBackend, *gorm.DB) {
	db := dbtest.New(t)
	_, err := database.SeedFeatures(db, database.DefaultFeatures)
	require.NoError(t, err)
	backend := newMemoryBackend()
	return NewService(db, backend, logging.Discard()), backend, db
}

func TestLoadDocuments(t *testing.T) {
	_, _, db := newService(t)
	id := addProperty(t, db, "a", true, "pool", "garden")
	addProperty(t, db, "b", false)

	docs, err := LoadDocuments(context.Background(), db, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, id, d.ID)
	assert.Equal(t, "Beach apartment a", d.TitleEn)
	assert.Empty(t, d.TitleEs)
	assert.Equal(t, []string{"garden", "pool"}, d.Features)
	assert.Equal(t, "Bright apartment near the beach", d.TextEn)

	docs, err = LoadDocuments(context.Background(), db, []uint{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIndexPropertyFollowsPublication(t *testing.T) {
	svc, backend, db := newService(t)
	ctx := context.Background()
	id := addProperty(t, db, "a", true)

	require.NoError(t, svc.IndexProperty(ctx, id))
	assert.Contains(t, backend.docs, id)

	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", id).Update("is_published", false).Error)
	require.NoError(t, svc.IndexProperty(ctx, id))
	assert.NotContains(t, backend.docs, id)

	backend.docs[id] = Document{ID: id}
	require.NoError(t, svc.DeleteProperty(ctx, id))
	assert.Empty(t, backend.docs)
}

func TestReindex(t *testing.T) {
	svc, backend, db := newService(t)
	backend.docs[999] = Document{ID: 999}
	addProperty(t, db, "a", true)
	addProperty(t, db, "b", true)
	addProperty(t, db, "c", false)

	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, backend.cleared)
	assert.Len(t, backend.docs, 2)
	assert.NotContains(t, backend.docs, uint(999))
}

func TestSearchClampsRequest(t *testing.T) {
	svc, backend, db := newService(t)
	ctx := context.Background()
	id := addProperty(t, db, "a", true)
	require.NoError(t, svc.IndexProperty(ctx, id))

	ids, total, err := svc.Search(ctx, Request{Query: "  beach  "})
	require.NoError(t, err)
	assert.Equal(t, []uint{id}, ids)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "beach", backend.lastReq.Query)
	assert.Equal(t, int64(DefaultLimit), backend.lastReq.Limit)

	_, _, err = svc.Search(ctx, Request{Query: strings.Repeat("x", 500), Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, backend.lastReq.Query, maxQueryLength)
	assert.Equal(t, int64(MaxLimit), backend.lastReq.Limit)
}

func TestDisabledService(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, config.MeilisearchConfig{Enabled: false, Host: "http://localhost:7700"}, logging.Discard())
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.Init())
	assert.NoError(t, svc.IndexProperty(ctx, 1))
	assert.NoError(t, svc.DeleteProperty(ctx, 1))
	n, err := svc.Reindex(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)

	_, _, err = svc.Search(ctx, Request{Query: "x"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRequestFilter(t *testing.T) {
	assert.Equal(t, "", Request{}.Filter())
	assert.Equal(t, "deal_type = 'rent'", Request{Deal: "Rent"}.Filter())
	assert.Equal(t, "", Request{Deal: "all"}.Filter())
	assert.Equal(t,
		"deal_type = 'sale' AND features = 'pool' AND features = 'sea-views'",
		Request{Deal: "sale", Features: []string{"Pool", "x' OR 1=1", "sea-views", ""}}.Filter())
}

func TestHitID(t *testing.T) {
	id, ok := hitID(map[string]interface{}{"id": float64(42), "slug": "x"})
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = hitID(map[string]interface{}{"slug": "x"})
	assert.False(t, ok)
}
