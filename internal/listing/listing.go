// Package listing implements the back office operations on properties:
// creating, editing and deleting listings and managing their plan PDFs.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grahalia-estates/internal/history"
	"grahalia-estates/internal/models"
	"grahalia-estates/internal/pricefmt"
	"grahalia-estates/internal/slug"
	"grahalia-estates/internal/storage"
)

// AdminListLimit caps the admin property list
const AdminListLimit = 200

// Upper bounds of the numeric(12,2) price and numeric(10,2) area columns
const (
	maxPrice = 1e10
	maxArea  = 1e8
)

var (
	// ErrNotFound is returned when the property does not exist
	ErrNotFound = errors.New("property not found")
	// ErrValidation wraps every input validation failure
	ErrValidation = errors.New("invalid property")
	// ErrNoFile is returned when a plans upload carries no data
	ErrNoFile = errors.New("no file")
	// ErrNotPDF is returned when a plans upload is not a PDF document
	ErrNotPDF = errors.New("only PDF allowed")
)

// Indexer keeps an external search index in step with the listings
type Indexer interface {
	IndexProperty(ctx context.Context, propertyID uint) error
	DeleteProperty(ctx context.Context, propertyID uint) error
}

// File is an uploaded file held in memory
type File struct {
	Name string
	Data []byte
}

// Row is one line of the admin property list
type Row struct {
	ID          uint
	Slug        string
	IsPublished bool
	DealType    models.DealType
	Price       *float64
	Currency    string
	Location    string
	CreatedAt   time.Time
}

// FeatureOption is a checkbox of the admin property form
type FeatureOption struct {
	ID    uint
	Key   string `gorm:"column:feature_key"`
	Label string
}

// Detail is a property loaded for the edit form
type Detail struct {
	Property   models.Property
	Images     []models.PropertyImage
	FeatureIDs []uint
}

// Translation returns the translation of lang, or an empty one
func (d *Detail) Translation(lang string) models.PropertyTranslation {
	for _, t := range d.Property.Translations {
		if t.Lang == lang {
			return t
		}
	}
	return models.PropertyTranslation{Lang: lang}
}

// Service performs listing mutations
type Service struct {
	db      *gorm.DB
	store   *storage.Store
	indexer Indexer
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a listing service. indexer may be nil.
func NewService(db *gorm.DB, store *storage.Store, indexer Indexer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, store: store, indexer: indexer, logger: logger, now: time.Now}
}

// Create validates in and inserts a new listing with its translations and
// features. The slug gets the public id suffix of the new row.
func (s *Service) Create(ctx context.Context, in Input) (*models.Property, error) {
	base, err := validate(&in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Property{}
	apply(p, in)
	p.Slug = slug.Temporary(base, now.UnixNano())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return fmt.Errorf("failed to insert property: %w", err)
		}

		p.Slug = slug.WithPublicID(base, p.ID)
		if err := tx.Model(p).Update("slug", p.Slug).Error; err != nil {
			return fmt.Errorf("failed to finalize slug: %w", err)
		}

		if err := saveTranslations(tx, p.ID, in); err != nil {
			return err
		}
		if err := replaceFeatures(tx, p.ID, in.FeatureIDs); err != nil {
			return err
		}
		return history.Record(tx, history.DetectChanges(nil, p, now))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("property created", "property_id", p.ID, "slug", p.Slug)
	s.reindex(ctx, p.ID)
	return p, nil
}

// Update applies in to an existing listing, replacing its features and
// recording audited changes.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Property, error) {
	base, err := validate(&in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var p models.Property

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Limit(1).Find(&p)
		if result.Error != nil {
			return fmt.Errorf("failed to get property: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		old := p
		apply(&p, in)
		p.Slug = slug.WithPublicID(base, p.ID)

		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return fmt.Errorf("failed to update property: %w", err)
		}
		if err := saveTranslations(tx, p.ID, in); err != nil {
			return err
		}
		if err := replaceFeatures(tx, p.ID, in.FeatureIDs); err != nil {
			return err
		}
		return history.Record(tx, history.DetectChanges(&old, &p, now))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("property updated", "property_id", p.ID)
	s.reindex(ctx, p.ID)
	return &p, nil
}

// Delete removes a listing with its images, features and translations and
// writes a delete log entry. Stored files are removed after commit.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var files []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Property
		result := tx.Where("id = ?", id).Limit(1).Find(&p)
		if result.Error != nil {
			return fmt.Errorf("failed to get property: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&models.PropertyImage{}).Where("property_id = ?", id).Pluck("url", &files).Error; err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}
		imageCount := len(files)
		if p.PlansURL != "" {
			files = append(files, p.PlansURL)
		}

		for _, m := range []interface{}{&models.PropertyImage{}, &models.PropertyFeature{}, &models.PropertyTranslation{}} {
			if err := tx.Where("property_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete property children: %w", err)
			}
		}
		if err := tx.Delete(&models.Property{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete property: %w", err)
		}

		entry := models.DeleteLog{
			PropertyID: p.ID,
			Slug:       p.Slug,
			Location:   p.Location,
			ImageCount: imageCount,
			DeletedAt:  s.now().UTC(),
			Reason:     models.DeleteReasonManual,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write delete log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		s.removeFile(f)
	}
	s.logger.Info("property deleted", "property_id", id, "files", len(files))

	if s.indexer != nil {
		if err := s.indexer.DeleteProperty(ctx, id); err != nil {
			s.logger.Warn("failed to remove property from search index", "property_id", id, "error", err)
		}
	}
	return nil
}

// Get loads a listing with its translations, gallery and feature ids
func (s *Service) Get(ctx context.Context, id uint) (*Detail, error) {
	var d Detail
	result := s.db.WithContext(ctx).
		Preload("Translations").
		Where("id = ?", id).Limit(1).Find(&d.Property)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	if err := s.db.WithContext(ctx).
		Where("property_id = ?", id).
		Order("sort_order, id").
		Find(&d.Images).Error; err != nil {
		return nil, fmt.Errorf("failed to get images: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.PropertyFeature{}).
		Where("property_id = ?", id).
		Order("feature_id").
		Pluck("feature_id", &d.FeatureIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to get features: %w", err)
	}
	return &d, nil
}

// List returns the newest listings for the admin list, optionally filtered
// by deal type ("sale", "rent"; anything else lists all).
func (s *Service) List(ctx context.Context, deal string) ([]Row, error) {
	var rows []Row
	query := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("id, slug, is_published, deal_type, price, currency, location, created_at")
	if d := models.ParseDealType(deal); d != "" {
		query = query.Where("deal_type = ?", d)
	}
	if err := query.Order("id DESC").Limit(AdminListLimit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return rows, nil
}

// Counts summarizes listings for the dashboard
type Counts struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Sale      int64 `json:"sale"`
	Rent      int64 `json:"rent"`
}

// Counts returns listing totals
func (s *Service) Counts(ctx context.Context) (*Counts, error) {
	var rows []struct {
		DealType    string
		IsPublished bool
		Count       int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Property{}).
		Select("deal_type, is_published, COUNT(*) AS count").
		Group("deal_type, is_published").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	c := &Counts{}
	for _, r := range rows {
		c.Total += r.Count
		if r.IsPublished {
			c.Published += r.Count
		}
		switch models.DealType(r.DealType) {
		case models.DealSale:
			c.Sale += r.Count
		case models.DealRent:
			c.Rent += r.Count
		}
	}
	return c, nil
}

// FeatureOptions lists every feature with its English label
func (s *Service) FeatureOptions(ctx context.Context) ([]FeatureOption, error) {
	var options []FeatureOption
	if err := s.db.WithContext(ctx).Raw(
		`SELECT f.id AS id, f.feature_key AS feature_key, COALESCE(ft.label, f.feature_key) AS label
		FROM features f
		LEFT JOIN feature_translations ft ON ft.feature_id = f.id AND ft.lang = ?
		ORDER BY f.feature_key`, "en").
		Scan(&options).Error; err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	return options, nil
}

// SetPlans stores a PDF as the floor plans of a listing. The previous file
// is removed once the row points at the new one.
func (s *Service) SetPlans(ctx context.Context, id uint, f File) (string, error) {
	if len(f.Data) == 0 {
		return "", ErrNoFile
	}
	if !mimetype.Detect(f.Data).Is("application/pdf") {
		return "", ErrNotPDF
	}

	old, err := s.plansURL(ctx, id)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("property-%d-%d-%s", id, s.now().UnixMilli(), storage.SafeName(f.Name))
	url, err := s.store.Save(storage.DirPlans, name, f.Data)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", id).
		Update("plans_url", url).Error; err != nil {
		s.removeFile(url)
		return "", fmt.Errorf("failed to save plans url: %w", err)
	}

	if old != "" && old != url {
		s.removeFile(old)
	}
	s.logger.Info("plans uploaded", "property_id", id, "url", url)
	return url, nil
}

// RemovePlans clears the plans of a listing and deletes the file
func (s *Service) RemovePlans(ctx context.Context, id uint) error {
	old, err := s.plansURL(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("id = ?", id).
		Update("plans_url", "").Error; err != nil {
		return fmt.Errorf("failed to clear plans url: %w", err)
	}
	if old != "" {
		s.removeFile(old)
	}
	return nil
}

func (s *Service) plansURL(ctx context.Context, id uint) (string, error) {
	var p models.Property
	result := s.db.WithContext(ctx).Select("id", "plans_url").Where("id = ?", id).Limit(1).Find(&p)
	if result.Error != nil {
		return "", fmt.Errorf("failed to get property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return p.PlansURL, nil
}

func (s *Service) removeFile(url string) {
	if url == "" || s.store == nil {
		return
	}
	if err := s.store.Remove(url); err != nil {
		s.logger.Warn("failed to remove stored file", "url", url, "error", err)
	}
}

func (s *Service) reindex(ctx context.Context, id uint) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexProperty(ctx, id); err != nil {
		s.logger.Warn("failed to update search index", "property_id", id, "error", err)
	}
}

// validate normalizes in and returns the sanitized slug base
func validate(in *Input) (string, error) {
	base := slug.StripPublicID(slug.Sanitize(in.Slug))
	if base == "" {
		return "", fmt.Errorf("%w: slug is required", ErrValidation)
	}

	if in.DealType == "" {
		in.DealType = string(models.DealSale)
	}
	if models.ParseDealType(in.DealType) == "" {
		return "", fmt.Errorf("%w: unknown deal type %q", ErrValidation, in.DealType)
	}

	switch strings.ToLower(in.Condition) {
	case "", models.ConditionNewBuild, models.ConditionResale:
		in.Condition = strings.ToLower(in.Condition)
	default:
		return "", fmt.Errorf("%w: unknown condition %q", ErrValidation, in.Condition)
	}

	for _, f := range []struct {
		name  string
		v     *float64
		limit float64
	}{
		{"price", in.Price, maxPrice},
		{"rent price", in.RentPrice, maxPrice},
		{"plot area", in.PlotAreaM2, maxArea},
		{"built area", in.BuiltAreaM2, maxArea},
		{"terrace", in.TerraceAreaM2, maxArea},
	} {
		if f.v == nil {
			continue
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return "", fmt.Errorf("%w: %s must be a number", ErrValidation, f.name)
		}
		if *f.v < 0 {
			return "", fmt.Errorf("%w: %s must not be negative", ErrValidation, f.name)
		}
		if *f.v >= f.limit {
			return "", fmt.Errorf("%w: %s is too large", ErrValidation, f.name)
		}
	}
	return base, nil
}

func apply(p *models.Property, in Input) {
	p.IsPublished = in.IsPublished
	p.DealType = models.ParseDealType(in.DealType)
	p.Status = models.ParsePropertyStatus(in.Status)
	p.Price = in.Price
	p.Currency = pricefmt.NormalizeCurrency(in.Currency)
	p.RentPrice = in.RentPrice
	p.RentPeriod = models.ParseRentPeriod(in.RentPeriod)
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.PlotAreaM2 = in.PlotAreaM2
	p.BuiltAreaM2 = in.BuiltAreaM2
	p.TerraceAreaM2 = in.TerraceAreaM2
	p.Location = truncate(in.Location, 120)
	p.PropertyType = truncate(strings.ToLower(in.PropertyType), 40)
	p.Condition = in.Condition
	p.Floor = in.Floor
	p.TotalFloors = in.TotalFloors
	p.DescriptionEn = in.DescriptionEn
	p.DescriptionEs = in.DescriptionEs
	p.NormalizeRent()
}

// saveTranslations upserts the en/es titles; a blank title drops the row so
// readers fall back to the slug.
func saveTranslations(tx *gorm.DB, propertyID uint, in Input) error {
	for _, t := range []models.PropertyTranslation{
		{PropertyID: propertyID, Lang: "en", Title: truncate(in.TitleEn, 200), Summary: truncate(in.SummaryEn, 300)},
		{PropertyID: propertyID, Lang: "es", Title: truncate(in.TitleEs, 200), Summary: truncate(in.SummaryEs, 300)},
	} {
		if t.Title == "" {
			if err := tx.Where("property_id = ? AND lang = ?", propertyID, t.Lang).
				Delete(&models.PropertyTranslation{}).Error; err != nil {
				return fmt.Errorf("failed to delete %s translation: %w", t.Lang, err)
			}
			continue
		}
		t := t
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "property_id"}, {Name: "lang"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "updated_at"}),
		}).Create(&t).Error; err != nil {
			return fmt.Errorf("failed to save %s translation: %w", t.Lang, err)
		}
	}
	return nil
}

// replaceFeatures swaps the feature set of a property; unknown ids are ignored
func replaceFeatures(tx *gorm.DB, propertyID uint, featureIDs []uint) error {
	if err := tx.Where("property_id = ?", propertyID).Delete(&models.PropertyFeature{}).Error; err != nil {
		return fmt.Errorf("failed to clear features: %w", err)
	}
	if len(featureIDs) == 0 {
		return nil
	}

	var known []uint
	if err := tx.Model(&models.Feature{}).Where("id IN ?", featureIDs).Order("id").Pluck("id", &known).Error; err != nil {
		return fmt.Errorf("failed to check features: %w", err)
	}
	if len(known) == 0 {
		return nil
	}

	links := make([]models.PropertyFeature, len(known))
	for i, fid := range known {
		links[i] = models.PropertyFeature{PropertyID: propertyID, FeatureID: fid}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to save features: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
