// Package catalog answers the public listing queries: filtered and paginated
// property cards, the home page selection and the property detail page.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/i18n"
	"grahalia-estates/internal/models"
	"grahalia-estates/internal/pricefmt"
	"grahalia-estates/internal/richtext"
	"grahalia-estates/internal/slug"
)

// ErrNotFound is returned when a slug matches no published property
var ErrNotFound = errors.New("property not found")

// DefaultPlaceholder is the cover used for listings without images
const DefaultPlaceholder = "/properties/p1.jpg"

// Feature is an amenity with its label in the requested language
type Feature struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Item is a property card in a listing page
type Item struct {
	ID          uint      `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	Price       string    `json:"price"`
	Bedrooms    *int      `json:"bedrooms,omitempty"`
	Bathrooms   *int      `json:"bathrooms,omitempty"`
	BuiltAreaM2 *float64  `json:"built_area_m2,omitempty"`
	CoverURL    string    `json:"cover_url"`
	Features    []Feature `json:"features"`
	IsNew       bool      `json:"is_new"`
	Status      string    `json:"status"`
	DealType    string    `json:"deal_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Page is one page of catalog results
type Page struct {
	Items      []Item  `json:"items"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Lang       string  `json:"lang"`
	Filters    Filters `json:"filters"`
}

// Image is a gallery picture on the detail page
type Image struct {
	ID      uint   `json:"id"`
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	IsCover bool   `json:"is_cover"`
}

// Detail is the full view of one published property
type Detail struct {
	Item
	Summary         string   `json:"summary,omitempty"`
	Description     string   `json:"description,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	PropertyType    string   `json:"property_type,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	PlotAreaM2      *float64 `json:"plot_area_m2,omitempty"`
	TerraceAreaM2   *float64 `json:"terrace_area_m2,omitempty"`
	Floor           *int     `json:"floor,omitempty"`
	TotalFloors     *int     `json:"total_floors,omitempty"`
	PlansURL        string   `json:"plans_url,omitempty"`
	Images          []Image  `json:"images"`
}

// Service runs catalog queries against the database
type Service struct {
	db          *gorm.DB
	cfg         config.CatalogConfig
	placeholder string
}

// NewService creates a catalog service. An empty placeholder selects
// DefaultPlaceholder.
func NewService(db *gorm.DB, cfg config.CatalogConfig, placeholder string) *Service {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Service{db: db, cfg: cfg, placeholder: placeholder}
}

// List returns one page of published properties matching q. With amenity
// keys, only properties having every key are returned.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	q = Normalize(q, s.cfg.PageSize)
	db := s.db.WithContext(ctx)

	joins, where, args := applyFilters(q.Filters, s.cfg.PropertyTypeFilter).build()
	from := " FROM properties p" + joins + where

	var grouped string
	if n := len(q.Filters.FeatureKeys); n > 0 {
		grouped = " GROUP BY p.id HAVING COUNT(DISTINCT f.feature_key) = ?"
		args = append(args, n)
	}

	var total int64
	countSQL := "SELECT COUNT(*)" + from
	if grouped != "" {
		countSQL = "SELECT COUNT(*) FROM (SELECT p.id" + from + grouped + ") x"
	}
	if err := db.Raw(countSQL, args...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	page, totalPages, offset := paginate(total, q.Page, q.PageSize)

	order := " ORDER BY p.created_at DESC, p.id DESC"
	if grouped != "" {
		order = " ORDER BY MAX(p.created_at) DESC, p.id DESC"
	}
	pageArgs := append(append([]interface{}{}, args...), q.PageSize, offset)

	var ids []uint
	if err := db.Raw("SELECT p.id"+from+grouped+order+" LIMIT ? OFFSET ?", pageArgs...).
		Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	items, err := s.items(ctx, q.Lang, ids, false)
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
		Lang:       q.Lang,
		Filters:    q.Filters,
	}, nil
}

// Featured returns the newest published properties for the home page
func (s *Service) Featured(ctx context.Context, lang string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = s.cfg.FeaturedLimit
	}
	if limit <= 0 {
		limit = 6
	}

	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Property{}).
		Where("is_published = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list featured properties: %w", err)
	}
	return s.items(ctx, i18n.Normalize(lang), ids, false)
}

// Detail returns the published property with the given slug
func (s *Service) Detail(ctx context.Context, lang, propertySlug string) (*Detail, error) {
	lang = i18n.Normalize(lang)
	db := s.db.WithContext(ctx)

	var p models.Property
	result := db.Where("slug = ? AND is_published = ?", strings.TrimSpace(propertySlug), true).Limit(1).Find(&p)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	items, err := s.build(ctx, lang, []models.Property{p})
	if err != nil {
		return nil, err
	}

	var images []models.PropertyImage
	if err := db.Where("property_id = ?", p.ID).
		Order("is_cover DESC, sort_order, id").
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to get property images: %w", err)
	}

	var tr models.PropertyTranslation
	if err := db.Where("property_id = ? AND lang = ?", p.ID, lang).Limit(1).Find(&tr).Error; err != nil {
		return nil, fmt.Errorf("failed to get property translation: %w", err)
	}

	description := p.Description(lang)
	meta := tr.Summary
	if meta == "" {
		meta = richtext.Excerpt(description, 160)
	}

	d := &Detail{
		Item:            items[0],
		Summary:         tr.Summary,
		Description:     description,
		MetaDescription: meta,
		PropertyType:    p.PropertyType,
		Condition:       p.Condition,
		PlotAreaM2:      p.PlotAreaM2,
		TerraceAreaM2:   p.TerraceAreaM2,
		Floor:           p.Floor,
		TotalFloors:     p.TotalFloors,
		PlansURL:        NormalizeAssetURL(p.PlansURL),
		Images:          make([]Image, 0, len(images)),
	}
	for _, img := range images {
		d.Images = append(d.Images, Image{ID: img.ID, URL: NormalizeAssetURL(img.URL), Alt: img.Alt, IsCover: img.IsCover})
	}
	return d, nil
}

// FeatureOptions lists every feature with its label in lang, ordered by key
func (s *Service) FeatureOptions(ctx context.Context, lang string) ([]Feature, error) {
	return LoadFeatureOptions(ctx, s.db, i18n.Normalize(lang))
}

// LoadFeatureOptions lists every feature with its label in lang, falling back
// to the key when no label exists.
func LoadFeatureOptions(ctx context.Context, db *gorm.DB, lang string) ([]Feature, error) {
	var rows []featureRow
	err := db.WithContext(ctx).Raw(`SELECT f.feature_key, COALESCE(ft.label, f.feature_key) AS label
		FROM features f
		LEFT JOIN feature_translations ft ON ft.feature_id = f.id AND ft.lang = ?
		ORDER BY f.feature_key`, lang).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	out := make([]Feature, len(rows))
	for i, r := range rows {
		out[i] = Feature{Key: r.FeatureKey, Label: r.Label}
	}
	return out, nil
}

// NormalizeAssetURL gives stored relative paths a leading slash
func NormalizeAssetURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasPrefix(u, "/") || strings.Contains(u, "://") {
		return u
	}
	return "/" + u
}

// ByIDs builds cards for the published properties among ids, keeping the
// order of ids. Search results are rendered through it.
func (s *Service) ByIDs(ctx context.Context, lang string, ids []uint) ([]Item, error) {
	return s.items(ctx, i18n.Normalize(lang), ids, true)
}

// items loads properties by id and builds cards in the order of ids
func (s *Service) items(ctx context.Context, lang string, ids []uint, publishedOnly bool) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}

	var props []models.Property
	query := s.db.WithContext(ctx).Where("id IN ?", ids)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Find(&props).Error; err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	byID := make(map[uint]models.Property, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}
	ordered := make([]models.Property, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return s.build(ctx, lang, ordered)
}

type featureRow struct {
	PropertyID uint
	FeatureKey string
	Label      string
}

// build turns properties into cards, resolving covers, titles and
// features with one query each.
func (s *Service) build(ctx context.Context, lang string, props []models.Property) ([]Item, error) {
	items := make([]Item, 0, len(props))
	if len(props) == 0 {
		return items, nil
	}
	db := s.db.WithContext(ctx)

	ids := make([]uint, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}

	var images []models.PropertyImage
	if err := db.Select("property_id", "url").
		Where("property_id IN ?", ids).
		Order("property_id, is_cover DESC, sort_order, id").
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to load covers: %w", err)
	}
	covers := make(map[uint]string, len(props))
	for _, img := range images {
		if _, ok := covers[img.PropertyID]; !ok {
			covers[img.PropertyID] = NormalizeAssetURL(img.URL)
		}
	}

	var translations []models.PropertyTranslation
	if err := db.Where("property_id IN ? AND lang = ?", ids, lang).Find(&translations).Error; err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	titles := make(map[uint]string, len(translations))
	for _, tr := range translations {
		if t := strings.TrimSpace(tr.Title); t != "" {
			titles[tr.PropertyID] = t
		}
	}

	var rows []featureRow
	if err := db.Raw(`SELECT pf.property_id, f.feature_key, COALESCE(ft.label, f.feature_key) AS label
		FROM property_features pf
		JOIN features f ON f.id = pf.feature_id
		LEFT JOIN feature_translations ft ON ft.feature_id = f.id AND ft.lang = ?
		WHERE pf.property_id IN ?
		ORDER BY f.feature_key`, lang, ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	features := make(map[uint][]Feature, len(props))
	for _, r := range rows {
		features[r.PropertyID] = append(features[r.PropertyID], Feature{Key: r.FeatureKey, Label: r.Label})
	}

	for _, p := range props {
		title, ok := titles[p.ID]
		if !ok {
			title = slug.Title(p.Slug)
		}
		cover, ok := covers[p.ID]
		if !ok {
			cover = s.placeholder
		}
		feats := features[p.ID]
		if feats == nil {
			feats = []Feature{}
		}
		items = append(items, Item{
			ID:          p.ID,
			Slug:        p.Slug,
			Title:       title,
			Location:    p.Location,
			Price:       pricefmt.Display(lang, string(p.DealType), p.Price, p.RentPrice, p.Currency, string(p.RentPeriod)),
			Bedrooms:    p.Bedrooms,
			Bathrooms:   p.Bathrooms,
			BuiltAreaM2: p.BuiltAreaM2,
			CoverURL:    cover,
			Features:    feats,
			IsNew:       p.IsNewBuild(),
			Status:      string(p.Status),
			DealType:    string(p.DealType),
			CreatedAt:   p.CreatedAt,
		})
	}
	return items, nil
}
