package search

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
	"grahalia-estates/internal/richtext"
)

const excerptLength = 500

// Document is the indexed form of a published listing
type Document struct {
	ID           uint     `json:"id"`
	Slug         string   `json:"slug"`
	TitleEn      string   `json:"title_en"`
	TitleEs      string   `json:"title_es"`
	Location     string   `json:"location"`
	DealType     string   `json:"deal_type"`
	PropertyType string   `json:"property_type"`
	Price        *float64 `json:"price"`
	RentPrice    *float64 `json:"rent_price"`
	Bedrooms     *int     `json:"bedrooms"`
	Features     []string `json:"features"`
	TextEn       string   `json:"text_en"`
	TextEs       string   `json:"text_es"`
	CreatedAt    int64    `json:"created_at"`
}

// LoadDocuments builds documents for the published properties among ids.
// A nil ids slice loads every published property.
func LoadDocuments(ctx context.Context, db *gorm.DB, ids []uint) ([]Document, error) {
	db = db.WithContext(ctx)

	var props []models.Property
	query := db.Preload("Translations").Where("is_published = ?", true)
	if ids != nil {
		if len(ids) == 0 {
			return []Document{}, nil
		}
		query = query.Where("id IN ?", ids)
	}
	if err := query.Order("id").Find(&props).Error; err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	if len(props) == 0 {
		return []Document{}, nil
	}

	loaded := make([]uint, len(props))
	for i, p := range props {
		loaded[i] = p.ID
	}

	var rows []struct {
		PropertyID uint
		FeatureKey string
	}
	if err := db.Raw(`SELECT pf.property_id, f.feature_key
		FROM property_features pf
		JOIN features f ON f.id = pf.feature_id
		WHERE pf.property_id IN ?
		ORDER BY f.feature_key`, loaded).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	features := make(map[uint][]string)
	for _, r := range rows {
		features[r.PropertyID] = append(features[r.PropertyID], r.FeatureKey)
	}

	docs := make([]Document, 0, len(props))
	for _, p := range props {
		doc := Document{
			ID:           p.ID,
			Slug:         p.Slug,
			Location:     p.Location,
			DealType:     string(p.DealType),
			PropertyType: p.PropertyType,
			Price:        p.Price,
			RentPrice:    p.RentPrice,
			Bedrooms:     p.Bedrooms,
			Features:     features[p.ID],
			TextEn:       richtext.Excerpt(p.DescriptionEn, excerptLength),
			TextEs:       richtext.Excerpt(p.DescriptionEs, excerptLength),
			CreatedAt:    p.CreatedAt.Unix(),
		}
		if doc.Features == nil {
			doc.Features = []string{}
		}
		for _, t := range p.Translations {
			switch t.Lang {
			case "en":
				doc.TitleEn = strings.TrimSpace(t.Title)
			case "es":
				doc.TitleEs = strings.TrimSpace(t.Title)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
