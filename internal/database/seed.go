package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grahalia-estates/internal/models"
)

// FeatureSeed is an amenity with its labels per language
type FeatureSeed struct {
	Key    string
	Labels map[string]string
}

// DefaultFeatures is the amenity catalogue the site starts with
var DefaultFeatures = []FeatureSeed{
	{Key: "pool", Labels: map[string]string{"en": "Swimming pool", "es": "Piscina"}},
	{Key: "parking", Labels: map[string]string{"en": "Parking", "es": "Aparcamiento"}},
	{Key: "garden", Labels: map[string]string{"en": "Garden", "es": "Jardín"}},
	{Key: "terrace", Labels: map[string]string{"en": "Terrace", "es": "Terraza"}},
	{Key: "sea-views", Labels: map[string]string{"en": "Sea views", "es": "Vistas al mar"}},
	{Key: "air-conditioning", Labels: map[string]string{"en": "Air conditioning", "es": "Aire acondicionado"}},
	{Key: "lift", Labels: map[string]string{"en": "Lift", "es": "Ascensor"}},
	{Key: "storage", Labels: map[string]string{"en": "Storage room", "es": "Trastero"}},
	{Key: "gym", Labels: map[string]string{"en": "Gym", "es": "Gimnasio"}},
	{Key: "security", Labels: map[string]string{"en": "24h security", "es": "Seguridad 24h"}},
}

// SeedFeatures inserts missing features and labels. Existing rows are left
// untouched so labels edited in the database survive re-seeding.
func SeedFeatures(db *gorm.DB, seeds []FeatureSeed) (int, error) {
	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range seeds {
			var feature models.Feature
			result := tx.Where("feature_key = ?", seed.Key).Limit(1).Find(&feature)
			if result.Error != nil {
				return fmt.Errorf("failed to look up feature %s: %w", seed.Key, result.Error)
			}
			if result.RowsAffected == 0 {
				feature = models.Feature{Key: seed.Key}
				if err := tx.Create(&feature).Error; err != nil {
					return fmt.Errorf("failed to create feature %s: %w", seed.Key, err)
				}
				created++
			}

			for lang, label := range seed.Labels {
				tr := models.FeatureTranslation{FeatureID: feature.ID, Lang: lang, Label: label}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tr).Error; err != nil {
					return fmt.Errorf("failed to create %s label for %s: %w", lang, seed.Key, err)
				}
			}
		}
		return nil
	})
	return created, err
}
