package models

import "time"

// Feature is an amenity a property can be tagged with (pool, parking...).
// The key lives in feature_key because KEY is reserved in MySQL.
type Feature struct {
	ID           uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	Key          string               `gorm:"column:feature_key;type:varchar(80);not null;uniqueIndex:idx_features_key" json:"key"`
	CreatedAt    time.Time            `json:"created_at"`
	Translations []FeatureTranslation `gorm:"foreignKey:FeatureID;constraint:OnDelete:CASCADE" json:"translations,omitempty"`
}

// TableName specifies the table name for Feature
func (Feature) TableName() string {
	return "features"
}

// FeatureTranslation is the label of a feature in one language
type FeatureTranslation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FeatureID uint      `gorm:"not null;uniqueIndex:idx_feature_translations_lang,priority:1" json:"feature_id"`
	Lang      string    `gorm:"type:varchar(2);not null;uniqueIndex:idx_feature_translations_lang,priority:2" json:"lang"`
	Label     string    `gorm:"type:varchar(120);not null" json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for FeatureTranslation
func (FeatureTranslation) TableName() string {
	return "feature_translations"
}

// PropertyFeature joins properties and features
type PropertyFeature struct {
	PropertyID uint `gorm:"primaryKey;autoIncrement:false" json:"property_id"`
	FeatureID  uint `gorm:"primaryKey;autoIncrement:false;index" json:"feature_id"`
}

// TableName specifies the table name for PropertyFeature
func (PropertyFeature) TableName() string {
	return "property_features"
}
