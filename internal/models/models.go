package models

// All returns every model managed by AutoMigrate, parents first
func All() []interface{} {
	return []interface{}{
		&Property{},
		&PropertyTranslation{},
		&PropertyImage{},
		&Feature{},
		&FeatureTranslation{},
		&PropertyFeature{},
		&Lead{},
		&LeadRateLimit{},
		&PropertyChange{},
		&DeleteLog{},
		&Notification{},
	}
}
