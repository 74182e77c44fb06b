package models

import "time"

// PropertyChange is an audited edit of a commercially relevant field
type PropertyChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      uint      `gorm:"not null;index" json:"property_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"`
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:numeric(12,2)" json:"change_magnitude,omitempty"` // For numerical changes
	DetectedAt      time.Time `gorm:"not null;index" json:"detected_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypePrice       = "price_changed"
	ChangeTypeRentPrice   = "rent_price_changed"
	ChangeTypeStatus      = "status_changed"
	ChangeTypeDeal        = "deal_type_changed"
	ChangeTypePublished   = "published"
	ChangeTypeUnpublished = "unpublished"
	ChangeTypeNew         = "new_property"
)
