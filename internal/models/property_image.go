package models

import "time"

// PropertyImage represents an image in a property gallery
type PropertyImage struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint      `gorm:"not null;uniqueIndex:idx_property_images_sort,priority:1" json:"property_id"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	Alt        string    `gorm:"type:varchar(200)" json:"alt,omitempty"`
	SortOrder  int       `gorm:"not null;default:0;uniqueIndex:idx_property_images_sort,priority:2" json:"sort_order"`
	IsCover    bool      `gorm:"not null;default:false" json:"is_cover"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}
