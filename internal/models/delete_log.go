package models

import "time"

// DeleteLog records a listing removed from the back office, or an upload
// swept because no listing referenced it.
type DeleteLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint      `gorm:"not null;index" json:"property_id"`
	Slug       string    `gorm:"type:varchar(255)" json:"slug"`
	Location   string    `gorm:"type:varchar(120)" json:"location"`
	ImageCount int       `json:"image_count"`
	FileURL    string    `gorm:"type:text" json:"file_url,omitempty"`
	DeletedAt  time.Time `gorm:"not null;index" json:"deleted_at"`
	Reason     string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonManual     = "manual_deletion"
	DeleteReasonOrphanFile = "orphan_upload"
)
