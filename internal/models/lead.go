package models

import "time"

// LeadStatus tracks whether the back office has handled a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusProcessed LeadStatus = "processed"
)

// Default lead source tag
const LeadSourceWebsite = "website"

// Lead is a contact form submission. Leads are never deleted.
type Lead struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"type:varchar(120);not null" json:"name"`
	Phone        string     `gorm:"type:varchar(60);not null" json:"phone"`
	Email        string     `gorm:"type:varchar(200);not null" json:"email"`
	Message      string     `gorm:"type:text" json:"message,omitempty"`
	Lang         string     `gorm:"type:varchar(2);not null" json:"lang"`
	PageURL      string     `gorm:"type:text;not null" json:"page_url"`
	PropertyID   *uint      `gorm:"index" json:"property_id,omitempty"`
	PropertySlug string     `gorm:"type:varchar(255)" json:"property_slug,omitempty"`
	Status       LeadStatus `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	Source       string     `gorm:"type:varchar(50);not null;default:'website'" json:"source"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// LeadRateLimit is one lead submission attempt from a client IP
type LeadRateLimit struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"type:varchar(64);not null;index:idx_lead_rate_limits_ip_created,priority:1" json:"ip"`
	CreatedAt time.Time `gorm:"not null;index:idx_lead_rate_limits_ip_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for LeadRateLimit
func (LeadRateLimit) TableName() string {
	return "lead_rate_limits"
}
