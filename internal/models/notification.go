package models

import (
	"time"
)

// Notification is a queued outgoing email. Lead alerts and export copies
// are delivered by the notification worker so requests never wait on SMTP.
type Notification struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind           string     `gorm:"type:varchar(30);not null" json:"kind"`
	Recipient      string     `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject        string     `gorm:"type:varchar(255);not null" json:"subject"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	AttachmentName string     `gorm:"type:varchar(255)" json:"attachment_name,omitempty"`
	Attachment     string     `gorm:"type:text" json:"-"`
	LeadID         *uint      `gorm:"index" json:"lead_id,omitempty"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_notification_status" json:"status"` // pending, processing, done, failed
	Attempts       int        `gorm:"default:0" json:"attempts"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt    *time.Time `gorm:"index:idx_notification_retry" json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notification_queue"
}

// Notification kinds
const (
	NotificationLeadAlert   = "lead_alert"
	NotificationLeadsExport = "leads_export"
)

// Status constants
const (
	QueueStatusPending       = "pending"
	QueueStatusProcessing    = "processing"
	QueueStatusDone          = "done"
	QueueStatusFailed        = "failed"
	QueueStatusPermanentFail = "permanent_fail"
)

// MaxRetryAttempts before marking as permanently failed
const MaxRetryAttempts = 5

// GetNextRetryDelay calculates exponential backoff for retries
func GetNextRetryDelay(attempts int) time.Duration {
	// 5min, 15min, 1h, 4h, 12h
	delays := []time.Duration{
		5 * time.Minute,
		15 * time.Minute,
		1 * time.Hour,
		4 * time.Hour,
		12 * time.Hour,
	}

	if attempts < 0 {
		return delays[0]
	}
	if attempts >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempts]
}
