// Package notify queues outgoing email in the notification_queue table and
// delivers it from a background worker, so HTTP requests never wait on SMTP.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
)

// Outbox persists notifications for the worker
type Outbox struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewOutbox creates an outbox on db
func NewOutbox(db *gorm.DB, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{db: db, logger: logger}
}

// Enqueue stores n as pending
func (o *Outbox) Enqueue(ctx context.Context, n *models.Notification) error {
	n.ID = 0
	n.Status = models.QueueStatusPending
	n.Attempts = 0
	n.NextRetryAt = nil
	if err := o.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	o.logger.Debug("notification queued", "id", n.ID, "kind", n.Kind)
	return nil
}

// QueueStats counts notifications per status
type QueueStats struct {
	Pending       int64 `json:"pending"`
	Processing    int64 `json:"processing"`
	Done          int64 `json:"done"`
	Failed        int64 `json:"failed"`
	PermanentFail int64 `json:"permanent_fail"`
}

// Stats returns current queue statistics
func (o *Outbox) Stats(ctx context.Context) (*QueueStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := o.db.WithContext(ctx).Model(&models.Notification{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	stats := &QueueStats{}
	for _, r := range rows {
		switch r.Status {
		case models.QueueStatusPending:
			stats.Pending = r.Count
		case models.QueueStatusProcessing:
			stats.Processing = r.Count
		case models.QueueStatusDone:
			stats.Done = r.Count
		case models.QueueStatusFailed:
			stats.Failed = r.Count
		case models.QueueStatusPermanentFail:
			stats.PermanentFail = r.Count
		}
	}
	return stats, nil
}
