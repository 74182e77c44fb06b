package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
)

// LeadLimiter caps lead submissions per client IP using the
// lead_rate_limits log table.
type LeadLimiter struct {
	db     *gorm.DB
	max    int
	window time.Duration
	now    func() time.Time
}

// NewLeadLimiter allows max submissions per IP within window
func NewLeadLimiter(db *gorm.DB, max int, window time.Duration) *LeadLimiter {
	return &LeadLimiter{db: db, max: max, window: window, now: time.Now}
}

// WithClock replaces the time source (tests)
func (l *LeadLimiter) WithClock(now func() time.Time) *LeadLimiter {
	l.now = now
	return l
}

// Allow counts the attempts of ip inside the window and, when below the
// limit, logs a new one. Count and insert share a transaction; on Postgres
// an advisory lock keyed by the IP serializes concurrent attempts.
func (l *LeadLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}

	now := l.now().UTC()
	allowed := false

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "lead:"+ip).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.LeadRateLimit{}).
			Where("ip = ? AND created_at > ?", ip, now.Add(-l.window)).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(l.max) {
			return nil
		}

		allowed = true
		return tx.Create(&models.LeadRateLimit{IP: ip, CreatedAt: now}).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to check lead rate limit: %w", err)
	}
	return allowed, nil
}

// Purge deletes log rows older than cutoff and returns how many were removed
func (l *LeadLimiter) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := l.now().UTC().Add(-olderThan)
	result := l.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.LeadRateLimit{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge lead rate limits: %w", result.Error)
	}
	return result.RowsAffected, nil
}
