// Package cleanup holds the housekeeping jobs run by the scheduler: purging
// expired rate limit rows and delivered notifications, and sweeping upload
// files no listing references.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
	"grahalia-estates/internal/ratelimit"
	"grahalia-estates/internal/storage"
)

// Service runs housekeeping tasks
type Service struct {
	db      *gorm.DB
	store   *storage.Store
	limiter *ratelimit.LeadLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, store *storage.Store, limiter *ratelimit.LeadLimiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, store: store, limiter: limiter, logger: logger, now: time.Now}
}

// SweepConfig holds configuration for the orphan upload sweep
type SweepConfig struct {
	MinAge           time.Duration // Files younger than this may belong to an upload in flight
	MaxDeletionCount int           // Abort when more files than this would go (safety limit)
	DryRun           bool          // Only report what would be deleted
}

// DefaultSweepConfig returns default configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		MinAge:           time.Hour,
		MaxDeletionCount: 1000,
		DryRun:           false,
	}
}

// SweepResult holds the result of a sweep
type SweepResult struct {
	ScannedCount int       `json:"scanned_count"`
	TargetCount  int       `json:"target_count"`
	DeletedCount int       `json:"deleted_count"`
	ErrorCount   int       `json:"error_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
	DeletedFiles []string  `json:"deleted_files"`
	Errors       []string  `json:"errors,omitempty"`
}

// PurgeRateLimits deletes lead rate limit rows older than retention
func (s *Service) PurgeRateLimits(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.limiter.Purge(ctx, retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged lead rate limit rows", "count", n, "retention", retention)
	}
	return n, nil
}

// PurgeNotifications deletes delivered or abandoned notifications completed
// before retention.
func (s *Service) PurgeNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	result := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{models.QueueStatusDone, models.QueueStatusPermanentFail}, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("purged notifications", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// FindOrphanUploads lists stored files that no image row or plans url points
// at and that are older than minAge.
func (s *Service) FindOrphanUploads(ctx context.Context, minAge time.Duration) ([]string, int, error) {
	referenced, err := s.referencedURLs(ctx)
	if err != nil {
		return nil, 0, err
	}

	cutoff := s.now().Add(-minAge)
	scanned := 0
	var orphans []string
	for _, dir := range []string{storage.DirProperties, storage.DirPlans} {
		err := s.store.Walk(dir, func(publicURL string, info os.FileInfo) error {
			scanned++
			if referenced[publicURL] || info.ModTime().After(cutoff) {
				return nil
			}
			orphans = append(orphans, publicURL)
			return nil
		})
		if err != nil {
			return nil, scanned, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}
	return orphans, scanned, nil
}

// SweepOrphanUploads removes upload files no listing references and logs
// each removal in delete_logs.
func (s *Service) SweepOrphanUploads(ctx context.Context, cfg SweepConfig) (*SweepResult, error) {
	result := &SweepResult{
		DryRun:       cfg.DryRun,
		ExecutedAt:   s.now(),
		DeletedFiles: []string{},
	}

	orphans, scanned, err := s.FindOrphanUploads(ctx, cfg.MinAge)
	if err != nil {
		return nil, err
	}
	result.ScannedCount = scanned
	result.TargetCount = len(orphans)

	if result.TargetCount == 0 {
		return result, nil
	}

	if cfg.MaxDeletionCount > 0 && result.TargetCount > cfg.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d files exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletionCount)
	}

	s.logger.Info("sweeping orphan uploads", "count", result.TargetCount, "dry_run", cfg.DryRun)

	for _, url := range orphans {
		if cfg.DryRun {
			s.logger.Info("would delete orphan upload", "url", url)
			result.DeletedFiles = append(result.DeletedFiles, url)
			result.DeletedCount++
			continue
		}

		if err := s.store.Remove(url); err != nil {
			msg := fmt.Sprintf("failed to delete %s: %v", url, err)
			s.logger.Error("failed to delete orphan upload", "url", url, "error", err)
			result.Errors = append(result.Errors, msg)
			result.ErrorCount++
			continue
		}

		entry := models.DeleteLog{
			PropertyID: propertyIDFromFile(url),
			FileURL:    url,
			DeletedAt:  s.now().UTC(),
			Reason:     models.DeleteReasonOrphanFile,
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			s.logger.Warn("failed to log orphan upload deletion", "url", url, "error", err)
		}

		result.DeletedFiles = append(result.DeletedFiles, url)
		result.DeletedCount++
	}

	s.logger.Info("orphan sweep completed",
		"deleted", result.DeletedCount, "targets", result.TargetCount,
		"errors", result.ErrorCount, "dry_run", cfg.DryRun)
	return result, nil
}

func (s *Service) referencedURLs(ctx context.Context) (map[string]bool, error) {
	db := s.db.WithContext(ctx)

	var imageURLs []string
	if err := db.Model(&models.PropertyImage{}).Pluck("url", &imageURLs).Error; err != nil {
		return nil, fmt.Errorf("failed to list image urls: %w", err)
	}
	var planURLs []string
	if err := db.Model(&models.Property{}).Where("plans_url <> ?", "").Pluck("plans_url", &planURLs).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans urls: %w", err)
	}

	referenced := make(map[string]bool, len(imageURLs)+len(planURLs))
	for _, u := range append(imageURLs, planURLs...) {
		referenced[path.Clean("/"+strings.TrimSpace(u))] = true
	}
	return referenced, nil
}

// propertyIDFromFile reads the id out of "property-<id>-..." file names
func propertyIDFromFile(url string) uint {
	name := strings.TrimPrefix(path.Base(url), "property-")
	i := strings.Index(name, "-")
	if i <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(name[:i], 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// DeleteStats summarizes the delete log
type DeleteStats struct {
	TotalDeleted       int64            `json:"total_deleted"`
	ByReason           map[string]int64 `json:"by_reason"`
	DeletedLast30Days  int64            `json:"deleted_last_30_days"`
	PendingOrphanFiles int              `json:"pending_orphan_files"`
}

// GetDeleteStats returns statistics about deleted listings and files
func (s *Service) GetDeleteStats(ctx context.Context) (*DeleteStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DeleteStats{ByReason: make(map[string]int64)}

	if err := db.Model(&models.DeleteLog{}).Count(&stats.TotalDeleted).Error; err != nil {
		return nil, fmt.Errorf("failed to count delete logs: %w", err)
	}

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count delete logs by reason: %w", err)
	}
	for _, rc := range reasonCounts {
		stats.ByReason[rc.Reason] = rc.Count
	}

	thirtyDaysAgo := s.now().UTC().AddDate(0, 0, -30)
	if err := db.Model(&models.DeleteLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&stats.DeletedLast30Days).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent deletions: %w", err)
	}

	orphans, _, err := s.FindOrphanUploads(ctx, DefaultSweepConfig().MinAge)
	if err != nil {
		return nil, err
	}
	stats.PendingOrphanFiles = len(orphans)

	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	err := s.db.WithContext(ctx).Order("deleted_at DESC, id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get delete logs: %w", err)
	}
	return logs, nil
}
