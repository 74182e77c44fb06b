// Package scheduler runs the daily maintenance job: rate limit and outbox
// purges, the orphan upload sweep and a search reindex.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"grahalia-estates/internal/cleanup"
	"grahalia-estates/internal/config"
)

const (
	defaultRunTime        = "03:30"
	notificationRetention = 30 * 24 * time.Hour
)

// ErrAlreadyRunning is returned by RunNow while a run is in progress
var ErrAlreadyRunning = errors.New("maintenance is already running")

// Reindexer rebuilds the search index
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// Report summarizes one maintenance run
type Report struct {
	StartedAt           time.Time            `json:"started_at"`
	Duration            string               `json:"duration"`
	RateLimitsPurged    int64                `json:"rate_limits_purged"`
	NotificationsPurged int64                `json:"notifications_purged"`
	Sweep               *cleanup.SweepResult `json:"sweep,omitempty"`
	Reindexed           int                  `json:"reindexed"`
	Errors              []string             `json:"errors,omitempty"`
}

// Scheduler handles scheduled maintenance tasks
type Scheduler struct {
	cron      *cron.Cron
	cleanup   *cleanup.Service
	search    Reindexer
	config    config.MaintenanceConfig
	logger    *slog.Logger
	running   sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler. search may be nil.
func NewScheduler(cleanupSvc *cleanup.Service, search Reindexer, cfg config.MaintenanceConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		cleanup: cleanupSvc,
		search:  search,
		config:  cfg,
		logger:  logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.DailyRunEnabled {
		s.logger.Info("scheduler: daily run is disabled in configuration")
		return nil
	}

	spec := s.parseDailyRunTime(s.config.DailyRunTime)
	_, err := s.cron.AddFunc(spec, func() {
		report, err := s.RunNow(context.Background())
		if err != nil {
			s.logger.Error("scheduler: daily maintenance failed", "error", err)
			return
		}
		s.logger.Info("scheduler: daily maintenance completed",
			"duration", report.Duration, "errors", len(report.Errors))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("scheduler: started", "daily_run_time", s.config.DailyRunTime, "cron", spec)
	return nil
}

// Stop stops the scheduler and waits for a running job
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.logger.Info("scheduler: stopped")
	}
}

// RunNow immediately executes the maintenance job (manual trigger). Steps
// run independently; their failures are collected in the report.
func (s *Scheduler) RunNow(ctx context.Context) (*Report, error) {
	if !s.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Unlock()

	report := &Report{StartedAt: time.Now()}
	fail := func(step string, err error) {
		s.logger.Error("scheduler: maintenance step failed", "step", step, "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", step, err))
	}

	retention := s.config.RateLimitRetention()
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if n, err := s.cleanup.PurgeRateLimits(ctx, retention); err != nil {
		fail("purge_rate_limits", err)
	} else {
		report.RateLimitsPurged = n
	}

	if n, err := s.cleanup.PurgeNotifications(ctx, notificationRetention); err != nil {
		fail("purge_notifications", err)
	} else {
		report.NotificationsPurged = n
	}

	if s.config.SweepOrphanUploads {
		if result, err := s.cleanup.SweepOrphanUploads(ctx, cleanup.DefaultSweepConfig()); err != nil {
			fail("sweep_orphan_uploads", err)
		} else {
			report.Sweep = result
		}
	}

	if s.config.ReindexSearch && s.search != nil {
		if n, err := s.search.Reindex(ctx); err != nil {
			fail("reindex_search", err)
		} else {
			report.Reindexed = n
		}
	}

	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	return report, nil
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	s.logger.Warn("scheduler: failed to parse daily run time, using default", "value", timeStr, "default", defaultRunTime)
	return "30 3 * * *"
}
