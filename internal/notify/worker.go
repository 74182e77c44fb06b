package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
)

// staleAfter is how long a row may stay in processing before it is
// considered abandoned by a crashed worker.
const staleAfter = 15 * time.Minute

// Worker delivers queued notifications one at a time
type Worker struct {
	db           *gorm.DB
	sender       Sender
	breaker      *CircuitBreaker
	logger       *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
	now          func() time.Time

	stopChan  chan struct{}
	done      chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// NewWorker creates a worker polling every pollInterval. maxAttempts caps
// delivery attempts before a row is marked permanent_fail.
func NewWorker(db *gorm.DB, sender Sender, pollInterval time.Duration, maxAttempts int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = models.MaxRetryAttempts
	}
	return &Worker{
		db:           db,
		sender:       sender,
		breaker:      NewCircuitBreaker(3, 10*time.Minute, logger),
		logger:       logger,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
}

// Start launches the polling loop
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		w.logger.Warn("notification worker already running")
		return
	}

	if n, err := w.RecoverStale(context.Background()); err != nil {
		w.logger.Error("failed to recover stale notifications", "error", err)
	} else if n > 0 {
		w.logger.Info("recovered stale notifications", "count", n)
	}

	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.isRunning = true
	w.logger.Info("notification worker started", "poll_interval", w.pollInterval, "max_attempts", w.maxAttempts)

	go w.run()
}

// Stop ends the polling loop and waits for the current delivery
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("notification worker stopped")
}

func (w *Worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain delivers due notifications until the queue is empty, the breaker
// opens or the worker is stopped.
func (w *Worker) drain() {
	for {
		select {
		case <-w.stopChan:
			return
		default:
		}
		processed, err := w.ProcessNext(context.Background())
		if err != nil {
			w.logger.Error("notification worker error", "error", err)
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessNext claims and delivers one due notification. It reports whether
// a row was handled.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if !w.breaker.CanProceed() {
		return false, nil
	}

	item, err := w.claim(ctx)
	if err != nil || item == nil {
		return false, err
	}

	w.logger.Debug("delivering notification", "id", item.ID, "kind", item.Kind, "attempt", item.Attempts)
	if sendErr := w.sender.Send(item); sendErr != nil {
		w.breaker.RecordFailure()
		return true, w.handleFailure(ctx, item, sendErr)
	}
	w.breaker.RecordSuccess()
	return true, w.handleSuccess(ctx, item)
}

// claim picks the oldest pending row, else the oldest failed row whose
// retry time has come, and flips it to processing. The conditional update
// keeps two workers from sending the same row.
func (w *Worker) claim(ctx context.Context) (*models.Notification, error) {
	db := w.db.WithContext(ctx)
	now := w.now().UTC()

	for attempt := 0; attempt < 3; attempt++ {
		var item models.Notification
		result := db.Where("status = ?", models.QueueStatusPending).
			Order("created_at ASC, id ASC").Limit(1).Find(&item)
		if result.Error == nil && result.RowsAffected == 0 {
			result = db.Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.QueueStatusFailed, now).
				Order("next_retry_at ASC, id ASC").Limit(1).Find(&item)
		}
		if result.Error != nil {
			return nil, fmt.Errorf("failed to fetch notification: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, nil
		}

		update := db.Model(&models.Notification{}).
			Where("id = ? AND status = ?", item.ID, item.Status).
			Updates(map[string]interface{}{
				"status":     models.QueueStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			})
		if update.Error != nil {
			return nil, fmt.Errorf("failed to claim notification: %w", update.Error)
		}
		if update.RowsAffected == 1 {
			item.Status = models.QueueStatusProcessing
			item.Attempts++
			return &item, nil
		}
	}
	return nil, nil
}

func (w *Worker) handleSuccess(ctx context.Context, item *models.Notification) error {
	completedAt := w.now().UTC()
	item.Status = models.QueueStatusDone
	item.LastError = ""
	item.NextRetryAt = nil
	item.CompletedAt = &completedAt
	if err := w.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to mark notification done: %w", err)
	}
	w.logger.Info("notification sent", "id", item.ID, "kind", item.Kind)
	return nil
}

func (w *Worker) handleFailure(ctx context.Context, item *models.Notification, sendErr error) error {
	now := w.now().UTC()
	item.LastError = sendErr.Error()

	switch {
	case errors.Is(sendErr, ErrMailDisabled), item.Attempts >= w.maxAttempts:
		item.Status = models.QueueStatusPermanentFail
		item.NextRetryAt = nil
		item.CompletedAt = &now
		w.logger.Error("notification failed permanently", "id", item.ID, "attempts", item.Attempts, "error", sendErr)
	default:
		delay := models.GetNextRetryDelay(item.Attempts - 1)
		next := now.Add(delay)
		item.Status = models.QueueStatusFailed
		item.NextRetryAt = &next
		w.logger.Warn("notification failed, retry scheduled",
			"id", item.ID, "attempt", item.Attempts, "max_attempts", w.maxAttempts, "retry_in", delay, "error", sendErr)
	}

	if err := w.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to save notification failure: %w", err)
	}
	return nil
}

// RecoverStale returns rows stuck in processing back to failed with an
// immediate retry.
func (w *Worker) RecoverStale(ctx context.Context) (int64, error) {
	now := w.now().UTC()
	result := w.db.WithContext(ctx).Model(&models.Notification{}).
		Where("status = ? AND updated_at < ?", models.QueueStatusProcessing, now.Add(-staleAfter)).
		Updates(map[string]interface{}{
			"status":        models.QueueStatusFailed,
			"next_retry_at": now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to recover stale notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// BreakerStatus exposes the delivery circuit breaker
func (w *Worker) BreakerStatus() BreakerStatus {
	return w.breaker.Status()
}
