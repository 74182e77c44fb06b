package notify

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitBreaker pauses delivery after consecutive SMTP failures so a dead
// mail server is not hammered on every poll.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	failures            int
	successes           int
	isOpen              bool
	lastFailureTime     time.Time

	now    func() time.Time
	logger *slog.Logger
	mutex  sync.Mutex
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and half-opens after resetTimeout.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// RecordSuccess records a delivered message
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successes++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed delivery
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.lastFailureTime = cb.now()

	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.logger.Warn("mail circuit breaker open",
			"consecutive_failures", cb.consecutiveFailures,
			"retry_after", cb.resetTimeout)
	}
}

// CanProceed reports whether sending is allowed. An open breaker half-opens
// once resetTimeout has passed since the last failure.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.logger.Info("mail circuit breaker half-open", "after", cb.resetTimeout)
		cb.isOpen = false
		cb.consecutiveFailures = 0
		return true
	}
	return false
}

// BreakerStatus is a snapshot of the breaker counters
type BreakerStatus struct {
	Open                bool `json:"open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
	Failures            int  `json:"failures"`
	Successes           int  `json:"successes"`
}

// Status returns current circuit breaker status
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return BreakerStatus{
		Open:                cb.isOpen,
		ConsecutiveFailures: cb.consecutiveFailures,
		Failures:            cb.failures,
		Successes:           cb.successes,
	}
}
