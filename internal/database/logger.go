package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlowQueryThreshold is the duration above which queries are logged as slow
const SlowQueryThreshold = 200 * time.Millisecond

// SlogLogger sends gorm's messages and query traces to a slog logger
type SlogLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewSlogLogger returns a gorm logger writing to log at level
func NewSlogLogger(log *slog.Logger, level logger.LogLevel) *SlogLogger {
	if log == nil {
		log = slog.Default()
	}
	return &SlogLogger{log: log.With("component", "gorm"), level: level, slow: SlowQueryThreshold}
}

// LogMode returns a copy logging at level
func (l *SlogLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *SlogLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *SlogLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed queries, slow queries and, at Info level, every query.
// Record-not-found is an expected outcome and is not logged as an error.
func (l *SlogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.ErrorContext(ctx, "query failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.WarnContext(ctx, "slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.InfoContext(ctx, "query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
