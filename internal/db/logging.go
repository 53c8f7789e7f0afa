package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger routes GORM's statement log through the application logger.
// Statements are logged at debug level; slow ones are raised to warn.
type queryLogger struct {
	level logger.LogLevel
}

func newQueryLogger() logger.Interface {
	return &queryLogger{level: logger.Info}
}

func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	duration := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		query, rows := fc()
		log.Debug("Database query failed", "sql", query, "rows", rows, "duration", duration, "error", err)
	case duration > slowQueryThreshold:
		query, rows := fc()
		log.Warn("Slow database query", "sql", query, "rows", rows, "duration", duration)
	case log.GetLevel() <= log.DebugLevel:
		query, rows := fc()
		log.Debug("Database query executed", "sql", query, "rows", rows, "duration", duration)
	}
}
