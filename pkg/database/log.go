package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/canteen/pkg/logger"
)

// queryLog routes gorm's output into the request-scoped slog logger. At
// the default Warn level only failed and slow statements are written.
type queryLog struct {
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLog(slow time.Duration) gormlogger.Interface {
	return queryLog{slow: slow, level: gormlogger.Warn}
}

func (q queryLog) LogMode(l gormlogger.LogLevel) gormlogger.Interface {
	q.level = l
	return q
}

func (q queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		logger.WithCtx(ctx).Info("database: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		logger.WithCtx(ctx).Warn("database: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		logger.WithCtx(ctx).Error("database: " + fmt.Sprintf(msg, args...))
	}
}

func (q queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		sql, rows := fc()
		logger.WithCtx(ctx).Error("database: query failed", "sql", sql, "rows", rows, "elapsed", elapsed.String(), "error", err)
	case q.slow > 0 && elapsed > q.slow && q.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WithCtx(ctx).Warn("database: slow query", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	case q.level >= gormlogger.Info:
		sql, rows := fc()
		logger.WithCtx(ctx).Debug("database: query", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	}
}
