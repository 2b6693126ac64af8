package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

const slowQueryThreshold = 250 * time.Millisecond

// queryLogger forwards gorm's slow queries to the service logger. Failed
// queries are left to the caller, which logs them with request context
// through the error envelope.
type queryLogger struct {
	logg *logger.Logger
}

func newQueryLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return queryLogger{logg: logg}
}

func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return q
}

func (q queryLogger) Info(ctx context.Context, msg string, args ...any) {
	q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
}

func (q queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
}

func (q queryLogger) Error(ctx context.Context, msg string, args ...any) {
	q.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
}

func (q queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	if elapsed < slowQueryThreshold || errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	query, rows := fc()
	q.logg.Warn(q.logg.WithFields(ctx, map[string]any{
		"duration_ms": elapsed.Milliseconds(),
		"rows":        rows,
		"sql":         query,
	}), "slow query")
}
