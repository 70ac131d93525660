package database

import (
	"context"
	"errors"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold marks queries worth a warning
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// fiberLogger routes gorm's output through fiberlog so SQL shows up next to request logs
type fiberLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logLevel string) gormlogger.Interface {
	return &fiberLogger{
		level:         gormLogLevel(logLevel),
		slowThreshold: DefaultSlowQueryThreshold,
	}
}

// gormLogLevel maps server.log_level onto gorm's coarser levels.
// Statements are only traced at debug/trace.
func gormLogLevel(logLevel string) gormlogger.LogLevel {
	switch strings.ToLower(logLevel) {
	case "trace", "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	case "fatal", "panic", "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}

func (l *fiberLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *fiberLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		fiberlog.Infof("gorm: "+msg, args...)
	}
}

func (l *fiberLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		fiberlog.Warnf("gorm: "+msg, args...)
	}
}

func (l *fiberLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		fiberlog.Errorf("gorm: "+msg, args...)
	}
}

func (l *fiberLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		fiberlog.Errorf("gorm: %v [%s, rows %d] %s", err, elapsed, rows, sql)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		fiberlog.Warnf("gorm: slow query >= %s [%s, rows %d] %s", l.slowThreshold, elapsed, rows, sql)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		fiberlog.Debugf("gorm: [%s, rows %d] %s", elapsed, rows, sql)
	}
}
