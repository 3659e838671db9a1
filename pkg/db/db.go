package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// InitDB opens (or creates) the SQLite file and auto-migrates the given models.
func InitDB(dbPath string, log *slog.Logger, models ...any) (*gorm.DB, error) {
	log.Info("initializing_sqlite", "path", dbPath)

	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: &slogGormLogger{logger: log},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}

	if len(models) > 0 {
		if err := database.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return database, nil
}

// slogGormLogger routes GORM's logger.Interface into slog.
type slogGormLogger struct {
	logger *slog.Logger
}

var _ logger.Interface = (*slogGormLogger)(nil)

func (l *slogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.InfoContext(ctx, msg, "data", data)
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WarnContext(ctx, msg, "data", data)
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.ErrorContext(ctx, msg, "data", data)
}

func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.ErrorContext(ctx, "gorm_query_failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		l.logger.WarnContext(ctx, "gorm_slow_query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
