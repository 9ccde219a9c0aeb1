package models

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// dbLogger routes gorm's log output through zerolog so that query logs
// carry the same format and level filtering as the rest of the engine.
type dbLogger struct {
	Logger zerolog.Logger
}

// LogMode is a no-op: zerolog's global level decides what gets emitted.
func (l *dbLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *dbLogger) Info(_ context.Context, msg string, args ...any) {
	l.Logger.Info().Msgf(msg, args...)
}

func (l *dbLogger) Warn(_ context.Context, msg string, args ...any) {
	l.Logger.Warn().Msgf(msg, args...)
}

func (l *dbLogger) Error(_ context.Context, msg string, args ...any) {
	l.Logger.Error().Msgf(msg, args...)
}

// Trace logs each query with its duration. Not-found results are an
// expected outcome of the reconciliation fetches and are not errors.
func (l *dbLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()

	if err != nil && !errors.Is(err, ErrResourceNotFound) {
		l.Logger.Error().Err(err).Str("sql", sql).Dur("duration", time.Since(begin)).Msg("query error")
		return
	}

	l.Logger.Debug().Str("sql", sql).Int64("rows", rows).Dur("duration", time.Since(begin)).Msg("query")
}
