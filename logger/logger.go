// Package logger configures the process-wide zerolog logger
package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/hendarSu/locationtracker/config"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	gormlogger "gorm.io/gorm/logger"
)

// Init sets the global logger level, format and outputs.
// The returned closer flushes the rotating file, if any.
func Init(env string, cfg config.LoggingConfig) io.Closer {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if env == "development" || env == "local" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	var file *lumberjack.Logger
	if cfg.Output == "file" || cfg.Output == "both" {
		file = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}

	var out io.Writer
	switch {
	case file != nil && cfg.Output == "both":
		out = zerolog.MultiLevelWriter(console, file)
	case file != nil:
		out = file
	default:
		out = console
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if file == nil {
		return nopCloser{}
	}
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Ctx returns the global logger enriched with request-scoped values from ctx
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	c := l.With()
	if v, ok := ctx.Value(utils.RequestIDKey).(string); ok && v != "" {
		c = c.Str("request_id", v)
	}
	if v, ok := ctx.Value(utils.EndpointKey).(string); ok && v != "" {
		c = c.Str("endpoint", v)
	}
	l = c.Logger()
	return &l
}

// GormLogger bridges gorm's logger to zerolog
type GormLogger struct {
	SlowThreshold time.Duration
	level         gormlogger.LogLevel
}

// NewGormLogger creates a gorm logger that reports slow queries and errors
func NewGormLogger(slowThreshold time.Duration) *GormLogger {
	return &GormLogger{SlowThreshold: slowThreshold, level: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		Ctx(ctx).Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		Ctx(ctx).Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		Ctx(ctx).Error().Msgf(msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		Ctx(ctx).Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		Ctx(ctx).Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		Ctx(ctx).Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
