package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var (
	sqlOperation = regexp.MustCompile(`^\s*([A-Za-z]+)`)
	sqlTable     = regexp.MustCompile("(?i)\\b(?:FROM|INTO|UPDATE)\\s+[`\"]?([A-Za-z0-9_.]+)")
)

// RegistryLogger routes document registry SQL through zap. Every statement
// is tagged with its operation and table so purges and lookups can be told
// apart without reading the SQL.
type RegistryLogger struct {
	logger                    *zap.Logger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
}

// RegistryLoggerOption configures a RegistryLogger
type RegistryLoggerOption func(*RegistryLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) RegistryLoggerOption {
	return func(l *RegistryLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether a lookup of an unregistered
// document is reported as an error
func WithIgnoreRecordNotFoundError(ignore bool) RegistryLoggerOption {
	return func(l *RegistryLogger) {
		l.ignoreRecordNotFoundError = ignore
	}
}

// NewRegistryLogger creates a gorm logger for the document registry
func NewRegistryLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...RegistryLoggerOption) *RegistryLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	rl := &RegistryLogger{
		logger:                    zapLogger.Named("registry"),
		logLevel:                  level,
		slowThreshold:             200 * time.Millisecond,
		ignoreRecordNotFoundError: true,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// LogMode implements gormlogger.Interface
func (l *RegistryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *RegistryLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *RegistryLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *RegistryLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. Failures are errors, slow statements
// warnings, and deletes that removed rows are logged at info so registry
// purges show up without query logging. Everything else is debug.
func (l *RegistryLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	if err != nil && l.ignoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	operation, table := ClassifyStatement(sql)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	switch {
	case err != nil:
		fields = append(fields, zap.String("sql", sql), zap.Error(err))
		l.logger.Error("registry statement failed", fields...)

	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		fields = append(fields, zap.String("sql", sql), zap.Duration("threshold", l.slowThreshold))
		l.logger.Warn("slow registry statement", fields...)

	case operation == "DELETE" && rows > 0 && l.logLevel >= gormlogger.Warn:
		l.logger.Info("registry rows deleted", fields...)

	case l.logLevel >= gormlogger.Info:
		fields = append(fields, zap.String("sql", sql))
		l.logger.Debug("registry statement", fields...)
	}
}

// ClassifyStatement returns the upper-cased leading keyword of sql and the
// first table it reads from or writes to. Either is empty when not found.
func ClassifyStatement(sql string) (operation, table string) {
	if m := sqlOperation.FindStringSubmatch(sql); m != nil {
		operation = strings.ToUpper(m[1])
	}
	if m := sqlTable.FindStringSubmatch(sql); m != nil {
		table = m[1]
	}
	return operation, table
}

// MapGormLogLevel maps string log level to GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
