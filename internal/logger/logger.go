// Package logger provides structured logging for the page-storage engine.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with pageserver-specific functionality.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger.
func NewLogger(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "pageserver").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message.
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string) *zerolog.Event {
	return l.zlog.Fatal().Str("msg", msg)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// ImageLayerLogger returns a logger for image layer file operations.
func (l *Logger) ImageLayerLogger(path string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "imagelayer").
			Str("path", path).
			Logger(),
	}
}

// DirectoryLogger returns a logger for directory read-modify-write operations.
func (l *Logger) DirectoryLogger(directory string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "directory").
			Str("directory", directory).
			Logger(),
	}
}

// TenantLogger returns a logger for per-tenant background loops.
func (l *Logger) TenantLogger(tenantID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "tenant").
			Str("tenant_id", tenantID).
			Logger(),
	}
}

// LogImageLayerWrite logs the outcome of finishing or aborting an image layer write.
func (l *Logger) LogImageLayerWrite(path string, keyCount int, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "imagelayer").
		Str("path", path).
		Int("key_count", keyCount).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "imagelayer").
			Str("path", path).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("image layer write completed")
}

// LogDirectoryRMW logs a directory read-modify-write operation.
func (l *Logger) LogDirectoryRMW(directory, op string, duration time.Duration, err error) {
	event := l.zlog.Debug().
		Str("component", "directory").
		Str("directory", directory).
		Str("op", op).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Warn().
			Str("component", "directory").
			Str("directory", directory).
			Str("op", op).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("directory read-modify-write completed")
}

// LogCheckpointIteration logs one checkpoint-loop iteration for a tenant.
func (l *Logger) LogCheckpointIteration(tenantID string, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "tenant").
		Str("tenant_id", tenantID).
		Str("op", "checkpoint").
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "tenant").
			Str("tenant_id", tenantID).
			Str("op", "checkpoint").
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("checkpoint iteration completed")
}

// LogGCIteration logs one GC-loop iteration for a tenant.
func (l *Logger) LogGCIteration(tenantID string, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "tenant").
		Str("tenant_id", tenantID).
		Str("op", "gc").
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "tenant").
			Str("tenant_id", tenantID).
			Str("op", "gc").
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("gc iteration completed")
}

// Global logger instance.
var globalLogger *Logger

// InitGlobalLogger initializes the global logger.
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
