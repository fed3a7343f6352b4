// Package logging builds the zerolog logger shared by the server, the
// seed command and the gorm driver.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// New creates a logger with the given level ("debug", "info", "warn",
// "error") and format ("console" or "json").
func New(level, format string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	return NewWithOutput(level, out)
}

// NewWithOutput creates a logger writing to a specific output
func NewWithOutput(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything, for tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// gormWriter adapts zerolog to gorm's Printf-style writer. zerolog's own
// Printf always logs at debug, which would hide slow-query warnings.
type gormWriter struct {
	log   zerolog.Logger
	level zerolog.Level
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WithLevel(w.level).Msgf(format, args...)
}

// GormLogger routes gorm's SQL logging through zerolog. Debug enables
// per-statement tracing; otherwise only slow queries and errors are logged.
func GormLogger(log zerolog.Logger, debug bool) gormlogger.Interface {
	level, zlevel := gormlogger.Warn, zerolog.WarnLevel
	if debug {
		level, zlevel = gormlogger.Info, zerolog.DebugLevel
	}
	w := gormWriter{
		log:   log.With().Str("component", "gorm").Logger(),
		level: zlevel,
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
