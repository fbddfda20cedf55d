// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     logging
// Description: Named component loggers with key/value fields over zerolog
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	setupOnce sync.Once
	baseMu    sync.RWMutex
	base      zerolog.Logger
)

// Config holds global logging configuration
type Config struct {
	// Level is the minimum level: debug, info, warn, error
	Level string

	// Pretty enables human-readable console output instead of JSON
	Pretty bool

	// Output overrides the log destination (default: stdout)
	Output io.Writer
}

// Setup initializes the global logging backend. Safe to call more than
// once; only the first call wins.
func Setup(cfg Config) {
	setupOnce.Do(func() {
		var out io.Writer = os.Stdout
		if cfg.Output != nil {
			out = cfg.Output
		}
		if cfg.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		baseMu.Lock()
		base = zerolog.New(out).With().Timestamp().Logger()
		baseMu.Unlock()
	})
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a named component logger
type Logger struct {
	zl   zerolog.Logger
	name string
}

// New creates a logger for the named component
func New(name string) *Logger {
	Setup(Config{})

	baseMu.RLock()
	defer baseMu.RUnlock()
	return &Logger{
		zl:   base.With().Str("component", name).Logger(),
		name: name,
	}
}

// Debug logs a debug message with key/value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	applyFields(l.zl.Debug(), keysAndValues).Msg(msg)
}

// Info logs an info message with key/value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	applyFields(l.zl.Info(), keysAndValues).Msg(msg)
}

// Warn logs a warning message with key/value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	applyFields(l.zl.Warn(), keysAndValues).Msg(msg)
}

// Error logs an error message with key/value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	applyFields(l.zl.Error(), keysAndValues).Msg(msg)
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// applyFields converts key/value pairs into zerolog fields. Keys that are
// not strings are skipped, as is a trailing dangling key.
func applyFields(ev *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
