// Package log provides structured logging for the surveillance and
// dispatch engine using zerolog, following the same component-logger
// convention the teacher's orchestrator uses: a global logger
// initialized once at startup, and small With* helpers that attach the
// identifiers each package cares about (event number, user, queue
// entry) instead of ad-hoc fmt.Sprintf prefixes.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, safe for concurrent use once Init
// has run.
var Logger zerolog.Logger

// Level is the configured minimum severity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration, sourced from internal/config's
// LOG_LEVEL env var.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Safe to call once at process
// startup before any component logger is derived.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagged with which component is
// logging (scheduler, dispatch, scraper, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithEventNumero tags a logger with the event being processed.
func WithEventNumero(logger zerolog.Logger, numero int) zerolog.Logger {
	return logger.With().Int("event_numero", numero).Logger()
}

// WithUserID tags a logger with the subscriber being notified.
func WithUserID(logger zerolog.Logger, userID string) zerolog.Logger {
	return logger.With().Str("user_id", userID).Logger()
}

// WithQueueEntryID tags a logger with the queue row being dispatched.
func WithQueueEntryID(logger zerolog.Logger, id string) zerolog.Logger {
	return logger.With().Str("queue_entry_id", id).Logger()
}
