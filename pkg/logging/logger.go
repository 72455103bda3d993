// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelTrace additionally logs raw GraphQL exchanges.
	LevelTrace LogLevel = "trace"

	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers derived from the
// global one afterwards (zerolog.Ctx falls back to it) inherit the level
// and output.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// ParseLevel converts a level name to zerolog.Level. Unknown names map to
// info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Trace: GraphQL request and response bodies
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Page transitions (page, next page, last page)
//   - Conditional requests and 304 revalidations
//
// Info: Normal operation events
//   - Completed OAuth logins
//   - Token rotation
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit throttling
//   - Retry attempts
//   - Cache and rate limit store errors (request proceeds)
//
// Error: Error conditions requiring attention
//   - Failed calls after retries
//   - Every credential blocked by the rate limit
//   - Configuration errors
//
// Context Fields:
//   - component: package emitting the entry
//   - call_id: ULID shared by every page of one call
//   - operation: service operation name (issues.repository, labels.create, ...)
//   - path: request path relative to the API base URL
//   - page: page number of the current request
//   - status_code: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network)
//   - credential: blake3 fingerprint of the credential in use
//   - remaining: requests left in the current rate limit window
//   - etag: ETag value for conditional requests
