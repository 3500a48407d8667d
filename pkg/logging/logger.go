// Package logging configures the global zerolog logger and hands out
// component-scoped loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names used in the "component" field.
const (
	ComponentCatalog       = "catalog-client"
	ComponentCache         = "pricing-cache"
	ComponentResolver      = "resolver"
	ComponentAPI           = "api"
	ComponentWarmup        = "warmup"
	ComponentPricingClient = "pricing-client"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written: debug, info, warn or error.
	Level string

	// Pretty switches from JSON to human-readable console output.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// Setup configures the global logger. An unknown level is reported as an
// error and info is used.
func Setup(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger, err
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger returns a logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Level guidelines:
//
// Debug: cache hit/miss with key, client cache reads, sweeps.
// Info: catalog calls, cache invalidation, warm-up progress, startup and
// shutdown.
// Warn: retries, stale or default fallbacks, corrupted client entries,
// override applications.
// Error: exhausted retries, missing credentials, default pricing served.
//
// Common fields: style, color, size, key, operation, kind, attempt,
// status, duration, request_id. Credentials are never logged.
