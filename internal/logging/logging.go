// Package logging configures the process-wide zerolog logger. Components
// derive scoped sub-loggers from it instead of constructing their own.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Logs go to stderr; stdout is reserved
// for command output. LOG_FORMAT=json switches the console writer off for
// log shippers.
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stderr)
	if os.Getenv("LOG_FORMAT") != "json" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}
	log.Logger = logger.With().Timestamp().Str("service", "sceneworker").Logger()
}

// WithComponent derives a logger tagged with one pipeline component.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithJob derives a logger scoped to one segmentation job.
func WithJob(component, jobID string) zerolog.Logger {
	return WithComponent(component).With().Str("job_id", jobID).Logger()
}
