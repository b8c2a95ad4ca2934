// Package logger builds the application's zerolog logger.  All
// background work (expiry sweep, queue consumer) logs through it;
// request handlers report errors to the client instead of logging.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to stderr.  In the dev environment
// output is switched to the human-readable console writer.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "dev" {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
