// Package logger configures the global zerolog logger for the service.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global logger. In the "dev" environment output is
// human-readable console text; everywhere else it is JSON with timestamps.
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Str("service", "reserva-bot").
			Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "reserva-bot").
		Logger()
}

// Get returns the global logger.
func Get() *zerolog.Logger {
	return &log.Logger
}
