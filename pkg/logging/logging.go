// Package logging configures the process wide zerolog logger from the service settings.
package logging

import (
	"io"
	"time"

	"github.com/animalet/notes-api/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level maps an operator facing level name to its zerolog level.
// NOTSET logs everything.
func Level(level settings.LogLevel) zerolog.Level {
	switch level {
	case settings.LogLevelNotSet:
		return zerolog.TraceLevel
	case settings.LogLevelDebug:
		return zerolog.DebugLevel
	case settings.LogLevelWarning:
		return zerolog.WarnLevel
	case settings.LogLevelError:
		return zerolog.ErrorLevel
	case settings.LogLevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Configure installs the global logger. Lambda gets JSON lines for CloudWatch,
// everything else a human readable console format.
func Configure(level settings.LogLevel, lambda bool, out io.Writer) {
	zerolog.SetGlobalLevel(Level(level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if lambda {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
}
