// Package logger configures the process-wide zerolog logger.
// Every other package logs through github.com/rs/zerolog/log, so calling Setup once in
// main is enough to switch the whole server between pretty console output and JSON.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger.
// In development we want human-readable, coloured lines; anywhere else we emit JSON so
// log shippers can parse the fields (conn, room, host, ...).
func Setup(env, level string) {
	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
