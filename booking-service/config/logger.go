package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. An unknown level falls back to info.
func NewLogger(cfg Log, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02T15:04:05.999"}
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if err != nil {
		logger.Error().Str("level", cfg.Level).Msg("bad value for log.level")
	}
	return logger
}
