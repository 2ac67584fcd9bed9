// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the zerolog logger shared by all stages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// New builds a logger from configuration. Format "console" gives
// human-readable output for interactive runs; anything else emits JSON.
func New(cfg types.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stderr
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	return logger.Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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
